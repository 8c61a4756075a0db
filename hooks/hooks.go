// Package hooks implements the lifecycle events a compiler exposes to
// plugins. Taps are asynchronous: each returns a future, and calling a hook
// returns a future that completes once the taps it dispatched to have.
package hooks

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/go/buildcache/future"
)

// Result is the outcome of a bail tap. A tap that has nothing to offer
// returns a zero Result so later taps get a chance.
type Result[R any] struct {
	Value R
	Found bool
}

// TapFunc is an asynchronous tap that produces no value.
type TapFunc[A any] func(ctx context.Context, args A) *future.Future[struct{}]

// BailFunc is an asynchronous tap that may produce a value.
type BailFunc[A, R any] func(ctx context.Context, args A) *future.Future[Result[R]]

type tap[F any] struct {
	name string
	fn   F
}

type taps[F any] struct {
	mu   sync.RWMutex
	list []tap[F]
}

func (t *taps[F]) add(name string, fn F) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list = append(t.list, tap[F]{name: name, fn: fn})
}

func (t *taps[F]) snapshot() []tap[F] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]tap[F](nil), t.list...)
}

// Names returns the tap names in registration order.
func (t *taps[F]) Names() []string {
	list := t.snapshot()
	names := make([]string, len(list))
	for i, tp := range list {
		names[i] = tp.name
	}
	return names
}

// SeriesHook runs its taps one after another and stops at the first error.
type SeriesHook[A any] struct {
	taps[TapFunc[A]]
}

// Tap registers fn under name.
func (h *SeriesHook[A]) Tap(name string, fn TapFunc[A]) {
	h.add(name, fn)
}

// Call dispatches args to every tap in order.
func (h *SeriesHook[A]) Call(ctx context.Context, args A) *future.Future[struct{}] {
	list := h.snapshot()
	return future.Go(ctx, func(ctx context.Context) (struct{}, error) {
		for _, tp := range list {
			if _, err := tp.fn(ctx, args).Await(ctx); err != nil {
				return struct{}{}, fmt.Errorf("%s: %w", tp.name, err)
			}
		}
		return struct{}{}, nil
	})
}

// ParallelHook runs all of its taps concurrently.
type ParallelHook[A any] struct {
	taps[TapFunc[A]]
}

// Tap registers fn under name.
func (h *ParallelHook[A]) Tap(name string, fn TapFunc[A]) {
	h.add(name, fn)
}

// Call dispatches args to every tap at once. The returned future completes
// when all taps have, with the first error any of them returned.
func (h *ParallelHook[A]) Call(ctx context.Context, args A) *future.Future[struct{}] {
	list := h.snapshot()
	return future.Go(ctx, func(ctx context.Context) (struct{}, error) {
		var eg errgroup.Group
		for _, tp := range list {
			f := tp.fn(ctx, args)
			name := tp.name
			eg.Go(func() error {
				if _, err := f.Await(ctx); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				return nil
			})
		}
		return struct{}{}, eg.Wait()
	})
}

// BailHook runs its taps in order until one returns a found Result.
type BailHook[A, R any] struct {
	taps[BailFunc[A, R]]
}

// Tap registers fn under name.
func (h *BailHook[A, R]) Tap(name string, fn BailFunc[A, R]) {
	h.add(name, fn)
}

// Call returns the first found Result, or a zero Result when no tap has one.
func (h *BailHook[A, R]) Call(ctx context.Context, args A) *future.Future[Result[R]] {
	list := h.snapshot()
	return future.Go(ctx, func(ctx context.Context) (Result[R], error) {
		for _, tp := range list {
			res, err := tp.fn(ctx, args).Await(ctx)
			if err != nil {
				return Result[R]{}, fmt.Errorf("%s: %w", tp.name, err)
			}
			if res.Found {
				return res, nil
			}
		}
		return Result[R]{}, nil
	})
}
