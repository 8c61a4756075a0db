// Package future provides a minimal single-assignment result handle for
// work that runs off the caller's goroutine.
//
// Cache operations return a Future immediately and complete it once the
// underlying disk I/O and (de)serialization finish:
//
//	f := future.Go(ctx, func(ctx context.Context) ([]byte, error) {
//	    return fsys.ReadFile(path)
//	})
//	data, err := f.Await(ctx)
package future

import (
	"context"
	"fmt"
)

// Future holds the eventual result of an asynchronous operation.
// A Future is completed exactly once and is safe for concurrent use.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on a new goroutine and returns a Future for its result.
// A panic inside fn is recovered and delivered as the Future's error.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.value = zero
				f.err = fmt.Errorf("future: panic: %v", r)
			}
		}()
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns an already completed Future holding value.
func Resolved[T any](value T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), value: value}
	close(f.done)
	return f
}

// Rejected returns an already completed Future holding err.
func Rejected[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), err: err}
	close(f.done)
	return f
}

// Done returns a channel that is closed once the Future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the Future completes or ctx is done. If ctx ends
// first, the context error is returned and the operation keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result blocks until the Future completes and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Then returns a Future completed with fn applied to f's value. Errors
// from f are passed through without calling fn.
func Then[T, U any](ctx context.Context, f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Go(ctx, func(ctx context.Context) (U, error) {
		v, err := f.Await(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}
