package serialization

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jmgilman/go/fs/core"

	"github.com/jmgilman/go/buildcache/future"
)

// FormatTag is the first item of every serialized stream. It changes when
// the stream layout itself changes, independently of artifact codecs.
const FormatTag = "buildcache/serialization/1"

// Serializer encodes and decodes object graphs using the codecs of one Registry.
// A Serializer is safe for concurrent use.
type Serializer struct {
	registry *Registry
}

// New returns a Serializer bound to registry.
func New(registry *Registry) *Serializer {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Serializer{registry: registry}
}

// Registry returns the registry the serializer resolves codecs from.
func (s *Serializer) Registry() *Registry {
	return s.registry
}

// Marshal serializes value and everything reachable from it through its
// codecs. The root value must have a registered codec (or be nil).
func (s *Serializer) Marshal(value any) ([]byte, error) {
	var buf bytes.Buffer
	w := newWriter(&buf, s.registry)

	tag := FormatTag
	w.String(&tag)
	w.Any(&value)
	if err := w.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes data produced by Marshal. On failure it returns nil and
// a single error; it never returns a partially decoded value.
func (s *Serializer) Unmarshal(data []byte) (any, error) {
	r := newReader(data, s.registry)

	var tag string
	r.String(&tag)
	if r.Err() == nil && tag != FormatTag {
		return nil, decodeError(fmt.Errorf("%w: %q", ErrFormatVersion, tag))
	}

	var value any
	r.Any(&value)
	if r.Err() == nil && r.remaining() > 0 {
		r.Fail(fmt.Errorf("%d trailing bytes after root object", r.remaining()))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return value, nil
}

// SerializeToFile marshals value and writes it to path on fsys. The work
// runs on its own goroutine; value must not be mutated until the returned
// future completes.
func (s *Serializer) SerializeToFile(ctx context.Context, fsys core.FS, path string, value any) *future.Future[struct{}] {
	return future.Go(ctx, func(ctx context.Context) (struct{}, error) {
		data, err := s.Marshal(value)
		if err != nil {
			return struct{}{}, err
		}
		if err := ctx.Err(); err != nil {
			return struct{}{}, fmt.Errorf("context cancelled: %w", err)
		}
		if err := fsys.WriteFile(path, data, 0o644); err != nil {
			return struct{}{}, fmt.Errorf("failed to write %q: %w", path, err)
		}
		return struct{}{}, nil
	})
}

// DeserializeFromFile reads path from fsys and unmarshals it on its own goroutine.
func (s *Serializer) DeserializeFromFile(ctx context.Context, fsys core.FS, path string) *future.Future[any] {
	return future.Go(ctx, func(ctx context.Context) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}
		data, err := fsys.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		return s.Unmarshal(data)
	})
}
