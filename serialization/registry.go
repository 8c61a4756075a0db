package serialization

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	platformerrors "github.com/jmgilman/go/errors"
)

// Codec serializes and deserializes one concrete artifact type.
//
// Deserialize must issue exactly the reads that Serialize issued writes,
// in the same order and with the same kinds.
type Codec interface {
	Serialize(value any, w *Writer) error
	Deserialize(r *Reader) (any, error)
}

// CodecFuncs adapts a pair of functions to the Codec interface.
type CodecFuncs struct {
	SerializeFunc   func(value any, w *Writer) error
	DeserializeFunc func(r *Reader) (any, error)
}

// Serialize calls SerializeFunc.
func (c CodecFuncs) Serialize(value any, w *Writer) error { return c.SerializeFunc(value, w) }

// Deserialize calls DeserializeFunc.
func (c CodecFuncs) Deserialize(r *Reader) (any, error) { return c.DeserializeFunc(r) }

type registration struct {
	key   string
	typ   reflect.Type
	codec Codec
}

// Registry maps concrete Go types and stable type keys to codecs.
// A Registry is safe for concurrent use. Entries cannot be replaced or removed.
type Registry struct {
	mu     sync.RWMutex
	byKey  map[string]*registration
	byType map[reflect.Type]*registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byKey:  make(map[string]*registration),
		byType: make(map[reflect.Type]*registration),
	}
}

// RegisterCodec registers codec for values whose dynamic type is exactly
// matchType, persisted under typeKey.
func (r *Registry) RegisterCodec(matchType reflect.Type, typeKey string, codec Codec) error {
	if matchType == nil {
		return platformerrors.New(platformerrors.CodeInvalidInput, "match type cannot be nil")
	}
	if typeKey == "" {
		return platformerrors.New(platformerrors.CodeInvalidInput, "type key cannot be empty")
	}
	if codec == nil {
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "codec for %q cannot be nil", typeKey)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byType[matchType]; ok {
		return platformerrors.Wrapf(ErrDuplicateType, platformerrors.CodeAlreadyExists,
			"cannot register %s as %q: already registered as %q", matchType, typeKey, existing.key)
	}
	if existing, ok := r.byKey[typeKey]; ok {
		return platformerrors.Wrapf(ErrDuplicateKey, platformerrors.CodeAlreadyExists,
			"cannot register %s as %q: key is used by %s", matchType, typeKey, existing.typ)
	}

	reg := &registration{key: typeKey, typ: matchType, codec: codec}
	r.byType[matchType] = reg
	r.byKey[typeKey] = reg
	return nil
}

// ResolveByType returns the codec and type key for value's dynamic type.
func (r *Registry) ResolveByType(value any) (Codec, string, error) {
	t := reflect.TypeOf(value)

	r.mu.RLock()
	reg, ok := r.byType[t]
	r.mu.RUnlock()
	if !ok {
		return nil, "", platformerrors.Wrapf(ErrUnregisteredType, platformerrors.CodeNotFound, "no codec for %v", t)
	}
	return reg.codec, reg.key, nil
}

// ResolveByKey returns the codec registered under typeKey.
func (r *Registry) ResolveByKey(typeKey string) (Codec, error) {
	r.mu.RLock()
	reg, ok := r.byKey[typeKey]
	r.mu.RUnlock()
	if !ok {
		return nil, platformerrors.Wrapf(ErrUnknownTypeKey, platformerrors.CodeNotFound, "no codec for type key %q", typeKey)
	}
	return reg.codec, nil
}

// Keys returns the registered type keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Register registers a codec for *T built from a single field list. The
// same fields function drives both encoding and decoding.
func Register[T any](r *Registry, typeKey string, fields func(v *T, f Fields)) error {
	return r.RegisterCodec(reflect.TypeFor[*T](), typeKey, pointerCodec[T]{fields: fields})
}

// RegisterValue is like Register but matches and produces T values rather
// than pointers.
func RegisterValue[T any](r *Registry, typeKey string, fields func(v *T, f Fields)) error {
	return r.RegisterCodec(reflect.TypeFor[T](), typeKey, valueCodec[T]{fields: fields})
}

// MustRegister is like Register but panics on error. It is intended for
// wiring performed once at startup.
func MustRegister[T any](r *Registry, typeKey string, fields func(v *T, f Fields)) {
	if err := Register(r, typeKey, fields); err != nil {
		panic(fmt.Sprintf("serialization: %v", err))
	}
}

// MustRegisterValue is like RegisterValue but panics on error.
func MustRegisterValue[T any](r *Registry, typeKey string, fields func(v *T, f Fields)) {
	if err := RegisterValue(r, typeKey, fields); err != nil {
		panic(fmt.Sprintf("serialization: %v", err))
	}
}

type pointerCodec[T any] struct {
	fields func(v *T, f Fields)
}

func (c pointerCodec[T]) Serialize(value any, w *Writer) error {
	v, ok := value.(*T)
	if !ok || v == nil {
		return fmt.Errorf("%w: expected non-nil %s, got %T", ErrUnregisteredType, reflect.TypeFor[*T](), value)
	}
	c.fields(v, w)
	return w.Err()
}

func (c pointerCodec[T]) Deserialize(r *Reader) (any, error) {
	v := new(T)
	c.fields(v, r)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return v, nil
}

type valueCodec[T any] struct {
	fields func(v *T, f Fields)
}

func (c valueCodec[T]) Serialize(value any, w *Writer) error {
	v, ok := value.(T)
	if !ok {
		return fmt.Errorf("%w: expected %s, got %T", ErrUnregisteredType, reflect.TypeFor[T](), value)
	}
	c.fields(&v, w)
	return w.Err()
}

func (c valueCodec[T]) Deserialize(r *Reader) (any, error) {
	var v T
	c.fields(&v, r)
	if err := r.Err(); err != nil {
		return nil, err
	}
	return v, nil
}
