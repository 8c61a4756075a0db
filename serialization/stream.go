package serialization

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	platformerrors "github.com/jmgilman/go/errors"
)

// MaxDepth bounds object nesting on both encode and decode. Cyclic graphs
// hit this limit instead of recursing forever.
const MaxDepth = 64

// Simple values that only Any and Bytes accept. Null encodes a nil nested
// object or a nil byte slice.
const (
	cborNull      = 0xf6
	cborUndefined = 0xf7
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("serialization: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("serialization: CBOR decoder initialization failed: " + err.Error())
	}
}

// Fields is the ordered field list of one artifact. Writer and Reader both
// implement it, so a single function describes the encoded shape:
// on a Writer each call writes *p, on a Reader each call fills *p.
//
// Errors are sticky. After the first failure every call is a no-op and
// Err reports that failure.
type Fields interface {
	String(p *string)
	Int(p *int)
	Int64(p *int64)
	Uint64(p *uint64)
	Float(p *float64)
	Bool(p *bool)
	Bytes(p *[]byte)
	// Strings writes the element count followed by each element. An empty
	// list reads back as nil.
	Strings(p *[]string)
	// Any writes a nested object as its type key followed by its payload.
	Any(p *any)
	// Fail records err unless an earlier error is already recorded.
	Fail(err error)
	// Decoding reports whether the field list is being read.
	Decoding() bool
	Err() error
}

// Object reads or writes a nested object of static type T through f.
// T is typically a pointer or interface type; a nil value round-trips as nil.
func Object[T any](f Fields, p *T) {
	if !f.Decoding() {
		v := any(*p)
		f.Any(&v)
		return
	}

	var v any
	f.Any(&v)
	if f.Err() != nil {
		return
	}
	if v == nil {
		var zero T
		*p = zero
		return
	}
	t, ok := v.(T)
	if !ok {
		f.Fail(fmt.Errorf("%w: expected %s, got %T", ErrDecode, reflect.TypeFor[T](), v))
		return
	}
	*p = t
}

// Writer appends primitive values to a serialization stream.
type Writer struct {
	enc      *cbor.Encoder
	registry *Registry
	depth    int
	err      error
}

func newWriter(w io.Writer, registry *Registry) *Writer {
	return &Writer{enc: encMode.NewEncoder(w), registry: registry}
}

func (w *Writer) put(v any) {
	if w.err != nil {
		return
	}
	if err := w.enc.Encode(v); err != nil {
		w.err = platformerrors.Wrap(err, platformerrors.CodeInternal, "encode value")
	}
}

func (w *Writer) String(p *string) { w.put(*p) }
func (w *Writer) Int(p *int)       { w.put(*p) }
func (w *Writer) Int64(p *int64)   { w.put(*p) }
func (w *Writer) Uint64(p *uint64) { w.put(*p) }
func (w *Writer) Float(p *float64) { w.put(*p) }
func (w *Writer) Bool(p *bool)     { w.put(*p) }
func (w *Writer) Bytes(p *[]byte)  { w.put(*p) }
func (w *Writer) Decoding() bool   { return false }
func (w *Writer) Err() error       { return w.err }

func (w *Writer) Strings(p *[]string) {
	w.put(len(*p))
	for _, s := range *p {
		w.put(s)
	}
}

func (w *Writer) Fail(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *Writer) Any(p *any) {
	if w.err != nil {
		return
	}
	v := *p
	if isNil(v) {
		w.put(nil)
		return
	}

	codec, key, err := w.registry.ResolveByType(v)
	if err != nil {
		w.err = err
		return
	}
	if w.depth >= MaxDepth {
		w.err = platformerrors.Wrapf(ErrDepthExceeded, platformerrors.CodeInvalidInput, "writing %q", key)
		return
	}

	w.put(key)
	w.depth++
	err = codec.Serialize(v, w)
	w.depth--
	w.Fail(err)
}

// Reader consumes primitive values from a serialization stream in the
// order they were written.
type Reader struct {
	data     []byte
	registry *Registry
	depth    int
	err      error
}

func newReader(data []byte, registry *Registry) *Reader {
	return &Reader{data: data, registry: registry}
}

// next decodes one primitive. Null is rejected: the decoder would leave v
// untouched, hiding a read sequence that does not match the written one.
func (r *Reader) next(v any) { r.decode(v, false) }

func (r *Reader) decode(v any, nullable bool) {
	if r.err != nil {
		return
	}
	if len(r.data) == 0 {
		r.err = decodeError(io.ErrUnexpectedEOF)
		return
	}
	if !nullable && (r.data[0] == cborNull || r.data[0] == cborUndefined) {
		r.err = decodeError(fmt.Errorf("unexpected null, expected %T", v))
		return
	}
	rest, err := decMode.UnmarshalFirst(r.data, v)
	if err != nil {
		r.err = decodeError(err)
		return
	}
	r.data = rest
}

func (r *Reader) String(p *string) { r.next(p) }
func (r *Reader) Int(p *int)       { r.next(p) }
func (r *Reader) Int64(p *int64)   { r.next(p) }
func (r *Reader) Uint64(p *uint64) { r.next(p) }
func (r *Reader) Float(p *float64) { r.next(p) }
func (r *Reader) Bool(p *bool)     { r.next(p) }
func (r *Reader) Bytes(p *[]byte)  { r.decode(p, true) }
func (r *Reader) Decoding() bool   { return true }
func (r *Reader) Err() error       { return r.err }
func (r *Reader) remaining() int   { return len(r.data) }

func (r *Reader) Strings(p *[]string) {
	var n int
	r.next(&n)
	if r.err != nil {
		return
	}
	// Every element takes at least one byte.
	if n < 0 || n > len(r.data) {
		r.err = decodeError(fmt.Errorf("invalid string list length %d", n))
		return
	}
	if n == 0 {
		*p = nil
		return
	}
	out := make([]string, n)
	for i := range out {
		r.next(&out[i])
	}
	if r.err != nil {
		return
	}
	*p = out
}

func (r *Reader) Fail(err error) {
	if r.err == nil && err != nil {
		r.err = decodeError(err)
	}
}

func (r *Reader) Any(p *any) {
	var raw cbor.RawMessage
	r.decode(&raw, true)
	if r.err != nil {
		return
	}
	if len(raw) == 1 && raw[0] == cborNull {
		*p = nil
		return
	}

	var key string
	if err := decMode.Unmarshal(raw, &key); err != nil {
		r.err = decodeError(fmt.Errorf("expected type key: %w", err))
		return
	}
	codec, err := r.registry.ResolveByKey(key)
	if err != nil {
		r.err = decodeError(err)
		return
	}
	if r.depth >= MaxDepth {
		r.err = decodeError(fmt.Errorf("%w: reading %q", ErrDepthExceeded, key))
		return
	}

	r.depth++
	v, err := codec.Deserialize(r)
	r.depth--
	if err != nil {
		r.Fail(err)
		return
	}
	*p = v
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// DiagnoseSequence renders every item of a CBOR sequence in diagnostic
// notation (RFC 8949 §8), separated by commas.
func DiagnoseSequence(data []byte) (string, error) {
	var out bytes.Buffer
	for len(data) > 0 {
		item, rest, err := cbor.DiagnoseFirst(data)
		if err != nil {
			return out.String(), err
		}
		if out.Len() > 0 {
			out.WriteString(", ")
		}
		out.WriteString(item)
		data = rest
	}
	return out.String(), nil
}
