// Package serialization implements the registry-driven object serialization
// engine used to persist build artifacts.
//
// Artifacts are arbitrary Go values (module records, wrapped sources,
// location spans). Each concrete type is registered in a Registry under a
// stable string key together with a Codec. The key, not the Go type name,
// is what gets persisted, so implementing types can be renamed or moved
// between packages without invalidating existing cache files as long as the
// key stays registered.
//
// # Registration
//
// The usual way to register a type is through a field list that is shared
// by both directions, so the write sequence and the read sequence can never
// drift apart:
//
//	reg := serialization.NewRegistry()
//	err := serialization.Register(reg, "acme/Span", func(s *Span, f serialization.Fields) {
//	    f.Int(&s.Start)
//	    f.Int(&s.End)
//	    serialization.Object(f, &s.Parent)
//	})
//
// Register matches pointer values (*Span) and yields pointers on decode.
// RegisterValue matches and yields plain values. Types whose encoded shape
// differs from their in-memory shape can implement Codec directly and use
// RegisterCodec.
//
// A type and a key can each be registered only once. Re-registering either
// returns ErrDuplicateType or ErrDuplicateKey; entries are never replaced
// or removed.
//
// # Stream Format
//
// A serialized value is a CBOR sequence (RFC 8742) written with Core
// Deterministic Encoding:
//
//	"buildcache/serialization/1"   format tag
//	"acme/Span"                    type key of the root object
//	12, 40, ...                    payload items, in Fields order
//
// Nested objects are written the same way: type key, then payload. A nil
// nested object is a single CBOR null. Variable-length fields carry their
// own count (Strings writes the length before the items). There is no other
// framing, so a codec that reads a different sequence than it wrote
// corrupts every following read; the decoder detects most such mismatches
// as CBOR type errors and reports the whole call as failed.
//
// # Errors
//
// Marshal fails with ErrUnregisteredType when the object graph contains a
// type without a codec. Unmarshal fails with an error matching ErrDecode
// for any malformed, truncated, mismatched or trailing input and with
// ErrUnknownTypeKey when a key has no registration. Unmarshal never returns
// a partially decoded value.
package serialization
