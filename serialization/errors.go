package serialization

import (
	"errors"
	"fmt"

	platformerrors "github.com/jmgilman/go/errors"
)

// ErrUnregisteredType is returned when a value's concrete type has no codec.
var ErrUnregisteredType = errors.New("type has no registered codec")

// ErrUnknownTypeKey is returned when serialized data names a type key that
// the registry does not know, typically because the data was written by a
// different version of the program.
var ErrUnknownTypeKey = errors.New("unknown type key")

// ErrDuplicateType is returned when registering a type that already has a codec.
var ErrDuplicateType = errors.New("type already registered")

// ErrDuplicateKey is returned when registering a type key that is already in use.
var ErrDuplicateKey = errors.New("type key already registered")

// ErrDecode is returned when serialized data cannot be decoded.
var ErrDecode = errors.New("malformed serialized data")

// ErrFormatVersion is returned when serialized data carries an unsupported format tag.
var ErrFormatVersion = errors.New("unsupported serialization format")

// ErrDepthExceeded is returned when an object graph nests deeper than MaxDepth.
var ErrDepthExceeded = errors.New("object nesting exceeds maximum depth")

// decodeError marks err as a decode failure while keeping it matchable.
func decodeError(err error) error {
	if errors.Is(err, ErrDecode) {
		return err
	}
	return platformerrors.Wrap(fmt.Errorf("%w: %w", ErrDecode, err), platformerrors.CodeInvalidInput, "deserialize failed")
}
