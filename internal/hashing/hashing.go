// Package hashing maps hash algorithm names to constructors.
package hashing

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"sort"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/md4" //nolint:staticcheck // md4 keys are used for naming, not integrity
)

// Default is the algorithm used when none is configured.
const Default = "md4"

// Func returns the lowercase hex digest of data.
type Func func(data string) string

var algorithms = map[string]func() hash.Hash{
	"md4":    md4.New,
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
	"blake3": func() hash.Hash { return blake3.New() },
}

// New returns a fresh hash for the named algorithm.
func New(name string) (hash.Hash, error) {
	ctor, ok := algorithms[name]
	if !ok {
		return nil, platformerrors.Newf(platformerrors.CodeInvalidConfig,
			"unsupported hash algorithm %q (supported: %v)", name, Algorithms())
	}
	return ctor(), nil
}

// Hex returns a Func computing hex digests with the named algorithm.
func Hex(name string) (Func, error) {
	if _, err := New(name); err != nil {
		return nil, err
	}
	ctor := algorithms[name]
	return func(data string) string {
		h := ctor()
		_, _ = h.Write([]byte(data))
		return hex.EncodeToString(h.Sum(nil))
	}, nil
}

// Supported reports whether name is a known algorithm.
func Supported(name string) bool {
	_, ok := algorithms[name]
	return ok
}

// Algorithms returns the supported algorithm names, sorted.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
