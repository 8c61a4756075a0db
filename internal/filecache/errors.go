package filecache

import "errors"

// ErrCacheCorrupted is returned when an entry's header or checksum does not
// match its payload.
var ErrCacheCorrupted = errors.New("cache entry is corrupted")

// ErrEntryNotFound is returned when no entry exists for a key.
var ErrEntryNotFound = errors.New("cache entry not found")

// ErrUnsupportedCompression is returned for an unknown compression name.
var ErrUnsupportedCompression = errors.New("unsupported compression")
