package filecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmgilman/go/fs/core"
	"golang.org/x/sync/singleflight"

	"github.com/jmgilman/go/buildcache/future"
	"github.com/jmgilman/go/buildcache/internal/hashing"
	"github.com/jmgilman/go/buildcache/serialization"
)

// Kind separates entries of different artifact types that share an identifier.
type Kind string

const (
	KindModule Kind = "module"
	KindAsset  Kind = "asset"
)

const entrySuffix = ".data"

// Lookup is the outcome of Get. Found is false for every kind of miss,
// including unreadable or stale entries.
type Lookup struct {
	Value any
	Found bool
}

// Failure describes a store or restore attempt that did not succeed.
type Failure struct {
	Operation  Operation
	Kind       Kind
	Identifier string
	Err        error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s %q: %v", f.Operation, f.Kind, f.Identifier, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// FailureFunc receives every failure the store absorbs.
type FailureFunc func(ctx context.Context, failure Failure)

// Validator inspects a decoded entry and returns the value to hand to the
// caller. It returns false when the entry is stale.
type Validator func(value any) (any, bool)

// Options configures a Store.
type Options struct {
	FS         core.FS
	Directory  string
	Serializer *serialization.Serializer

	// HashAlgorithm defaults to hashing.Default.
	HashAlgorithm string
	// Compression defaults to CompressionNone.
	Compression Compression

	Logger    *Logger
	Metrics   *Metrics
	OnFailure FailureFunc
}

// Store persists serialized artifacts as one file per entry. Every failure
// is absorbed: Get reports a miss, Put reports through its future, and both
// notify the failure callback.
type Store struct {
	storage     *Storage
	serializer  *serialization.Serializer
	key         hashing.Func
	compression Compression

	logger    *Logger
	metrics   *Metrics
	onFailure FailureFunc

	dirs singleflight.Group
}

// New returns a Store for opts.
func New(opts Options) (*Store, error) {
	if opts.Serializer == nil {
		return nil, fmt.Errorf("serializer cannot be nil")
	}

	storage, err := NewStorage(opts.FS, opts.Directory)
	if err != nil {
		return nil, err
	}

	algorithm := opts.HashAlgorithm
	if algorithm == "" {
		algorithm = hashing.Default
	}
	key, err := hashing.Hex(algorithm)
	if err != nil {
		return nil, err
	}

	compression, err := ParseCompression(string(opts.Compression))
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = NewNopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	return &Store{
		storage:     storage,
		serializer:  opts.Serializer,
		key:         key,
		compression: compression,
		logger:      logger,
		metrics:     metrics,
		onFailure:   opts.OnFailure,
	}, nil
}

// Key returns the hex digest naming identifier's entries.
func (s *Store) Key(identifier string) string {
	return s.key(identifier)
}

// Filename returns the entry file name for identifier, relative to Directory.
func (s *Store) Filename(kind Kind, identifier string) string {
	return FormatFilename(s.key(identifier), kind)
}

// FormatFilename returns "<key>.<kind>.data".
func FormatFilename(key string, kind Kind) string {
	return key + "." + string(kind) + entrySuffix
}

// Directory returns the cache directory.
func (s *Store) Directory() string {
	return s.storage.Root()
}

// Metrics returns the store's metrics.
func (s *Store) Metrics() *Metrics {
	return s.metrics
}

// EnsureDirectory creates the cache directory. Concurrent calls share one
// creation and all observe its result.
func (s *Store) EnsureDirectory(ctx context.Context) *future.Future[struct{}] {
	return future.Go(ctx, func(ctx context.Context) (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, fmt.Errorf("context cancelled: %w", err)
		}

		start := time.Now()
		_, err, _ := s.dirs.Do(s.storage.Root(), func() (any, error) {
			return nil, s.storage.MkdirAll()
		})
		LogCacheOperation(ctx, s.logger, OpEnsureDirectory, time.Since(start), err == nil, 0, err)
		if err != nil {
			err = fmt.Errorf("failed to create cache directory %q: %w", s.storage.Root(), err)
			s.report(ctx, Failure{Operation: OpEnsureDirectory, Err: err})
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
}

// Put serializes value and stores it as the kind entry for identifier,
// replacing any previous entry.
func (s *Store) Put(ctx context.Context, kind Kind, identifier string, value any) *future.Future[struct{}] {
	return future.Go(ctx, func(ctx context.Context) (struct{}, error) {
		start := time.Now()
		size, err := s.put(ctx, kind, identifier, value)
		duration := time.Since(start)

		s.metrics.RecordLatency(OpPut, duration)
		LogCacheOperation(ctx, s.logger.WithEntry(kind, identifier), OpPut, duration, err == nil, size, err)
		if err != nil {
			s.report(ctx, Failure{Operation: OpPut, Kind: kind, Identifier: identifier, Err: err})
			return struct{}{}, err
		}
		s.metrics.RecordPut(kind, size)
		return struct{}{}, nil
	})
}

func (s *Store) put(ctx context.Context, kind Kind, identifier string, value any) (int64, error) {
	data, err := s.serializer.Marshal(value)
	if err != nil {
		return 0, err
	}
	payload, err := compress(s.compression, data)
	if err != nil {
		return 0, err
	}
	if err := s.storage.WriteAtomically(ctx, s.Filename(kind, identifier), s.compression, payload); err != nil {
		return 0, err
	}
	return int64(len(payload)), nil
}

// Get restores the kind entry for identifier. The future always succeeds;
// a missing, unreadable or undecodable entry is a miss.
func (s *Store) Get(ctx context.Context, kind Kind, identifier string) *future.Future[Lookup] {
	return s.GetValid(ctx, kind, identifier, nil)
}

// GetValid is Get with a validator applied to the decoded entry. A nil
// validator accepts every entry.
func (s *Store) GetValid(ctx context.Context, kind Kind, identifier string, validate Validator) *future.Future[Lookup] {
	return future.Go(ctx, func(ctx context.Context) (Lookup, error) {
		logger := s.logger.WithEntry(kind, identifier)
		start := time.Now()
		defer func() {
			s.metrics.RecordLatency(OpGet, time.Since(start))
		}()

		value, size, err := s.readEntry(ctx, s.Filename(kind, identifier))
		if err != nil {
			if errors.Is(err, ErrEntryNotFound) {
				LogCacheMiss(ctx, logger, kind, "not found")
			} else {
				LogCacheMiss(ctx, logger, kind, "unreadable")
				s.report(ctx, Failure{Operation: OpGet, Kind: kind, Identifier: identifier, Err: err})
			}
			s.metrics.RecordMiss(kind)
			return Lookup{}, nil
		}

		if validate != nil {
			var ok bool
			if value, ok = validate(value); !ok {
				LogCacheMiss(ctx, logger, kind, "stale")
				s.metrics.RecordStale(kind)
				return Lookup{}, nil
			}
		}

		LogCacheHit(ctx, logger, kind, size)
		s.metrics.RecordHit(kind, size)
		return Lookup{Value: value, Found: true}, nil
	})
}

func (s *Store) readEntry(ctx context.Context, name string) (any, int64, error) {
	c, payload, err := s.storage.ReadWithIntegrity(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	data, err := decompress(c, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrCacheCorrupted, err)
	}
	value, err := s.serializer.Unmarshal(data)
	if err != nil {
		return nil, 0, err
	}
	return value, int64(len(payload)), nil
}

// Entries lists the entry file names in the cache directory.
func (s *Store) Entries(ctx context.Context) ([]string, error) {
	return s.storage.List(ctx)
}

// Verify reads and decodes the entry file name, returning the decoded value.
func (s *Store) Verify(ctx context.Context, name string) (any, error) {
	value, _, err := s.readEntry(ctx, name)
	return value, err
}

// CleanupTempFiles removes leftovers of interrupted writes.
func (s *Store) CleanupTempFiles(ctx context.Context) (int, error) {
	return s.storage.CleanupTempFiles(ctx)
}

// OpenEntry verifies the header of a raw entry file and returns its
// decompressed serialized stream.
func OpenEntry(data []byte) (Compression, []byte, error) {
	c, payload, err := decodeEntry(data)
	if err != nil {
		return "", nil, err
	}
	raw, err := decompress(c, payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrCacheCorrupted, err)
	}
	return c, raw, nil
}

// report is the single path every absorbed failure takes.
func (s *Store) report(ctx context.Context, failure Failure) {
	s.logger.Debug(ctx, "cache failure",
		"operation", string(failure.Operation),
		"kind", string(failure.Kind),
		"identifier", failure.Identifier,
		"error", failure.Err)
	s.metrics.RecordError()
	if s.onFailure != nil {
		s.onFailure(ctx, failure)
	}
}
