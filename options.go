package buildcache

import (
	"context"
	"log/slog"

	"github.com/jmgilman/go/fs/core"

	"github.com/jmgilman/go/buildcache/internal/filecache"
	"github.com/jmgilman/go/buildcache/serialization"
)

// Failure describes a store or restore attempt the cache absorbed.
type Failure = filecache.Failure

// MetricsSnapshot is a point-in-time view of cache counters.
type MetricsSnapshot = filecache.MetricsSnapshot

// FailureFunc is called for every absorbed failure.
type FailureFunc func(ctx context.Context, failure Failure)

type pluginOptions struct {
	fs        core.FS
	logger    *slog.Logger
	onFailure FailureFunc
	registry  *serialization.Registry
}

// Option configures a Plugin.
type Option func(*pluginOptions)

// WithFS sets the filesystem entries are stored on. Defaults to the local
// filesystem.
func WithFS(fsys core.FS) Option {
	return func(opts *pluginOptions) {
		opts.fs = fsys
	}
}

// WithLogger sets the logger. Config.LogLevel is ignored when a logger is
// injected; level filtering is left to its handler.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *pluginOptions) {
		opts.logger = logger
	}
}

// WithOnFailure registers a callback for absorbed failures. It runs on the
// goroutine of the failed operation and must be safe for concurrent use.
func WithOnFailure(fn FailureFunc) Option {
	return func(opts *pluginOptions) {
		opts.onFailure = fn
	}
}

// WithRegistry sets the codec registry, allowing callers to register codecs
// for their own artifact types. The built-in codecs are added to it, so it
// must not already contain them.
func WithRegistry(reg *serialization.Registry) Option {
	return func(opts *pluginOptions) {
		opts.registry = reg
	}
}
