package buildcache

import (
	"context"
	"fmt"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"

	"github.com/jmgilman/go/buildcache/artifact"
	"github.com/jmgilman/go/buildcache/future"
	"github.com/jmgilman/go/buildcache/hooks"
	"github.com/jmgilman/go/buildcache/internal/filecache"
	"github.com/jmgilman/go/buildcache/serialization"
)

// PluginName is the name the plugin taps compiler hooks under.
const PluginName = "FileCachePlugin"

// Plugin persists compiled modules and emitted assets between builds.
// Apart from BeforeCompile, none of its operations fail: unusable entries
// are misses and failed stores are dropped.
type Plugin struct {
	config    Config
	registry  *serialization.Registry
	store     *filecache.Store
	logger    *filecache.Logger
	onFailure FailureFunc
}

// New builds a cache session for config.
func New(config Config, opts ...Option) (*Plugin, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := pluginOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fs == nil {
		o.fs = billy.NewLocal()
	}
	if o.registry == nil {
		o.registry = serialization.NewRegistry()
	}

	var logger *filecache.Logger
	if o.logger != nil {
		logger = filecache.FromSlog(o.logger)
	} else {
		level, _ := filecache.ParseLogLevel(config.LogLevel)
		logger = filecache.NewLogger(filecache.LogConfig{Level: level})
	}

	if err := artifact.RegisterCodecs(o.registry); err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to register codecs")
	}
	if err := filecache.RegisterCodecs(o.registry); err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to register codecs")
	}

	p := &Plugin{
		config:    config,
		registry:  o.registry,
		logger:    logger.With("plugin", PluginName),
		onFailure: o.onFailure,
	}

	store, err := filecache.New(filecache.Options{
		FS:            o.fs,
		Directory:     config.CacheDirectory,
		Serializer:    serialization.New(o.registry),
		HashAlgorithm: config.HashAlgorithm,
		Compression:   filecache.Compression(config.Compression),
		Logger:        p.logger,
		OnFailure:     p.handleFailure,
	})
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to create cache store")
	}
	p.store = store

	return p, nil
}

// Apply taps the plugin into every cache-related compiler hook.
func (p *Plugin) Apply(c *hooks.Compiler) {
	c.BeforeCompile.Tap(PluginName, func(ctx context.Context, _ struct{}) *future.Future[struct{}] {
		return p.BeforeCompile(ctx)
	})
	c.StoreModule.Tap(PluginName, func(ctx context.Context, args hooks.StoreModuleArgs) *future.Future[struct{}] {
		return p.StoreModule(ctx, args.Identifier, args.Module)
	})
	c.GetModule.Tap(PluginName, p.GetModule)
	c.StoreAsset.Tap(PluginName, func(ctx context.Context, args hooks.StoreAssetArgs) *future.Future[struct{}] {
		return p.StoreAsset(ctx, args.Identifier, args.Hash, args.Source)
	})
	c.GetAsset.Tap(PluginName, func(ctx context.Context, args hooks.GetAssetArgs) *future.Future[hooks.Result[artifact.Source]] {
		return p.GetAsset(ctx, args.Identifier, args.Hash)
	})
}

// BeforeCompile makes sure the cache directory exists. Its failure is a
// configuration error and is returned to the build.
func (p *Plugin) BeforeCompile(ctx context.Context) *future.Future[struct{}] {
	ensure := p.store.EnsureDirectory(ctx)
	return future.Go(ctx, func(ctx context.Context) (struct{}, error) {
		if _, err := ensure.Result(); err != nil {
			return struct{}{}, platformerrors.Wrapf(fmt.Errorf("%w: %w", ErrCacheDirectory, err),
				platformerrors.CodeInvalidConfig, "cache directory %q", p.store.Directory())
		}
		return struct{}{}, nil
	})
}

// StoreModule persists module under identifier. The returned future
// always succeeds.
func (p *Plugin) StoreModule(ctx context.Context, identifier string, module *artifact.Module) *future.Future[struct{}] {
	return absorb(ctx, p.store.Put(ctx, filecache.KindModule, identifier, module))
}

// GetModule restores the module stored under identifier.
func (p *Plugin) GetModule(ctx context.Context, identifier string) *future.Future[hooks.Result[*artifact.Module]] {
	get := p.store.GetValid(ctx, filecache.KindModule, identifier, func(value any) (any, bool) {
		m, ok := value.(*artifact.Module)
		return m, ok
	})
	return future.Then(ctx, get, func(l filecache.Lookup) (hooks.Result[*artifact.Module], error) {
		if !l.Found {
			return hooks.Result[*artifact.Module]{}, nil
		}
		return hooks.Result[*artifact.Module]{Value: l.Value.(*artifact.Module), Found: true}, nil
	})
}

// StoreAsset persists source under identifier together with the content
// hash it was built from. The returned future always succeeds.
func (p *Plugin) StoreAsset(ctx context.Context, identifier, hash string, source artifact.Source) *future.Future[struct{}] {
	entry := &filecache.AssetEntry{Source: source, Hash: hash}
	return absorb(ctx, p.store.Put(ctx, filecache.KindAsset, identifier, entry))
}

// GetAsset restores the asset stored under identifier if it was stored
// with hash. An entry with any other hash is stale and reads as a miss.
func (p *Plugin) GetAsset(ctx context.Context, identifier, hash string) *future.Future[hooks.Result[artifact.Source]] {
	match := filecache.MatchHash(hash)
	get := p.store.GetValid(ctx, filecache.KindAsset, identifier, func(value any) (any, bool) {
		source, ok := match(value)
		if !ok {
			return nil, false
		}
		s, ok := source.(artifact.Source)
		return s, ok
	})
	return future.Then(ctx, get, func(l filecache.Lookup) (hooks.Result[artifact.Source], error) {
		if !l.Found {
			return hooks.Result[artifact.Source]{}, nil
		}
		return hooks.Result[artifact.Source]{Value: l.Value.(artifact.Source), Found: true}, nil
	})
}

// Metrics returns a snapshot of the session's counters.
func (p *Plugin) Metrics() MetricsSnapshot {
	return p.store.Metrics().Snapshot()
}

// LogMetrics logs the current metrics snapshot at info level.
func (p *Plugin) LogMetrics(ctx context.Context) {
	snapshot := p.Metrics()
	filecache.LogPerformanceMetrics(ctx, p.logger, &snapshot)
}

// Registry returns the session's codec registry.
func (p *Plugin) Registry() *serialization.Registry {
	return p.registry
}

// Config returns the effective configuration.
func (p *Plugin) Config() Config {
	return p.config
}

// Store returns the underlying entry store.
func (p *Plugin) Store() *filecache.Store {
	return p.store
}

func (p *Plugin) handleFailure(ctx context.Context, failure Failure) {
	if p.config.WarnOnFailure {
		p.logger.Warn(ctx, failureMessage(failure),
			"identifier", failure.Identifier,
			"error", failure.Err)
	}
	if p.onFailure != nil {
		p.onFailure(ctx, failure)
	}
}

func failureMessage(failure Failure) string {
	switch failure.Operation {
	case filecache.OpPut:
		return fmt.Sprintf("caching failed for %s", failure.Kind)
	case filecache.OpGet:
		return fmt.Sprintf("restoring failed for %s", failure.Kind)
	default:
		return "cache directory setup failed"
	}
}

// absorb returns a future that completes with f but never fails.
func absorb(ctx context.Context, f *future.Future[struct{}]) *future.Future[struct{}] {
	return future.Go(ctx, func(context.Context) (struct{}, error) {
		_, _ = f.Result()
		return struct{}{}, nil
	})
}
