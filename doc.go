// Package buildcache persists compiled modules and emitted assets on disk so
// that later builds can skip work an earlier build already did.
//
// A Plugin owns one cache session: a codec registry, a serializer and a
// file store rooted at Config.CacheDirectory. It taps a compiler's
// lifecycle hooks under the name "FileCachePlugin":
//
//	plugin, err := buildcache.New(buildcache.Config{WarnOnFailure: true})
//	if err != nil {
//	    return err
//	}
//	compiler := hooks.NewCompiler()
//	plugin.Apply(compiler)
//
// Each entry is stored in its own file named by the digest of its
// identifier, so operations on different entries never wait on each other.
// Assets are stored with the content hash they were built from and are
// only restored for the same hash.
//
// # Failure Handling
//
// The cache fails open. A missing, corrupted, truncated or undecodable
// entry is a miss, and a failed store is dropped; neither fails the build.
// The one exception is BeforeCompile: when the cache directory cannot be
// created the returned error carries code INVALID_CONFIGURATION and
// matches ErrCacheDirectory.
//
// Absorbed failures are counted in Metrics, passed to the WithOnFailure
// callback and, when Config.WarnOnFailure is set, logged at warn level.
//
// # Configuration
//
// Config can be built in code or loaded from YAML with LoadConfig:
//
//	cache_directory: node_modules/.cache/buildcache
//	hash_algorithm: md4
//	compression: zstd
//	warn_on_failure: true
//	log_level: info
package buildcache
