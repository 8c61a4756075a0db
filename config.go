package buildcache

import (
	"fmt"
	"os"
	"path/filepath"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/core"
	"gopkg.in/yaml.v3"

	"github.com/jmgilman/go/buildcache/internal/filecache"
	"github.com/jmgilman/go/buildcache/internal/hashing"
)

// DefaultCacheSubdirectory is where the cache lives, relative to the
// working directory, when no directory is configured.
const DefaultCacheSubdirectory = "node_modules/.cache/buildcache"

// Config configures a Plugin.
type Config struct {
	// CacheDirectory holds the entry files. Relative paths resolve against
	// the working directory.
	CacheDirectory string `yaml:"cache_directory"`

	// HashAlgorithm derives entry file names from identifiers.
	// Default: md4
	HashAlgorithm string `yaml:"hash_algorithm"`

	// WarnOnFailure logs store and restore failures at warn level.
	WarnOnFailure bool `yaml:"warn_on_failure"`

	// Compression is one of none, zstd or lz4.
	// Default: none
	Compression string `yaml:"compression"`

	// LogLevel applies to the logger built when none is injected.
	// Default: info
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields and makes CacheDirectory absolute.
func (c *Config) SetDefaults() {
	if c.CacheDirectory == "" {
		c.CacheDirectory = DefaultCacheSubdirectory
	}
	if !filepath.IsAbs(c.CacheDirectory) {
		if wd, err := os.Getwd(); err == nil {
			c.CacheDirectory = filepath.Join(wd, c.CacheDirectory)
		}
	}
	if c.HashAlgorithm == "" {
		c.HashAlgorithm = hashing.Default
	}
	if c.Compression == "" {
		c.Compression = string(filecache.CompressionNone)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports the first invalid field as an ErrInvalidConfig error.
func (c *Config) Validate() error {
	if c.CacheDirectory == "" {
		return invalidConfig("cache directory cannot be empty")
	}
	if !hashing.Supported(c.HashAlgorithm) {
		return invalidConfig(fmt.Sprintf("unsupported hash algorithm %q (supported: %v)",
			c.HashAlgorithm, hashing.Algorithms()))
	}
	if _, err := filecache.ParseCompression(c.Compression); err != nil {
		return invalidConfig(err.Error())
	}
	if _, err := filecache.ParseLogLevel(c.LogLevel); err != nil {
		return invalidConfig(err.Error())
	}
	return nil
}

// LoadConfig reads a YAML config file from fsys and applies defaults.
// The result is validated.
func LoadConfig(fsys core.FS, path string) (Config, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Config{}, platformerrors.Wrapf(err, platformerrors.CodeInvalidConfig,
			"failed to read config %q", path)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, platformerrors.Wrapf(fmt.Errorf("%w: %w", ErrInvalidConfig, err),
			platformerrors.CodeInvalidConfig, "failed to parse config %q", path)
	}

	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
