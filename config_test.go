package buildcache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	platformerrors "github.com/jmgilman/go/errors"
	"github.com/jmgilman/go/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SetDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	c := DefaultConfig()
	assert.Equal(t, filepath.Join(wd, DefaultCacheSubdirectory), c.CacheDirectory)
	assert.Equal(t, "md4", c.HashAlgorithm)
	assert.Equal(t, "none", c.Compression)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.WarnOnFailure)
	assert.NoError(t, c.Validate())

	// Explicit values are kept.
	c = Config{CacheDirectory: "/var/cache/build", HashAlgorithm: "sha256", Compression: "zstd"}
	c.SetDefaults()
	assert.Equal(t, "/var/cache/build", c.CacheDirectory)
	assert.Equal(t, "sha256", c.HashAlgorithm)
	assert.Equal(t, "zstd", c.Compression)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "blake3", mutate: func(c *Config) { c.HashAlgorithm = "blake3" }},
		{name: "lz4", mutate: func(c *Config) { c.Compression = "lz4" }},
		{name: "empty directory", mutate: func(c *Config) { c.CacheDirectory = "" }, wantErr: true},
		{name: "unknown hash", mutate: func(c *Config) { c.HashAlgorithm = "whirlpool" }, wantErr: true},
		{name: "unknown compression", mutate: func(c *Config) { c.Compression = "gzip" }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
			assert.Equal(t, platformerrors.CodeInvalidConfig, platformerrors.GetCode(err))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	fsys := billy.NewMemory()
	require.NoError(t, fsys.WriteFile("/project/buildcache.yaml", []byte(`
cache_directory: /project/.cache/build
hash_algorithm: sha1
compression: lz4
warn_on_failure: true
log_level: debug
`), 0o644))

	c, err := LoadConfig(fsys, "/project/buildcache.yaml")
	require.NoError(t, err)
	assert.Equal(t, Config{
		CacheDirectory: "/project/.cache/build",
		HashAlgorithm:  "sha1",
		WarnOnFailure:  true,
		Compression:    "lz4",
		LogLevel:       "debug",
	}, c)
}

func TestLoadConfig_Errors(t *testing.T) {
	fsys := billy.NewMemory()
	require.NoError(t, fsys.WriteFile("/bad.yaml", []byte("cache_directory: [unterminated"), 0o644))
	require.NoError(t, fsys.WriteFile("/invalid.yaml", []byte("hash_algorithm: crc32\n"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: "/missing.yaml"},
		{name: "malformed yaml", path: "/bad.yaml"},
		{name: "invalid value", path: "/invalid.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(fsys, tt.path)
			require.Error(t, err)
			assert.Equal(t, platformerrors.CodeInvalidConfig, platformerrors.GetCode(err))
		})
	}
}
