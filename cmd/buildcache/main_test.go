package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmgilman/go/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/buildcache"
	"github.com/jmgilman/go/buildcache/artifact"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func populate(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "cache")
	ctx := context.Background()

	plugin, err := buildcache.New(buildcache.Config{CacheDirectory: dir, Compression: "zstd"}, buildcache.WithFS(billy.NewLocal()))
	require.NoError(t, err)
	_, err = plugin.BeforeCompile(ctx).Await(ctx)
	require.NoError(t, err)

	_, err = plugin.StoreModule(ctx, "/src/a.js", &artifact.Module{
		Identifier: "/src/a.js",
		Type:       "javascript/auto",
		Source:     artifact.NewRawSource("export default 1;"),
	}).Await(ctx)
	require.NoError(t, err)
	_, err = plugin.StoreAsset(ctx, "main.js", "h1", artifact.NewRawSource("1;")).Await(ctx)
	require.NoError(t, err)
	return dir
}

func TestRun_Usage(t *testing.T) {
	_, err := runCLI(t)
	assert.Error(t, err)

	_, err = runCLI(t, "--help")
	assert.NoError(t, err)

	_, err = runCLI(t, "frobnicate")
	assert.ErrorContains(t, err, "unknown command")
}

func TestKey(t *testing.T) {
	out, err := runCLI(t, "key", "abc")
	require.NoError(t, err)
	assert.Equal(t, "a448017aaf21d8525fc10ae87aa6729d.module.data\n", out)

	out, err = runCLI(t, "key", "--kind", "asset", "--hash", "sha256", "abc", "abc")
	require.NoError(t, err)
	line := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad.asset.data"
	assert.Equal(t, line+"\n"+line+"\n", out)

	_, err = runCLI(t, "key")
	assert.Error(t, err)
	_, err = runCLI(t, "key", "--kind", "chunk", "abc")
	assert.Error(t, err)
	_, err = runCLI(t, "key", "--hash", "crc32", "abc")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	dir := populate(t)

	name := strings.TrimSpace(must(runCLI(t, "key", "/src/a.js")))
	out, err := runCLI(t, "inspect", "--dir", dir, name)
	require.NoError(t, err)
	assert.Contains(t, out, "compression: zstd")
	assert.Contains(t, out, `"buildcache/serialization/1"`)
	assert.Contains(t, out, `"buildcache/Module"`)
	assert.Contains(t, out, "type:        *artifact.Module")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.module.data"), []byte("none 00\nxx"), 0o644))
	_, err = runCLI(t, "inspect", filepath.Join(dir, "junk.module.data"))
	assert.Error(t, err)

	_, err = runCLI(t, "inspect", "--dir", dir)
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	dir := populate(t)

	out, err := runCLI(t, "verify", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries, 0 corrupt")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.asset.data"), []byte("garbage"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".tmp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".tmp", "x.module.data.1234"), []byte("partial"), 0o644))

	out, err = runCLI(t, "verify", "--dir", dir, "--jobs", "2", "--clean-temp")
	require.Error(t, err)
	assert.Contains(t, out, "CORRUPT bad.asset.data")
	assert.Contains(t, out, "3 entries, 1 corrupt")
	assert.Contains(t, out, "removed 1 temporary files")

	_, err = runCLI(t, "verify", "--dir", dir, "--jobs", "0")
	assert.Error(t, err)
}

func TestVerify_Config(t *testing.T) {
	dir := populate(t)
	config := filepath.Join(t.TempDir(), "buildcache.yaml")
	require.NoError(t, os.WriteFile(config, []byte("cache_directory: "+dir+"\ncompression: zstd\n"), 0o644))

	out, err := runCLI(t, "verify", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entries, 0 corrupt")
}

func must(out string, err error) string {
	if err != nil {
		panic(err)
	}
	return out
}
