package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jmgilman/go/fs/billy"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/go/buildcache"
	"github.com/jmgilman/go/buildcache/internal/filecache"
	"github.com/jmgilman/go/buildcache/internal/hashing"
	"github.com/jmgilman/go/buildcache/serialization"
)

func runKey(_ context.Context, args []string, stdout, stderr io.Writer) error {
	var hashName, kind string
	flagSet := newFlagSet("key", "key [--hash md4] [--kind module] <identifier>...", stderr)
	flagSet.StringVar(&hashName, "hash", hashing.Default, "hash algorithm used to key entries")
	flagSet.StringVar(&kind, "kind", string(filecache.KindModule), "entry kind (module or asset)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() == 0 {
		return fmt.Errorf("key: at least one identifier is required")
	}
	if kind != string(filecache.KindModule) && kind != string(filecache.KindAsset) {
		return fmt.Errorf("key: unknown kind %q", kind)
	}

	key, err := hashing.Hex(hashName)
	if err != nil {
		return err
	}
	for _, id := range flagSet.Args() {
		fmt.Fprintln(stdout, filecache.FormatFilename(key(id), filecache.Kind(kind)))
	}
	return nil
}

type cacheFlags struct {
	dir    string
	config string
}

func (c *cacheFlags) add(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.dir, "dir", "", "cache directory (overrides the config file)")
	flagSet.StringVar(&c.config, "config", "", "path to a YAML cache config")
}

// open builds a cache session from the flags, logging warnings to stderr.
func (c *cacheFlags) open(stderr io.Writer) (*buildcache.Plugin, error) {
	fsys := billy.NewLocal()

	config := buildcache.DefaultConfig()
	if c.config != "" {
		path, err := filepath.Abs(c.config)
		if err != nil {
			return nil, err
		}
		if config, err = buildcache.LoadConfig(fsys, path); err != nil {
			return nil, err
		}
	}
	if c.dir != "" {
		dir, err := filepath.Abs(c.dir)
		if err != nil {
			return nil, err
		}
		config.CacheDirectory = dir
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return buildcache.New(config, buildcache.WithFS(fsys), buildcache.WithLogger(logger))
}

func runInspect(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var flags cacheFlags
	flagSet := newFlagSet("inspect", "inspect [--dir D] [--config F] <file>", stderr)
	flags.add(flagSet)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("inspect: exactly one file is required")
	}

	plugin, err := flags.open(stderr)
	if err != nil {
		return err
	}

	// Bare entry names resolve against the cache directory.
	path := flagSet.Arg(0)
	if filepath.Base(path) == path {
		path = filepath.Join(plugin.Config().CacheDirectory, path)
	}
	if path, err = filepath.Abs(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := billy.NewLocal().ReadFile(path)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	compression, raw, err := filecache.OpenEntry(data)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}

	fmt.Fprintf(stdout, "file:        %s\n", path)
	fmt.Fprintf(stdout, "compression: %s\n", compression)
	fmt.Fprintf(stdout, "stored:      %d bytes\n", len(data))
	fmt.Fprintf(stdout, "serialized:  %d bytes\n", len(raw))

	diag, diagErr := serialization.DiagnoseSequence(raw)
	fmt.Fprintf(stdout, "stream:      %s\n", diag)
	if diagErr != nil {
		return fmt.Errorf("inspect %s: %w", path, diagErr)
	}

	value, err := serialization.New(plugin.Registry()).Unmarshal(raw)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "type:        %T\n", value)
	fmt.Fprintf(stdout, "value:       %+v\n", value)
	return nil
}

func runVerify(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var flags cacheFlags
	var jobs int
	var cleanTemp bool
	flagSet := newFlagSet("verify", "verify [--dir D] [--config F] [--jobs N]", stderr)
	flags.add(flagSet)
	flagSet.IntVarP(&jobs, "jobs", "j", 8, "number of entries decoded in parallel")
	flagSet.BoolVar(&cleanTemp, "clean-temp", false, "remove leftovers of interrupted writes")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 0 {
		return fmt.Errorf("verify: unexpected argument %q", flagSet.Arg(0))
	}
	if jobs < 1 {
		return fmt.Errorf("verify: --jobs must be at least 1")
	}

	plugin, err := flags.open(stderr)
	if err != nil {
		return err
	}
	store := plugin.Store()

	names, err := store.Entries(ctx)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	var mu sync.Mutex
	corrupt := map[string]error{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, name := range names {
		g.Go(func() error {
			if _, err := store.Verify(gctx, name); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				mu.Lock()
				corrupt[name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	if cleanTemp {
		removed, err := store.CleanupTempFiles(ctx)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		fmt.Fprintf(stdout, "removed %d temporary files\n", removed)
	}

	bad := make([]string, 0, len(corrupt))
	for name := range corrupt {
		bad = append(bad, name)
	}
	sort.Strings(bad)
	for _, name := range bad {
		fmt.Fprintf(stdout, "CORRUPT %s: %v\n", name, corrupt[name])
	}
	fmt.Fprintf(stdout, "%d entries, %d corrupt\n", len(names), len(bad))

	if len(bad) > 0 {
		return fmt.Errorf("verify: %d corrupt entries in %s", len(bad), store.Directory())
	}
	return nil
}
