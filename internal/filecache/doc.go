// Package filecache stores serialized build artifacts on disk, one file per
// entry.
//
// An entry is named by the hex digest of its identifier and its kind:
//
//	<cache-dir>/<digest>.module.data
//	<cache-dir>/<digest>.asset.data
//
// Each file starts with a header line recording the payload compression
// and the SHA-256 of the stored payload, followed by the payload itself:
//
//	zstd 3b5d...c0a1\n<payload>
//
// Writes go through a temporary file under <cache-dir>/.tmp that is renamed
// into place, so a reader sees either the previous entry, the new entry, or
// nothing. A truncated or tampered file fails the checksum.
//
// The store fails open. Get never fails: a missing file, an I/O error, a
// checksum mismatch and an undecodable payload all produce a Lookup with
// Found set to false. Every failure other than a missing file is passed to
// one reporting path that logs it, counts it and hands it to the
// configured FailureFunc.
//
// Basic usage:
//
//	reg := serialization.NewRegistry()
//	_ = filecache.RegisterCodecs(reg)
//	store, err := filecache.New(filecache.Options{
//	    FS:         billy.NewLocal(),
//	    Directory:  "/tmp/cache",
//	    Serializer: serialization.New(reg),
//	})
//	if err != nil {
//	    return err
//	}
//	if _, err := store.EnsureDirectory(ctx).Await(ctx); err != nil {
//	    return err
//	}
//	_, _ = store.Put(ctx, filecache.KindAsset, "main.js", &filecache.AssetEntry{Source: src, Hash: h}).Await(ctx)
//	lookup, _ := store.GetValid(ctx, filecache.KindAsset, "main.js", filecache.MatchHash(h)).Await(ctx)
package filecache
