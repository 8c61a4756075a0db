package filecache

import "github.com/jmgilman/go/buildcache/serialization"

// KeyAssetEntry is the type key of AssetEntry.
const KeyAssetEntry = "buildcache/AssetEntry"

// AssetEntry is the stored form of an emitted asset. Hash is the content
// hash the asset was stored under; a lookup with a different hash is stale.
type AssetEntry struct {
	Source any
	Hash   string
}

func assetEntryFields(e *AssetEntry, f serialization.Fields) {
	f.Any(&e.Source)
	f.String(&e.Hash)
}

// RegisterCodecs adds the codecs of the store's own entry types to reg.
func RegisterCodecs(reg *serialization.Registry) error {
	return serialization.Register(reg, KeyAssetEntry, assetEntryFields)
}

// MatchHash returns a Validator accepting only asset entries stored under
// hash. The validated value is the entry's Source.
func MatchHash(hash string) Validator {
	return func(value any) (any, bool) {
		entry, ok := value.(*AssetEntry)
		if !ok || entry.Hash != hash {
			return nil, false
		}
		return entry.Source, true
	}
}
