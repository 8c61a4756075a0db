package hooks

import "github.com/jmgilman/go/buildcache/artifact"

// StoreModuleArgs carries a compiled module to persist.
type StoreModuleArgs struct {
	Identifier string
	Module     *artifact.Module
}

// StoreAssetArgs carries an emitted asset and the content hash it was built from.
type StoreAssetArgs struct {
	Identifier string
	Hash       string
	Source     artifact.Source
}

// GetAssetArgs asks for an asset that must match Hash.
type GetAssetArgs struct {
	Identifier string
	Hash       string
}

// Compiler is the set of lifecycle events a build exposes.
type Compiler struct {
	// BeforeCompile runs before each compilation. An error aborts the build.
	BeforeCompile SeriesHook[struct{}]

	StoreModule ParallelHook[StoreModuleArgs]
	GetModule   BailHook[string, *artifact.Module]

	StoreAsset ParallelHook[StoreAssetArgs]
	GetAsset   BailHook[GetAssetArgs, artifact.Source]
}

// NewCompiler returns a Compiler with no taps.
func NewCompiler() *Compiler {
	return &Compiler{}
}
