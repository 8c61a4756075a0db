package artifact

// Position is a line/column pair. Lines are 1-based, columns 0-based.
type Position struct {
	Line   int
	Column int
}

// SourceLocation is a span in an original file.
type SourceLocation struct {
	Start Position
	End   Position
}

// Dependency is a request made by a module, with where it was made.
type Dependency struct {
	Request string
	Loc     *SourceLocation
}

// Module is a compiled module record. Empty Dependencies and Warnings are
// restored from the cache as nil.
type Module struct {
	// Identifier is the module's stable logical name, usually its resolved request.
	Identifier string
	// Type is the module type, for example "javascript/auto".
	Type string
	// BuildHash fingerprints the inputs the module was built from.
	BuildHash    string
	Dependencies []*Dependency
	Source       Source
	Warnings     []string
}
