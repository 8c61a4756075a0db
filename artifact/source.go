// Package artifact defines the build artifacts persisted by the cache and
// their codecs: wrapped output sources, location spans and module records.
package artifact

import "sync"

// Source is emitted output text with an optional source map.
type Source interface {
	// Source returns the generated text.
	Source() string
	// SourceAndMap returns the generated text and its source map as JSON.
	// The map is empty when none is available.
	SourceAndMap() (string, string)
}

// RawSource is text with no mapping back to any original.
type RawSource struct {
	source string
}

// NewRawSource returns a RawSource holding source.
func NewRawSource(source string) *RawSource {
	return &RawSource{source: source}
}

func (s *RawSource) Source() string { return s.source }

func (s *RawSource) SourceAndMap() (string, string) { return s.source, "" }

// OriginalSource is text that is its own original, identified by name.
type OriginalSource struct {
	source string
	name   string
}

// NewOriginalSource returns an OriginalSource for source named name.
func NewOriginalSource(source, name string) *OriginalSource {
	return &OriginalSource{source: source, name: name}
}

func (s *OriginalSource) Source() string { return s.source }

// Name returns the name the source was registered under.
func (s *OriginalSource) Name() string { return s.name }

func (s *OriginalSource) SourceAndMap() (string, string) { return s.source, "" }

// SourceMapSource is generated text paired with a source map.
type SourceMapSource struct {
	source    string
	name      string
	sourceMap string
}

// NewSourceMapSource returns a SourceMapSource. sourceMap is the map as JSON.
func NewSourceMapSource(source, name, sourceMap string) *SourceMapSource {
	return &SourceMapSource{source: source, name: name, sourceMap: sourceMap}
}

func (s *SourceMapSource) Source() string { return s.source }

// Name returns the name of the generated file.
func (s *SourceMapSource) Name() string { return s.name }

// Map returns the source map JSON.
func (s *SourceMapSource) Map() string { return s.sourceMap }

func (s *SourceMapSource) SourceAndMap() (string, string) { return s.source, s.sourceMap }

// CachedSource memoizes the output of an underlying Source.
type CachedSource struct {
	inner Source

	once      sync.Once
	source    string
	sourceMap string
}

// NewCachedSource wraps inner.
func NewCachedSource(inner Source) *CachedSource {
	return &CachedSource{inner: inner}
}

// Original returns the wrapped source.
func (s *CachedSource) Original() Source { return s.inner }

func (s *CachedSource) Source() string {
	src, _ := s.SourceAndMap()
	return src
}

func (s *CachedSource) SourceAndMap() (string, string) {
	s.once.Do(func() {
		s.source, s.sourceMap = s.inner.SourceAndMap()
	})
	return s.source, s.sourceMap
}
