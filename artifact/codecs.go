package artifact

import (
	"errors"
	"fmt"

	"github.com/jmgilman/go/buildcache/serialization"
)

// Type keys persisted in cache entries. Changing one orphans every entry
// written under the old key.
const (
	KeyRawSource       = "webpack-sources/RawSource"
	KeyOriginalSource  = "webpack-sources/OriginalSource"
	KeySourceMapSource = "webpack-sources/SourceMapSource"
	KeyCachedSource    = "webpack-sources/CachedSource"
	KeySourceLocation  = "acorn/SourceLocation"
	KeyModule          = "buildcache/Module"
	KeyDependency      = "buildcache/Dependency"
)

// UnknownSourceName names the SourceMapSource a restored CachedSource wraps.
const UnknownSourceName = "unknown"

// RegisterCodecs adds the codecs of every artifact type in this package to reg.
func RegisterCodecs(reg *serialization.Registry) error {
	registrations := []func() error{
		func() error { return serialization.Register(reg, KeyRawSource, rawSourceFields) },
		func() error { return serialization.Register(reg, KeyOriginalSource, originalSourceFields) },
		func() error { return serialization.Register(reg, KeySourceMapSource, sourceMapSourceFields) },
		func() error { return serialization.Register(reg, KeyCachedSource, cachedSourceFields) },
		func() error { return serialization.Register(reg, KeySourceLocation, sourceLocationFields) },
		func() error { return serialization.Register(reg, KeyModule, moduleFields) },
		func() error { return serialization.Register(reg, KeyDependency, dependencyFields) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return fmt.Errorf("failed to register artifact codecs: %w", err)
		}
	}
	return nil
}

func rawSourceFields(s *RawSource, f serialization.Fields) {
	f.String(&s.source)
}

func originalSourceFields(s *OriginalSource, f serialization.Fields) {
	f.String(&s.source)
	f.String(&s.name)
}

func sourceMapSourceFields(s *SourceMapSource, f serialization.Fields) {
	f.String(&s.source)
	f.String(&s.name)
	f.String(&s.sourceMap)
}

// ErrEmptyCachedSource is returned when storing a CachedSource that wraps
// no source.
var ErrEmptyCachedSource = errors.New("cached source wraps no source")

// cachedSourceFields stores only the computed output. The wrapped source is
// not preserved; it comes back as a SourceMapSource named UnknownSourceName.
func cachedSourceFields(s *CachedSource, f serialization.Fields) {
	var source, sourceMap string
	if !f.Decoding() {
		if s.inner == nil {
			f.Fail(ErrEmptyCachedSource)
			return
		}
		source, sourceMap = s.SourceAndMap()
	}
	f.String(&source)
	f.String(&sourceMap)
	if f.Decoding() && f.Err() == nil {
		s.inner = NewSourceMapSource(source, UnknownSourceName, sourceMap)
	}
}

func sourceLocationFields(l *SourceLocation, f serialization.Fields) {
	f.Int(&l.Start.Line)
	f.Int(&l.Start.Column)
	f.Int(&l.End.Line)
	f.Int(&l.End.Column)
}

func dependencyFields(d *Dependency, f serialization.Fields) {
	f.String(&d.Request)
	serialization.Object(f, &d.Loc)
}

func moduleFields(m *Module, f serialization.Fields) {
	f.String(&m.Identifier)
	f.String(&m.Type)
	f.String(&m.BuildHash)

	n := len(m.Dependencies)
	f.Int(&n)
	if f.Decoding() {
		if n < 0 {
			f.Fail(fmt.Errorf("invalid dependency count %d", n))
			return
		}
		m.Dependencies = nil
		for i := 0; i < n && f.Err() == nil; i++ {
			var dep *Dependency
			serialization.Object(f, &dep)
			m.Dependencies = append(m.Dependencies, dep)
		}
	} else {
		for i := range m.Dependencies {
			serialization.Object(f, &m.Dependencies[i])
		}
	}

	serialization.Object(f, &m.Source)
	f.Strings(&m.Warnings)
}
