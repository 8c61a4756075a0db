package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/buildcache/serialization"
)

func newSerializer(t *testing.T) *serialization.Serializer {
	t.Helper()
	reg := serialization.NewRegistry()
	require.NoError(t, RegisterCodecs(reg))
	return serialization.New(reg)
}

func roundTrip(t *testing.T, s *serialization.Serializer, value any) any {
	t.Helper()
	data, err := s.Marshal(value)
	require.NoError(t, err)
	got, err := s.Unmarshal(data)
	require.NoError(t, err)
	return got
}

const sampleMap = `{"version":3,"sources":["a.js"],"mappings":"AAAA"}`

func TestRegisterCodecs_Keys(t *testing.T) {
	reg := serialization.NewRegistry()
	require.NoError(t, RegisterCodecs(reg))

	assert.Equal(t, []string{
		KeySourceLocation,
		KeyDependency,
		KeyModule,
		KeyCachedSource,
		KeyOriginalSource,
		KeyRawSource,
		KeySourceMapSource,
	}, reg.Keys())

	// A second registration into the same session is rejected.
	assert.ErrorIs(t, RegisterCodecs(reg), serialization.ErrDuplicateType)
}

func TestCodecs_RoundTrip(t *testing.T) {
	s := newSerializer(t)

	tests := []struct {
		name  string
		value any
	}{
		{name: "raw source", value: NewRawSource("console.log(1);")},
		{name: "empty raw source", value: NewRawSource("")},
		{name: "original source", value: NewOriginalSource("export default 1;", "webpack:///./src/a.js")},
		{name: "source map source", value: NewSourceMapSource("var a=1;", "main.js", sampleMap)},
		{name: "source location", value: &SourceLocation{Start: Position{Line: 3, Column: 4}, End: Position{Line: 3, Column: 18}}},
		{name: "dependency", value: &Dependency{Request: "./b", Loc: &SourceLocation{Start: Position{Line: 1}, End: Position{Line: 1, Column: 20}}}},
		{name: "dependency without location", value: &Dependency{Request: "lodash"}},
		{
			name: "module",
			value: &Module{
				Identifier: "/app/src/index.js",
				Type:       "javascript/auto",
				BuildHash:  "0f1e2d3c",
				Dependencies: []*Dependency{
					{Request: "./a", Loc: &SourceLocation{Start: Position{Line: 1}, End: Position{Line: 1, Column: 22}}},
					{Request: "./b"},
				},
				Source:   NewOriginalSource("import './a';", "/app/src/index.js"),
				Warnings: []string{"export 'x' was not found in './a'"},
			},
		},
		{name: "bare module", value: &Module{Identifier: "/app/empty.js"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.value, roundTrip(t, s, tt.value))
		})
	}
}

func TestCodecs_CachedSource(t *testing.T) {
	s := newSerializer(t)
	original := NewCachedSource(NewSourceMapSource("var b=2;", "b.js", sampleMap))

	got := roundTrip(t, s, original)
	restored, ok := got.(*CachedSource)
	require.True(t, ok, "got %T", got)

	src, sourceMap := restored.SourceAndMap()
	assert.Equal(t, "var b=2;", src)
	assert.Equal(t, sampleMap, sourceMap)

	// The wrapped source is rebuilt from the computed output.
	inner, ok := restored.Original().(*SourceMapSource)
	require.True(t, ok)
	assert.Equal(t, UnknownSourceName, inner.Name())
}

func TestCodecs_CachedSourceInsideModule(t *testing.T) {
	s := newSerializer(t)
	mod := &Module{
		Identifier: "/app/c.js",
		Source:     NewCachedSource(NewRawSource("c();")),
	}

	got, ok := roundTrip(t, s, mod).(*Module)
	require.True(t, ok)
	assert.Equal(t, "c();", got.Source.Source())
	assert.IsType(t, &CachedSource{}, got.Source)
}

func TestCodecs_UnregisteredSourceInModule(t *testing.T) {
	s := newSerializer(t)
	mod := &Module{Identifier: "/app/d.js", Source: foreignSource{}}

	_, err := s.Marshal(mod)
	assert.ErrorIs(t, err, serialization.ErrUnregisteredType)
}

func TestCodecs_EmptyCachedSource(t *testing.T) {
	s := newSerializer(t)

	_, err := s.Marshal(&CachedSource{})
	assert.ErrorIs(t, err, ErrEmptyCachedSource)

	_, err = s.Marshal(&Module{Identifier: "/app/e.js", Source: &CachedSource{}})
	assert.ErrorIs(t, err, ErrEmptyCachedSource)
}

type foreignSource struct{}

func (foreignSource) Source() string                 { return "" }
func (foreignSource) SourceAndMap() (string, string) { return "", "" }

func TestCachedSource_Memoizes(t *testing.T) {
	inner := &countingSource{text: "x"}
	cached := NewCachedSource(inner)

	for i := 0; i < 3; i++ {
		assert.Equal(t, "x", cached.Source())
	}
	assert.Equal(t, 1, inner.calls)
}

type countingSource struct {
	text  string
	calls int
}

func (c *countingSource) Source() string { return c.text }

func (c *countingSource) SourceAndMap() (string, string) {
	c.calls++
	return c.text, ""
}
