package loader

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

const shapesTTL = `@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix ex: <http://example.org/> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .

ex:Shapes owl:imports <http://example.org/vocab> .
ex:PersonShape a sh:NodeShape ;
  sh:targetClass ex:Person ;
  sh:property [ sh:path ex:name ] .
`

const dataTTL = `@prefix ex: <http://example.org/> .
ex:alice a ex:Person ; ex:name "Alice" ; ex:knows [ ex:name "Bob" ] .
`

const vocabTTL = `@prefix ex: <http://example.org/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
ex:Person rdfs:label "Person"@en .
`

func TestLoadSeparatesGraphs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shapes.ttl"), shapesTTL)
	writeFile(t, filepath.Join(dir, "data.ttl"), dataTTL)
	writeFile(t, filepath.Join(dir, "onto", "vocab.ttl"), vocabTTL)

	l := New(Options{})
	ds, err := l.Load(context.Background(), Sources{
		Shapes:  []string{filepath.Join(dir, "shapes.ttl")},
		Data:    []string{filepath.Join(dir, "data.ttl")},
		Imports: []string{filepath.Join(dir, "onto", "*.ttl")},
	})
	require.NoError(t, err)

	person := term.MustIRI("http://example.org/PersonShape")
	assert.True(t, ds.Has(person, nil, nil, storage.ShapesGraph))
	assert.False(t, ds.Has(person, nil, nil, storage.DataGraph))
	assert.True(t, ds.Has(term.MustIRI("http://example.org/alice"), nil, nil, storage.DataGraph))

	importGraph := term.MustIRI(FileIRI(filepath.Join(dir, "onto", "vocab.ttl")))
	assert.True(t, ds.Has(nil, term.MustIRI(shacl.RDFSLabel), nil, importGraph))
}

func TestLoadScopesBlankNodes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shapes.ttl"), "@prefix ex: <http://example.org/> .\n_:b0 ex:p \"shape\" .\n")
	writeFile(t, filepath.Join(dir, "data.ttl"), "@prefix ex: <http://example.org/> .\n_:b0 ex:p \"data\" .\n")

	ds, err := New(Options{}).Load(context.Background(), Sources{
		Shapes: []string{filepath.Join(dir, "shapes.ttl")},
		Data:   []string{filepath.Join(dir, "data.ttl")},
	})
	require.NoError(t, err)
	assert.Len(t, ds.Subjects(term.MustIRI("http://example.org/p"), nil, nil), 2)
}

func TestLoadFollowsImports(t *testing.T) {
	dir := t.TempDir()
	vocab := FileIRI(filepath.Join(dir, "vocab.ttl"))
	extra := FileIRI(filepath.Join(dir, "extra.ttl"))
	writeFile(t, filepath.Join(dir, "shapes.ttl"), "<http://example.org/s> <"+shacl.OWLImports+"> <"+vocab+"> .\n")
	writeFile(t, filepath.Join(dir, "vocab.ttl"), vocabTTL+"<http://example.org/v> <"+shacl.OWLImports+"> <"+extra+"> .\n")
	writeFile(t, filepath.Join(dir, "extra.ttl"), "<http://example.org/Dog> <"+shacl.RDFSLabel+"> \"Dog\" .\n")

	ds, err := New(Options{FollowImports: true}).Load(context.Background(), Sources{
		Shapes: []string{filepath.Join(dir, "shapes.ttl")},
	})
	require.NoError(t, err)

	label := term.MustIRI(shacl.RDFSLabel)
	assert.True(t, ds.Has(term.MustIRI("http://example.org/Person"), label, nil, term.MustIRI(vocab)))
	assert.True(t, ds.Has(term.MustIRI("http://example.org/Dog"), label, nil, term.MustIRI(extra)))
}

func TestLoadSkipsUnfetchableImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shapes.ttl"), `@prefix owl: <http://www.w3.org/2002/07/owl#> .
<http://example.org/s> owl:imports <https://example.org/remote.ttl> .
`)
	ds, err := New(Options{FollowImports: true}).Load(context.Background(), Sources{
		Shapes: []string{filepath.Join(dir, "shapes.ttl")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
}

func TestLoadErrors(t *testing.T) {
	_, err := New(Options{}).Load(context.Background(), Sources{})
	assert.Error(t, err)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.ttl"), "this is not turtle")
	_, err = New(Options{}).Load(context.Background(), Sources{Shapes: []string{filepath.Join(dir, "bad.ttl")}})
	assert.Error(t, err)

	writeFile(t, filepath.Join(dir, "ok.ttl"), shapesTTL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(Options{}).Load(ctx, Sources{Shapes: []string{filepath.Join(dir, "ok.ttl")}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseString(t *testing.T) {
	quads, err := ParseString(dataTTL, FormatTurtle, storage.DataGraph)
	require.NoError(t, err)
	assert.Len(t, quads, 4)
	for _, q := range quads {
		assert.True(t, term.Equal(storage.DataGraph, q.Graph))
	}

	_, err = ParseString("<http://a> <http://b> <http://c> .\n", FormatNTriples, nil)
	require.NoError(t, err)
}

func TestParseNumberAtEndOfLine(t *testing.T) {
	src := `@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix ex: <http://example.org/> .
ex:S sh:property [
  sh:path ex:p ;
  sh:maxCount 1
] , [
  sh:path ex:q ; sh:minCount 0 ;
  sh:description "limit 2" # at most 3
] .
`
	quads, err := ParseString(src, FormatTurtle, storage.ShapesGraph)
	require.NoError(t, err)
	assert.Len(t, quads, 7)

	var maxCount, desc string
	for _, q := range quads {
		switch term.IRIValue(q.Predicate) {
		case shacl.SH + "maxCount":
			maxCount = term.Value(q.Object)
		case shacl.SH + "description":
			desc = term.Value(q.Object)
		}
	}
	assert.Equal(t, "1", maxCount)
	assert.Equal(t, "limit 2", desc)
}

func TestPadNumbers(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sh:maxCount 1\n]", "sh:maxCount 1 \n]"},
		{"sh:order 2.5\r\n", "sh:order 2.5 \r\n"},
		{"1\t;", "1 \t;"},
		{"ex:a ex:b ex:c .\n", "ex:a ex:b ex:c .\n"},
		{`"a 1` + "\n" + `b"`, `"a 1` + "\n" + `b"`},
		{`"""x 1` + "\n" + `y"""` + " 2\n", `"""x 1` + "\n" + `y"""` + " 2 \n"},
		{"<http://x/1\n> 3\n", "<http://x/1\n> 3 \n"},
		{"# count 1\n4\n", "# count 1\n4 \n"},
		{`"esc \" 1` + "\n" + `"`, `"esc \" 1` + "\n" + `"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(padNumbers([]byte(tt.in))), "input %q", tt.in)
	}
}

func TestFormats(t *testing.T) {
	f, err := FormatFromPath("x/Y.TTL")
	require.NoError(t, err)
	assert.Equal(t, FormatTurtle, f)
	_, err = FormatFromPath("x.json")
	assert.Error(t, err)

	f, err = ParseFormat("application/rdf+xml")
	require.NoError(t, err)
	assert.Equal(t, FormatRDFXML, f)
	_, err = ParseFormat("jsonld")
	assert.Error(t, err)
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ttl"), vocabTTL)
	f := FileFetcher{BaseDir: dir}

	for _, iri := range []string{"a.ttl", FileIRI(filepath.Join(dir, "a.ttl"))} {
		rc, format, err := f.Fetch(context.Background(), iri)
		require.NoError(t, err, iri)
		assert.Equal(t, FormatTurtle, format)
		b, _ := io.ReadAll(rc)
		rc.Close()
		assert.True(t, strings.Contains(string(b), "Person"))
	}

	_, _, err := f.Fetch(context.Background(), "https://example.org/x.ttl")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestCachedProviderDeduplicates(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, class string) ([]storage.Quad, error) {
		calls.Add(1)
		<-release
		return []storage.Quad{{
			Subject:   term.MustIRI("http://example.org/rex"),
			Predicate: term.MustIRI(shacl.RDFType),
			Object:    term.MustIRI(class),
		}}, nil
	}
	p, err := NewCachedProvider(8, fetch, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quads, err := p.Instances(context.Background(), "http://example.org/Dog")
			assert.NoError(t, err)
			assert.Len(t, quads, 1)
		}()
	}
	close(release)
	wg.Wait()

	quads, err := p.Instances(context.Background(), "http://example.org/Dog")
	require.NoError(t, err)
	quads[0].Graph = storage.InstancesGraph

	again, err := p.Instances(context.Background(), "http://example.org/Dog")
	require.NoError(t, err)
	assert.Nil(t, again[0].Graph, "callers must not share the cached slice")

	hits, misses := p.Stats()
	assert.Equal(t, int64(1), misses)
	assert.GreaterOrEqual(t, hits, int64(2))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedProviderErrors(t *testing.T) {
	_, err := NewCachedProvider(8, nil, nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	p, err := NewCachedProvider(8, func(context.Context, string) ([]storage.Quad, error) { return nil, boom }, nil)
	require.NoError(t, err)
	_, err = p.Instances(context.Background(), "http://example.org/C")
	assert.ErrorIs(t, err, boom)
}

func TestDirectoryInstances(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Dog.ttl"), `@prefix ex: <http://example.org/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
ex:rex a ex:Dog ; rdfs:label "Rex" .
`)
	fetch := DirectoryInstances(dir)

	quads, err := fetch(context.Background(), "http://example.org/Dog")
	require.NoError(t, err)
	assert.Len(t, quads, 2)

	quads, err = fetch(context.Background(), "http://example.org/vocab#Cat")
	require.NoError(t, err)
	assert.Empty(t, quads)
}
