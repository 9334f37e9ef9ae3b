package binder_test

import (
	"context"
	"strings"
	"testing"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semform/binder"
	"github.com/c360studio/semform/diagnostic"
	"github.com/c360studio/semform/loader"
	"github.com/c360studio/semform/rdflist"
	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/template"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

const prefixes = `@prefix sh: <http://www.w3.org/ns/shacl#> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .
@prefix ex: <http://example.org/> .
`

func ex(local string) rdf.IRI { return term.MustIRI("http://example.org/" + local) }

var rdfType = term.MustIRI(shacl.RDFType)

type fixture struct {
	r     *template.Resolver
	diags *diagnostic.List
}

func newFixture(t *testing.T, shapes, data string) *fixture {
	t.Helper()
	ds := storage.NewDataset()
	quads, err := loader.ParseString(prefixes+shapes, loader.FormatTurtle, storage.ShapesGraph)
	require.NoError(t, err)
	ds.AddAll(quads)
	if data != "" {
		quads, err = loader.ParseString(prefixes+data, loader.FormatTurtle, storage.DataGraph)
		require.NoError(t, err)
		ds.AddAll(quads)
	}
	lists, anomalies := rdflist.Extract(ds, storage.ShapesGraph, rdflist.Options{})
	require.Empty(t, anomalies)

	diags := diagnostic.NewList(nil)
	r := template.NewResolver(context.Background(), ds, template.Options{
		Lists:       lists,
		Languages:   []string{"en"},
		Diagnostics: diags,
	})
	return &fixture{r: r, diags: diags}
}

func (f *fixture) bind(t *testing.T, shape, subject rdf.Term, opts binder.Options) *binder.NodeInstance {
	t.Helper()
	opts.Languages = []string{"en"}
	n := binder.New(f.r, opts).Bind(f.r.Node(shape), subject)
	require.NotNil(t, n)
	return n
}

func emit(n *binder.NodeInstance) *storage.Dataset {
	out := storage.NewDataset()
	n.ToRDF(out, storage.DataGraph)
	return out
}

func TestInOptionSelectedAndReEmitted(t *testing.T) {
	f := newFixture(t, `
ex:S a sh:NodeShape ; sh:property [ sh:path ex:p ; sh:in ( 1 2 3 ) ] .
`, `ex:x ex:p 2 .`)

	n := f.bind(t, ex("S"), ex("x"), binder.Options{})
	p := n.Property("http://example.org/p")
	require.NotNil(t, p)
	require.Len(t, p.Values, 1)
	assert.Equal(t, 1, p.Values[0].SelectedOption())

	out := emit(n)
	assert.Equal(t, 1, out.Len())
	assert.True(t, out.Has(ex("x"), ex("p"), term.TypedLiteral("2", shacl.XSDInteger), storage.DataGraph))

	require.NoError(t, p.Values[0].SelectOption(2))
	out = emit(n)
	assert.True(t, out.Has(ex("x"), ex("p"), term.TypedLiteral("3", shacl.XSDInteger), storage.DataGraph))
}

const petShapes = `
ex:Owner a sh:NodeShape ;
  sh:property [ sh:path ex:pet ; sh:or ( [ sh:class ex:Dog ] [ sh:datatype xsd:integer ] ) ] .
`

func TestOrBranchSelectedByClass(t *testing.T) {
	f := newFixture(t, petShapes, `
ex:o ex:pet ex:rex .
ex:rex a ex:Dog .
`)
	n := f.bind(t, ex("Owner"), ex("o"), binder.Options{})
	v := n.Property("http://example.org/pet").Values[0]
	require.NotNil(t, v.Choice)
	assert.Equal(t, binder.ChoiceOr, v.Choice.Kind)
	assert.Equal(t, 0, v.Choice.Selected)
	assert.Equal(t, ex("Dog"), v.Choice.Branch().Class)

	out := emit(n)
	assert.True(t, out.Has(ex("o"), ex("pet"), ex("rex"), storage.DataGraph))
}

func TestOrBranchSelectedByDatatype(t *testing.T) {
	f := newFixture(t, petShapes, `ex:o ex:pet 7 .`)
	n := f.bind(t, ex("Owner"), ex("o"), binder.Options{})
	v := n.Property("http://example.org/pet").Values[0]
	require.NotNil(t, v.Choice)
	assert.Equal(t, 1, v.Choice.Selected)
	assert.Equal(t, shacl.XSDInteger, v.Template.DatatypeIRI())

	out := emit(n)
	assert.True(t, out.Has(ex("o"), ex("pet"), term.TypedLiteral("7", shacl.XSDInteger), storage.DataGraph))
}

func TestXoneBranchesMatchLikeOr(t *testing.T) {
	f := newFixture(t, `
ex:Owner a sh:NodeShape ;
  sh:property [ sh:path ex:pet ; sh:xone ( [ sh:class ex:Dog ] [ sh:datatype xsd:integer ] ) ] .
`, `
ex:o ex:pet ex:rex , 7 .
ex:rex a ex:Dog .
`)
	n := f.bind(t, ex("Owner"), ex("o"), binder.Options{})
	p := n.Property("http://example.org/pet")
	require.Len(t, p.Values, 2)

	selected := make(map[int]bool)
	for _, v := range p.Values {
		require.NotNil(t, v.Choice)
		assert.Equal(t, binder.ChoiceXone, v.Choice.Kind)
		require.True(t, v.Choice.Bound())
		selected[v.Choice.Selected] = true
		if term.Equal(ex("rex"), v.Term) {
			assert.Equal(t, 0, v.Choice.Selected)
		} else {
			assert.Equal(t, 1, v.Choice.Selected)
		}
	}
	assert.Len(t, selected, 2)

	out := emit(n)
	assert.Equal(t, 2, out.Len())
	assert.True(t, out.Has(ex("o"), ex("pet"), ex("rex"), storage.DataGraph))
	assert.True(t, out.Has(ex("o"), ex("pet"), term.TypedLiteral("7", shacl.XSDInteger), storage.DataGraph))
}

func TestUnboundChoiceEmitsNothing(t *testing.T) {
	f := newFixture(t, petShapes, "")
	n := f.bind(t, ex("Owner"), nil, binder.Options{})
	p := n.Property("http://example.org/pet")
	require.Empty(t, p.Values)

	v, err := p.AddValue()
	require.NoError(t, err)
	require.NotNil(t, v.Choice)
	assert.False(t, v.Choice.Bound())
	assert.Zero(t, emit(n).Len())

	require.NoError(t, v.Choice.Select(1))
	v.Value.Lexical = "7"
	out := emit(n)
	assert.True(t, out.Has(n.Subject, ex("pet"), term.TypedLiteral("7", shacl.XSDInteger), storage.DataGraph))

	assert.ErrorIs(t, v.Choice.Select(5), binder.ErrNoSuchBranch)
}

const personShapes = `
ex:Person a sh:NodeShape ;
  sh:property [ sh:path ex:name ; sh:datatype xsd:string ] ,
              [ sh:path ex:knows ; sh:node ex:Person ] .
`

const knowsData = `
ex:a ex:name "A" ; ex:knows ex:b .
ex:b ex:name "B" ; ex:knows ex:a .
`

func TestRecursionGuardEmitsReference(t *testing.T) {
	f := newFixture(t, personShapes, knowsData)
	a := f.bind(t, ex("Person"), ex("a"), binder.Options{})

	knows := a.Property("http://example.org/knows").Values
	require.Len(t, knows, 1)
	b := knows[0].Node
	require.NotNil(t, b)
	assert.Equal(t, ex("b"), b.Subject)

	back := b.Property("http://example.org/knows").Values
	require.Len(t, back, 1)
	assert.Nil(t, back[0].Node)
	require.NotNil(t, back[0].Ref)
	assert.Equal(t, ex("a"), back[0].Ref.Subject)
	assert.NotEmpty(t, back[0].Ref.Label)

	assert.Same(t, b, a.Find(ex("b")))
	count := 0
	a.Walk(func(*binder.NodeInstance) { count++ })
	assert.Equal(t, 2, count)
}

func TestRoundTrip(t *testing.T) {
	f := newFixture(t, personShapes, knowsData)
	a := f.bind(t, ex("Person"), ex("a"), binder.Options{})

	out := emit(a)
	assert.Equal(t, 4, out.Len())
	for _, q := range f.r.Store().Match(nil, nil, nil, storage.DataGraph) {
		assert.True(t, out.Has(q.Subject, q.Predicate, q.Object, storage.DataGraph), q.Key())
	}
}

func TestFreshInstance(t *testing.T) {
	f := newFixture(t, personShapes, "")
	n := f.bind(t, ex("Person"), nil, binder.Options{})
	assert.True(t, n.Fresh)
	assert.True(t, term.IsBlank(n.Subject))

	name := n.Property("http://example.org/name")
	require.Len(t, name.Values, 1)
	assert.Empty(t, n.Property("http://example.org/knows").Values)
	assert.Zero(t, emit(n).Len())

	name.Values[0].Value.Lexical = "Ada"
	out := emit(n)
	assert.Equal(t, 1, out.Len())
	assert.True(t, out.Has(n.Subject, ex("name"), term.PlainLiteral("Ada"), storage.DataGraph))
}

func TestEmptyNestedNodeIsOmitted(t *testing.T) {
	f := newFixture(t, `
ex:Person a sh:NodeShape ;
  sh:property [ sh:path ex:name ] ,
              [ sh:path ex:address ; sh:node ex:Address ; sh:minCount 1 ] .
ex:Address a sh:NodeShape ; sh:targetClass ex:Place ; sh:property [ sh:path ex:city ] .
`, "")
	n := f.bind(t, ex("Person"), nil, binder.Options{})
	addr := n.Property("http://example.org/address").Values
	require.Len(t, addr, 1)
	require.NotNil(t, addr[0].Node)

	n.Property("http://example.org/name").Values[0].Value.Lexical = "Ada"
	out := emit(n)
	assert.Equal(t, 1, out.Len())

	addr[0].Node.Property("http://example.org/city").Values[0].Value.Lexical = "Bonn"
	out = emit(n)
	assert.True(t, out.Has(n.Subject, ex("address"), addr[0].Node.Subject, storage.DataGraph))
	assert.True(t, out.Has(addr[0].Node.Subject, rdfType, ex("Place"), storage.DataGraph))
	assert.Equal(t, 4, out.Len())
}

func TestFreshNestingStopsAtMaxDepth(t *testing.T) {
	f := newFixture(t, `
ex:Chain a sh:NodeShape ;
  sh:property [ sh:path ex:next ; sh:node ex:Chain ; sh:minCount 1 ] .
`, "")
	n := f.bind(t, ex("Chain"), nil, binder.Options{MaxDepth: 2})

	count := 0
	n.Walk(func(*binder.NodeInstance) { count++ })
	assert.Equal(t, 3, count)
	assert.True(t, f.diags.Has(diagnostic.DepthLimit))
	assert.Zero(t, emit(n).Len())
}

func TestAddAndRemoveRespectCardinality(t *testing.T) {
	f := newFixture(t, `
ex:S a sh:NodeShape ;
  sh:property [ sh:path ex:one ; sh:minCount 1 ; sh:maxCount 1 ] ,
              [ sh:path ex:many ] .
`, "")
	n := f.bind(t, ex("S"), nil, binder.Options{})

	one := n.Property("http://example.org/one")
	require.Len(t, one.Values, 1)
	_, err := one.AddValue()
	assert.ErrorIs(t, err, binder.ErrMaxCount)
	assert.ErrorIs(t, one.RemoveValue(one.Values[0]), binder.ErrMinCount)

	many := n.Property("http://example.org/many")
	v, err := many.AddValue()
	require.NoError(t, err)
	assert.Same(t, many, v.Property())
	require.Len(t, many.Values, 2)
	require.NoError(t, many.RemoveValue(v))
	assert.Len(t, many.Values, 1)
	assert.ErrorIs(t, many.RemoveValue(v), binder.ErrNoSuchValue)
}

func TestNodeLevelOrSelectedFromData(t *testing.T) {
	f := newFixture(t, `
ex:Contact a sh:NodeShape ;
  sh:property [ sh:path ex:name ] ;
  sh:or ( [ sh:path ex:email ] [ sh:path ex:phone ] ) .
`, `ex:c ex:name "C" ; ex:phone "123" .`)
	n := f.bind(t, ex("Contact"), ex("c"), binder.Options{})
	require.Len(t, n.Groups, 1)
	g := n.Groups[0]
	require.Len(t, g.Alternatives, 2)
	assert.Equal(t, 1, g.Selected)
	require.NotNil(t, g.Property)
	require.Len(t, g.Property.Values, 1)

	out := emit(n)
	assert.Equal(t, 2, out.Len())
	assert.True(t, out.Has(ex("c"), ex("phone"), term.PlainLiteral("123"), storage.DataGraph))
}

func TestFindReachesNodeBranchFields(t *testing.T) {
	f := newFixture(t, `
ex:Contact a sh:NodeShape ;
  sh:property [ sh:path ex:name ] ;
  sh:or ( [ sh:path ex:email ] ex:Postal ) .
ex:Postal a sh:NodeShape ;
  sh:property [ sh:path ex:address ; sh:node ex:Address ] .
ex:Address a sh:NodeShape ;
  sh:property [ sh:path ex:city ] .
`, `ex:c ex:name "C" ; ex:address ex:home .
ex:home ex:city "Oslo" .`)
	n := f.bind(t, ex("Contact"), ex("c"), binder.Options{})
	require.Len(t, n.Groups, 1)
	g := n.Groups[0]
	assert.Equal(t, 1, g.Selected)
	require.NotNil(t, g.Node)

	addr := g.Node.Property("http://example.org/address")
	require.NotNil(t, addr)
	require.Len(t, addr.Values, 1)
	home := addr.Values[0].Node
	require.NotNil(t, home)

	assert.Same(t, home, n.Find(ex("home")))
	assert.Same(t, n, n.Find(ex("c")))
	assert.Nil(t, n.Find(ex("nobody")))
}

func TestMintBaseAndConformsTo(t *testing.T) {
	f := newFixture(t, `
ex:Item a sh:NodeShape ; sh:targetClass ex:Thing ; sh:property [ sh:path ex:title ; sh:languageIn ( "de" "en" ) ] .
`, "")
	n := f.bind(t, ex("Item"), nil, binder.Options{MintBase: "http://example.org/item/", ConformsTo: true})
	require.True(t, term.IsIRI(n.Subject))
	assert.True(t, strings.HasPrefix(term.IRIValue(n.Subject), "http://example.org/item/"))

	title := n.Property("http://example.org/title").Values[0]
	assert.Equal(t, "en", title.Value.Language)
	title.Value.Lexical = "Hallo"
	title.Value.Language = "de"

	out := emit(n)
	assert.True(t, out.Has(n.Subject, rdfType, ex("Thing"), storage.DataGraph))
	assert.True(t, out.Has(n.Subject, term.MustIRI(shacl.DCTermsConformsTo), ex("Item"), storage.DataGraph))
	assert.True(t, out.Has(n.Subject, ex("title"), term.LangLiteral("Hallo", "de"), storage.DataGraph))
}
