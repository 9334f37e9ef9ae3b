package storage

import (
	"testing"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semform/term"
)

func iri(s string) rdf.IRI { return term.MustIRI("http://example.org/" + s) }

func TestDatasetAddDeduplicates(t *testing.T) {
	ds := NewDataset()
	q := Quad{Subject: iri("a"), Predicate: iri("p"), Object: term.PlainLiteral("x"), Graph: DataGraph}

	added, err := ds.Add(q)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = ds.Add(q)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, ds.Len())

	// Same triple in another graph is a different quad.
	q.Graph = ShapesGraph
	added, err = ds.Add(q)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 2, ds.Len())
}

func TestDatasetAddRejectsIncomplete(t *testing.T) {
	ds := NewDataset()
	_, err := ds.Add(Quad{Subject: iri("a"), Predicate: iri("p")})
	assert.ErrorIs(t, err, ErrIncompleteQuad)
	assert.Equal(t, 0, ds.Len())
}

func TestDatasetMatchPreservesInsertionOrder(t *testing.T) {
	ds := NewDataset()
	for _, name := range []string{"c", "a", "b"} {
		ds.AddTriple(iri("s"), iri("p"), iri(name), ShapesGraph)
	}
	ds.AddTriple(iri("t"), iri("p"), iri("z"), ShapesGraph)

	got := ds.Objects(iri("s"), iri("p"), nil)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{
		term.IRIValue(got[0])[len("http://example.org/"):],
		term.IRIValue(got[1])[len("http://example.org/"):],
		term.IRIValue(got[2])[len("http://example.org/"):],
	})

	assert.Len(t, ds.Match(nil, iri("p"), nil, nil), 4)
	assert.Len(t, ds.Match(nil, nil, nil, DataGraph), 0)
	assert.Equal(t, 1, ds.Count(nil, nil, iri("z"), ShapesGraph))
}

func TestDatasetRemove(t *testing.T) {
	ds := NewDataset()
	q := Quad{Subject: iri("a"), Predicate: iri("p"), Object: iri("b")}
	ds.AddTriple(q.Subject, q.Predicate, q.Object, nil)
	ds.AddTriple(iri("a"), iri("p"), iri("c"), nil)

	assert.True(t, ds.Remove(q))
	assert.False(t, ds.Remove(q))
	assert.Equal(t, 1, ds.Len())
	assert.False(t, ds.Has(iri("a"), iri("p"), iri("b"), nil))

	// Re-adding after removal appends at the end.
	assert.True(t, ds.AddTriple(q.Subject, q.Predicate, q.Object, nil))
	objs := ds.Objects(iri("a"), iri("p"), nil)
	require.Len(t, objs, 2)
	assert.True(t, term.Equal(iri("b"), objs[1]))
}

func TestDatasetOne(t *testing.T) {
	ds := NewDataset()
	_, err := ds.One(iri("a"), nil, nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	ds.AddTriple(iri("a"), iri("p"), term.PlainLiteral("1"), nil)
	ds.AddTriple(iri("a"), iri("p"), term.PlainLiteral("2"), nil)
	q, err := ds.One(iri("a"), iri("p"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", q.Object.String())
}

func TestDatasetSubjectsGraphsClone(t *testing.T) {
	ds := NewDataset()
	ds.AddTriple(iri("a"), iri("type"), iri("C"), DataGraph)
	ds.AddTriple(iri("b"), iri("type"), iri("C"), ShapesGraph)
	ds.AddTriple(iri("a"), iri("type"), iri("C"), ShapesGraph)

	subs := ds.Subjects(iri("type"), iri("C"), nil)
	require.Len(t, subs, 2)
	assert.Len(t, ds.Graphs(), 2)

	c := ds.Clone()
	c.AddTriple(iri("x"), iri("y"), iri("z"), nil)
	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 4, c.Len())
}
