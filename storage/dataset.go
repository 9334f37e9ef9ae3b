// Package storage provides the in-memory quad store the resolver reads from
// and the binder writes to.
//
// A Dataset keeps quads in insertion order. Match results are always returned
// in that order, which is what lets shape declaration order survive loading.
package storage

import (
	"github.com/knakk/rdf"

	"github.com/c360studio/semform/term"
)

// Well-known graph names used by the loader.
var (
	// ShapesGraph holds the shapes document.
	ShapesGraph = term.MustIRI("urn:semform:graph:shapes")
	// DataGraph holds the data being edited.
	DataGraph = term.MustIRI("urn:semform:graph:data")
	// InstancesGraph holds class instances supplied by an instance provider.
	InstancesGraph = term.MustIRI("urn:semform:graph:instances")
)

// Quad is one triple in a named graph. A nil Graph is the default graph.
type Quad struct {
	Subject   rdf.Term
	Predicate rdf.Term
	Object    rdf.Term
	Graph     rdf.Term
}

// Key returns the canonical key of the quad.
func (q Quad) Key() string {
	return term.Key(q.Subject) + " " + term.Key(q.Predicate) + " " + term.Key(q.Object) + " " + term.Key(q.Graph)
}

// Dataset is an ordered, de-duplicating quad store. It is not safe for
// concurrent mutation; a resolution pass owns its dataset.
type Dataset struct {
	quads []*Quad // nil entries are removed quads
	pos   map[string]int
	bySub map[string][]int
	byObj map[string][]int
	byPrd map[string][]int
	live  int
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		pos:   make(map[string]int),
		bySub: make(map[string][]int),
		byObj: make(map[string][]int),
		byPrd: make(map[string][]int),
	}
}

// Add inserts q. It returns false when the quad already exists and
// ErrIncompleteQuad when a required term is nil.
func (d *Dataset) Add(q Quad) (bool, error) {
	if q.Subject == nil || q.Predicate == nil || q.Object == nil {
		return false, ErrIncompleteQuad
	}
	k := q.Key()
	if _, ok := d.pos[k]; ok {
		return false, nil
	}
	i := len(d.quads)
	cp := q
	d.quads = append(d.quads, &cp)
	d.pos[k] = i
	d.bySub[term.Key(q.Subject)] = append(d.bySub[term.Key(q.Subject)], i)
	d.byObj[term.Key(q.Object)] = append(d.byObj[term.Key(q.Object)], i)
	d.byPrd[term.Key(q.Predicate)] = append(d.byPrd[term.Key(q.Predicate)], i)
	d.live++
	return true, nil
}

// AddTriple inserts (s, p, o) into graph g, ignoring duplicates.
func (d *Dataset) AddTriple(s, p, o, g rdf.Term) bool {
	added, err := d.Add(Quad{Subject: s, Predicate: p, Object: o, Graph: g})
	return err == nil && added
}

// AddAll inserts every quad, skipping duplicates and incomplete quads. It
// returns the number of quads added.
func (d *Dataset) AddAll(quads []Quad) int {
	n := 0
	for _, q := range quads {
		if ok, err := d.Add(q); err == nil && ok {
			n++
		}
	}
	return n
}

// Remove deletes q and reports whether it was present.
func (d *Dataset) Remove(q Quad) bool {
	k := q.Key()
	i, ok := d.pos[k]
	if !ok {
		return false
	}
	delete(d.pos, k)
	d.quads[i] = nil
	d.live--
	return true
}

// Len returns the number of quads.
func (d *Dataset) Len() int {
	return d.live
}

// Match returns every quad matching the pattern in insertion order. A nil
// argument is a wildcard.
func (d *Dataset) Match(s, p, o, g rdf.Term) []Quad {
	var out []Quad
	d.each(s, p, o, g, func(q *Quad) bool {
		out = append(out, *q)
		return true
	})
	return out
}

// Count returns the number of quads matching the pattern.
func (d *Dataset) Count(s, p, o, g rdf.Term) int {
	n := 0
	d.each(s, p, o, g, func(*Quad) bool {
		n++
		return true
	})
	return n
}

// Has reports whether any quad matches the pattern.
func (d *Dataset) Has(s, p, o, g rdf.Term) bool {
	found := false
	d.each(s, p, o, g, func(*Quad) bool {
		found = true
		return false
	})
	return found
}

// One returns the first quad matching the pattern, or ErrNotFound.
func (d *Dataset) One(s, p, o, g rdf.Term) (Quad, error) {
	var out *Quad
	d.each(s, p, o, g, func(q *Quad) bool {
		out = q
		return false
	})
	if out == nil {
		return Quad{}, ErrNotFound
	}
	return *out, nil
}

// Objects returns the distinct objects of (s, p, ?, g) in insertion order.
func (d *Dataset) Objects(s, p, g rdf.Term) []rdf.Term {
	seen := make(map[string]bool)
	var out []rdf.Term
	d.each(s, p, nil, g, func(q *Quad) bool {
		if k := term.Key(q.Object); !seen[k] {
			seen[k] = true
			out = append(out, q.Object)
		}
		return true
	})
	return out
}

// Subjects returns the distinct subjects of (?, p, o, g) in insertion order.
func (d *Dataset) Subjects(p, o, g rdf.Term) []rdf.Term {
	seen := make(map[string]bool)
	var out []rdf.Term
	d.each(nil, p, o, g, func(q *Quad) bool {
		if k := term.Key(q.Subject); !seen[k] {
			seen[k] = true
			out = append(out, q.Subject)
		}
		return true
	})
	return out
}

// Graphs returns the distinct graph names in insertion order. The default
// graph is reported as nil.
func (d *Dataset) Graphs() []rdf.Term {
	seen := make(map[string]bool)
	var out []rdf.Term
	d.each(nil, nil, nil, nil, func(q *Quad) bool {
		if k := term.Key(q.Graph); !seen[k] {
			seen[k] = true
			out = append(out, q.Graph)
		}
		return true
	})
	return out
}

// Clone returns an independent copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	c := NewDataset()
	d.each(nil, nil, nil, nil, func(q *Quad) bool {
		_, _ = c.Add(*q)
		return true
	})
	return c
}

func (d *Dataset) each(s, p, o, g rdf.Term, fn func(*Quad) bool) {
	candidates, indexed := d.candidates(s, p, o)
	visit := func(q *Quad) bool {
		if q == nil {
			return true
		}
		if (s != nil && !term.Equal(s, q.Subject)) ||
			(p != nil && !term.Equal(p, q.Predicate)) ||
			(o != nil && !term.Equal(o, q.Object)) ||
			(g != nil && !term.Equal(g, q.Graph)) {
			return true
		}
		return fn(q)
	}
	if indexed {
		for _, i := range candidates {
			if !visit(d.quads[i]) {
				return
			}
		}
		return
	}
	for _, q := range d.quads {
		if !visit(q) {
			return
		}
	}
}

// candidates picks the smallest index for the bound positions. Index slices
// are ascending, so iterating one preserves insertion order.
func (d *Dataset) candidates(s, p, o rdf.Term) ([]int, bool) {
	var best []int
	indexed := false
	consider := func(t rdf.Term, idx map[string][]int) {
		if t == nil {
			return
		}
		list := idx[term.Key(t)]
		if !indexed || len(list) < len(best) {
			best, indexed = list, true
		}
	}
	consider(s, d.bySub)
	consider(o, d.byObj)
	consider(p, d.byPrd)
	return best, indexed
}
