// Package rdflist materializes RDF collections (rdf:first / rdf:rest chains)
// into ordered term sequences keyed by their head node.
package rdflist

import (
	"github.com/knakk/rdf"

	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

var (
	rdfFirst = term.MustIRI(shacl.RDFFirst)
	rdfRest  = term.MustIRI(shacl.RDFRest)
	rdfNil   = term.MustIRI(shacl.RDFNil)
)

// Reason describes why a list chain is broken.
type Reason string

// Anomaly reasons.
const (
	ReasonMissingFirst Reason = "missing rdf:first"
	ReasonMissingRest  Reason = "missing rdf:rest"
	ReasonCycle        Reason = "cycle"
	ReasonNotANode     Reason = "rdf:rest is a literal"
)

// Anomaly reports a broken list. Items holds the elements collected before
// the break.
type Anomaly struct {
	Head   rdf.Term
	Reason Reason
	Items  int
}

// Options controls extraction.
type Options struct {
	// Remove deletes every consumed rdf:first and rdf:rest triple.
	Remove bool
}

type cellRef struct {
	head   string
	offset int
}

// Lists maps list heads to their elements.
type Lists struct {
	heads []rdf.Term
	items map[string][]rdf.Term
	cells map[string]cellRef
}

// Lookup returns the elements of the list starting at head. rdf:nil is the
// empty list. A cell in the middle of a known list yields its tail. The
// second result is false when head is not a list node.
func (l *Lists) Lookup(head rdf.Term) ([]rdf.Term, bool) {
	if head == nil {
		return nil, false
	}
	if term.Equal(head, rdfNil) {
		return []rdf.Term{}, true
	}
	if l == nil {
		return nil, false
	}
	k := term.Key(head)
	if items, ok := l.items[k]; ok {
		return items, true
	}
	if ref, ok := l.cells[k]; ok {
		return l.items[ref.head][ref.offset:], true
	}
	return nil, false
}

// Heads returns the list heads in discovery order.
func (l *Lists) Heads() []rdf.Term {
	if l == nil {
		return nil
	}
	return append([]rdf.Term(nil), l.heads...)
}

// Len returns the number of lists.
func (l *Lists) Len() int {
	if l == nil {
		return 0
	}
	return len(l.heads)
}

// Extract walks every list in graph (nil means all graphs). Broken chains
// keep the elements collected up to the break and are reported as
// anomalies.
func Extract(ds *storage.Dataset, graph rdf.Term, opts Options) (*Lists, []Anomaly) {
	lists := &Lists{
		items: make(map[string][]rdf.Term),
		cells: make(map[string]cellRef),
	}
	cells := ds.Subjects(rdfFirst, nil, graph)

	restTargets := make(map[string]bool)
	for _, q := range ds.Match(nil, rdfRest, nil, graph) {
		restTargets[term.Key(q.Object)] = true
	}

	var anomalies []Anomaly
	var consumed []storage.Quad
	walk := func(head rdf.Term) {
		items, used, anomaly := follow(ds, graph, head, lists)
		k := term.Key(head)
		lists.heads = append(lists.heads, head)
		lists.items[k] = items
		consumed = append(consumed, used...)
		if anomaly != nil {
			anomalies = append(anomalies, *anomaly)
		}
	}

	for _, cell := range cells {
		if !restTargets[term.Key(cell)] {
			walk(cell)
		}
	}
	// Cells left unvisited only belong to pure cycles.
	for _, cell := range cells {
		if _, seen := lists.cells[term.Key(cell)]; !seen {
			walk(cell)
		}
	}

	if opts.Remove {
		for _, q := range consumed {
			ds.Remove(q)
		}
	}
	return lists, anomalies
}

func follow(ds *storage.Dataset, graph, head rdf.Term, lists *Lists) ([]rdf.Term, []storage.Quad, *Anomaly) {
	headKey := term.Key(head)
	items := []rdf.Term{}
	var used []storage.Quad
	seen := make(map[string]bool)
	broken := func(r Reason) ([]rdf.Term, []storage.Quad, *Anomaly) {
		return items, used, &Anomaly{Head: head, Reason: r, Items: len(items)}
	}

	cur := head
	for !term.Equal(cur, rdfNil) {
		if !term.IsResource(cur) {
			return broken(ReasonNotANode)
		}
		k := term.Key(cur)
		if seen[k] {
			return broken(ReasonCycle)
		}
		seen[k] = true
		if _, owned := lists.cells[k]; !owned {
			lists.cells[k] = cellRef{head: headKey, offset: len(items)}
		}

		firsts := ds.Match(cur, rdfFirst, nil, graph)
		if len(firsts) == 0 {
			return broken(ReasonMissingFirst)
		}
		items = append(items, firsts[0].Object)
		used = append(used, firsts...)

		rests := ds.Match(cur, rdfRest, nil, graph)
		if len(rests) == 0 {
			return broken(ReasonMissingRest)
		}
		used = append(used, rests...)
		cur = rests[0].Object
	}
	return items, used, nil
}
