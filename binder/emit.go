package binder

import (
	"github.com/knakk/rdf"

	"github.com/c360studio/semform/codec"
	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/template"
	"github.com/c360studio/semform/term"
)

// ToRDF writes the tree rooted at n into graph of ds and returns the root
// subject. The root always gets its rdf:type; nested nodes are linked and
// typed only when their subtree produced triples. References emit just the
// link. Unbound choices and empty values emit nothing.
func (n *NodeInstance) ToRDF(ds *storage.Dataset, graph rdf.Term) rdf.Term {
	n.emit(ds, graph, true)
	return n.Subject
}

// emit returns the number of triples the subtree added.
func (n *NodeInstance) emit(ds *storage.Dataset, graph rdf.Term, root bool) int {
	before := ds.Len()
	for _, p := range n.Properties {
		p.emit(ds, graph, n.Subject)
	}
	for _, g := range n.Groups {
		switch {
		case g.Property != nil:
			g.Property.emit(ds, graph, n.Subject)
		case g.Node != nil:
			g.Node.emit(ds, graph, false)
		}
	}
	if ds.Len() > before || root {
		if tc := n.Template.TargetClass; tc != nil {
			ds.AddTriple(n.Subject, rdfType, tc, graph)
		}
		if root && n.binder != nil && n.binder.opts.ConformsTo && term.IsIRI(n.Template.ID) {
			ds.AddTriple(n.Subject, dctermsConformsTo, n.Template.ID, graph)
		}
	}
	return ds.Len() - before
}

func (p *PropertyInstance) emit(ds *storage.Dataset, graph, subject rdf.Term) {
	for _, v := range p.Values {
		if v.Choice != nil && !v.Choice.Bound() {
			continue
		}
		switch {
		case v.Ref != nil:
			ds.AddTriple(subject, p.Template.Path, v.Ref.Subject, graph)
		case v.Node != nil:
			if v.Node.emit(ds, graph, false) > 0 {
				ds.AddTriple(subject, p.Template.Path, v.Node.Subject, graph)
			}
		default:
			if t, ok := codec.Encode(v.Value, hints(v.Template)); ok {
				ds.AddTriple(subject, p.Template.Path, t, graph)
			}
		}
	}
}

func hints(t *template.PropertyTemplate) codec.Hints {
	return codec.Hints{
		Datatype:        t.DatatypeIRI(),
		NodeKind:        t.NodeKindIRI(),
		Class:           t.Class != nil,
		LanguageChooser: t.HasLanguageChooser(),
		Required:        t.Required(),
	}
}

// Find returns the node instance for subject in the tree, or nil.
func (n *NodeInstance) Find(subject rdf.Term) *NodeInstance {
	if n == nil {
		return nil
	}
	if term.Equal(n.Subject, subject) {
		return n
	}
	for _, p := range n.Properties {
		for _, v := range p.Values {
			if found := v.Node.Find(subject); found != nil {
				return found
			}
		}
	}
	for _, g := range n.Groups {
		if g.Property != nil {
			for _, v := range g.Property.Values {
				if found := v.Node.Find(subject); found != nil {
					return found
				}
			}
		}
		if found := g.Node.Find(subject); found != nil {
			return found
		}
	}
	return nil
}

// Walk calls fn for every node instance in the tree, parents first.
func (n *NodeInstance) Walk(fn func(*NodeInstance)) {
	if n == nil {
		return
	}
	fn(n)
	for _, p := range n.Properties {
		for _, v := range p.Values {
			v.Node.Walk(fn)
		}
	}
	for _, g := range n.Groups {
		if g.Property != nil {
			for _, v := range g.Property.Values {
				v.Node.Walk(fn)
			}
		}
		g.Node.Walk(fn)
	}
}
