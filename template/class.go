package template

import (
	"log/slog"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/diagnostic"
	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/term"
)

// resolveClass gives a sh:class field its range. A node shape targeting the
// class makes the field node-typed; otherwise the known instances of the
// class become its options.
func (r *Resolver) resolveClass(p *PropertyTemplate) {
	shapes := r.ShapesForClass(p.Class)
	if len(shapes) > 0 {
		if len(shapes) > 1 {
			r.report(diagnostic.AmbiguousRoot, p.Class, "%d node shapes target class %s; using %s",
				len(shapes), term.Key(p.Class), term.Key(shapes[0]))
		}
		p.ExtendedShapes = appendNode(p.ExtendedShapes, r.Node(shapes[0]))
		return
	}
	if p.In != nil {
		return
	}
	opts := r.ClassOptions(p.Class)
	if len(opts) == 0 {
		r.report(diagnostic.UnresolvableClass, p.Class,
			"class %s has no target shape and no known instances", term.Key(p.Class))
		return
	}
	p.Options = opts
}

// ClassOptions returns the known instances of class as options. Instances
// are looked up outside the data graph, including subclasses when enabled,
// and fetched from the instance provider when none are loaded.
func (r *Resolver) ClassOptions(class rdf.Term) []Option {
	k := term.Key(class)
	if opts, ok := r.classOptions[k]; ok {
		return opts
	}
	opts := r.instanceOptions(class)
	if len(opts) == 0 && r.provider != nil && term.IsIRI(class) {
		quads, err := r.provider.Instances(r.ctx, term.IRIValue(class))
		if err != nil {
			r.logger.Warn("Class instance provider failed", slog.String("class", k), slog.Any("error", err))
		} else {
			for i := range quads {
				if quads[i].Graph == nil {
					quads[i].Graph = storage.InstancesGraph
				}
			}
			added := r.ds.AddAll(quads)
			r.logger.Debug("Loaded class instances", slog.String("class", k), slog.Int("quads", added))
			opts = r.instanceOptions(class)
		}
	}
	r.classOptions[k] = opts
	return opts
}

func (r *Resolver) instanceOptions(class rdf.Term) []Option {
	classes := []rdf.Term{class}
	if r.subclass {
		classes = append(classes, r.SubClasses(class)...)
	}
	var instances []rdf.Term
	for _, c := range classes {
		for _, q := range r.ds.Match(nil, rdfType, c, nil) {
			if !r.isData(q.Graph) {
				instances = appendTerm(instances, q.Subject)
			}
		}
	}
	opts := make([]Option, 0, len(instances))
	for _, inst := range instances {
		opts = append(opts, Option{Value: inst, Label: r.LabelOf(inst, false)})
	}
	return opts
}

// SubClasses returns the transitive rdfs:subClassOf descendants of class
// declared outside the data graph, nearest first.
func (r *Resolver) SubClasses(class rdf.Term) []rdf.Term {
	seen := map[string]bool{term.Key(class): true}
	var out []rdf.Term
	queue := []rdf.Term{class}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, q := range r.ds.Match(nil, rdfsSubClassOf, c, nil) {
			if r.isData(q.Graph) || seen[term.Key(q.Subject)] {
				continue
			}
			seen[term.Key(q.Subject)] = true
			out = append(out, q.Subject)
			queue = append(queue, q.Subject)
		}
	}
	return out
}

// IsSubClassOf reports whether sub equals super or reaches it through
// rdfs:subClassOf in any graph.
func (r *Resolver) IsSubClassOf(sub, super rdf.Term) bool {
	target := term.Key(super)
	seen := make(map[string]bool)
	queue := []rdf.Term{sub}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		k := term.Key(c)
		if k == target {
			return true
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		queue = append(queue, r.ds.Objects(c, rdfsSubClassOf, nil)...)
	}
	return false
}

// LabelOf returns a display label for t: its rdfs:label by language
// preference, else the compacted IRI, blank node label or lexical form.
// Data graph labels are consulted only when includeData is set.
func (r *Resolver) LabelOf(t rdf.Term, includeData bool) string {
	if term.IsResource(t) {
		var candidates []rdf.Term
		if includeData {
			candidates = r.ds.Objects(t, rdfsLabel, nil)
		} else {
			candidates = r.outsideData(t, rdfsLabel)
		}
		if l := r.pickLabel(candidates); l != "" {
			return l
		}
	}
	if term.IsIRI(t) {
		return term.Compact(term.IRIValue(t), r.prefixes)
	}
	return term.Value(t)
}

func (r *Resolver) outsideData(s, p rdf.Term) []rdf.Term {
	var out []rdf.Term
	for _, q := range r.ds.Match(s, p, nil, nil) {
		if !r.isData(q.Graph) {
			out = append(out, q.Object)
		}
	}
	return out
}

func (r *Resolver) isData(g rdf.Term) bool {
	return term.Equal(g, r.data)
}
