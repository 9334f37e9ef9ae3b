// Package template resolves SHACL shapes into form templates.
//
// A Resolver belongs to exactly one resolution pass. It memoizes node
// templates by shape id; the placeholder for a shape is cached before its
// parents and fields are resolved, so reference cycles terminate and every
// shape id maps to one NodeTemplate instance for the lifetime of the pass.
//
// Property templates are built from fragments: every property shape that
// shares a path within a node (its own and inherited through sh:node and
// sh:and) is applied in order, later fragments overriding scalar facets of
// earlier ones and extending list facets.
package template

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/diagnostic"
	"github.com/c360studio/semform/rdflist"
	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

var (
	rdfType        = term.MustIRI(shacl.RDFType)
	rdfsLabel      = term.MustIRI(shacl.RDFSLabel)
	rdfsSubClassOf = term.MustIRI(shacl.RDFSSubClassOf)
	rdfLangString  = term.MustIRI(shacl.RDFLangString)
	shNodeShape    = term.MustIRI(shacl.NodeShape)
	shPath         = term.MustIRI(shacl.PredicatePath.IRI())
	shProperty     = term.MustIRI(shacl.PredicateProperty.IRI())
	shTargetClass  = term.MustIRI(shacl.PredicateTargetClass.IRI())
)

// InstanceProvider supplies the extensional instances of a class that the
// loaded graphs do not contain. Returned quads are added to the pass store.
type InstanceProvider interface {
	Instances(ctx context.Context, class string) ([]storage.Quad, error)
}

// Observer receives resolution events, typically for metrics.
type Observer interface {
	TemplateResolved()
	TemplateCacheHit()
}

type nopObserver struct{}

func (nopObserver) TemplateResolved() {}
func (nopObserver) TemplateCacheHit() {}

// Options configures a Resolver.
type Options struct {
	// ShapesGraph and DataGraph default to storage.ShapesGraph and storage.DataGraph.
	ShapesGraph rdf.Term
	DataGraph   rdf.Term
	Lists       *rdflist.Lists
	// Languages orders label selection, most preferred first.
	Languages []string
	Prefixes  map[string]string
	Provider  InstanceProvider
	// Subclasses includes instances of rdfs:subClassOf descendants in class options.
	Subclasses  bool
	Logger      *slog.Logger
	Diagnostics *diagnostic.List
	Observer    Observer
}

// Resolver resolves node and property templates for one pass. It is not
// safe for concurrent use.
type Resolver struct {
	ctx      context.Context
	ds       *storage.Dataset
	shapes   rdf.Term
	data     rdf.Term
	lists    *rdflist.Lists
	langs    []string
	prefixes map[string]string
	provider InstanceProvider
	subclass bool
	logger   *slog.Logger
	diags    *diagnostic.List
	observer Observer

	nodes        map[string]*NodeTemplate
	classOptions map[string][]Option
	reported     map[string]bool
}

// NewResolver creates a resolver over ds. ctx bounds instance provider calls.
func NewResolver(ctx context.Context, ds *storage.Dataset, opts Options) *Resolver {
	r := &Resolver{
		ctx:          ctx,
		ds:           ds,
		shapes:       opts.ShapesGraph,
		data:         opts.DataGraph,
		lists:        opts.Lists,
		langs:        opts.Languages,
		prefixes:     opts.Prefixes,
		provider:     opts.Provider,
		subclass:     opts.Subclasses,
		logger:       opts.Logger,
		diags:        opts.Diagnostics,
		observer:     opts.Observer,
		nodes:        make(map[string]*NodeTemplate),
		classOptions: make(map[string][]Option),
		reported:     make(map[string]bool),
	}
	if r.ctx == nil {
		r.ctx = context.Background()
	}
	if r.shapes == nil {
		r.shapes = storage.ShapesGraph
	}
	if r.data == nil {
		r.data = storage.DataGraph
	}
	if r.prefixes == nil {
		r.prefixes = shacl.DefaultPrefixes()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.diags == nil {
		r.diags = diagnostic.NewList(r.logger)
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	return r
}

// Diagnostics returns the list diagnostics are reported to.
func (r *Resolver) Diagnostics() *diagnostic.List {
	return r.diags
}

// Store returns the dataset being resolved.
func (r *Resolver) Store() *storage.Dataset {
	return r.ds
}

// Node returns the template for shape id, resolving it on first use.
func (r *Resolver) Node(id rdf.Term) *NodeTemplate {
	k := term.Key(id)
	if n, ok := r.nodes[k]; ok {
		r.observer.TemplateCacheHit()
		return n
	}
	n := &NodeTemplate{ID: id, Key: k, resolving: true}
	r.nodes[k] = n

	var names, labels []rdf.Term
	for _, q := range r.ds.Match(id, nil, nil, r.shapes) {
		if term.Equal(q.Predicate, rdfsLabel) {
			labels = append(labels, q.Object)
			continue
		}
		switch shacl.LookupPredicate(term.IRIValue(q.Predicate)) {
		case shacl.PredicateProperty:
			n.Properties = appendTerm(n.Properties, q.Object)
		case shacl.PredicateNode:
			n.ExtendedShapes = appendNode(n.ExtendedShapes, r.Node(q.Object))
		case shacl.PredicateAnd:
			for _, m := range r.list(q.Object, id, "sh:and") {
				n.ExtendedShapes = appendNode(n.ExtendedShapes, r.Node(m))
			}
		case shacl.PredicateOr:
			n.Or = append(n.Or, r.list(q.Object, id, "sh:or")...)
		case shacl.PredicateXone:
			n.Xone = append(n.Xone, r.list(q.Object, id, "sh:xone")...)
		case shacl.PredicateTargetClass:
			if n.TargetClass == nil {
				n.TargetClass = q.Object
			}
		case shacl.PredicateName:
			names = append(names, q.Object)
		}
	}
	n.Label = r.pickLabel(names)
	if n.Label == "" {
		n.Label = r.pickLabel(labels)
	}

	n.Fields = r.fields(n, id)
	n.resolving = false
	r.observer.TemplateResolved()
	r.logger.Debug("Resolved node template", slog.String("shape", k), slog.Int("fields", len(n.Fields)))
	return n
}

// Composite returns a synthetic template extending every shape in ids. It
// serves fields whose values must conform to several node shapes at once.
func (r *Resolver) Composite(ids []rdf.Term) *NodeTemplate {
	if len(ids) == 1 {
		return r.Node(ids[0])
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = term.Key(id)
	}
	k := "composite(" + strings.Join(keys, " ") + ")"
	if n, ok := r.nodes[k]; ok {
		r.observer.TemplateCacheHit()
		return n
	}
	n := &NodeTemplate{Key: k, resolving: true}
	r.nodes[k] = n
	var labels []string
	for _, id := range ids {
		member := r.Node(id)
		n.ExtendedShapes = appendNode(n.ExtendedShapes, member)
		if n.TargetClass == nil {
			n.TargetClass = member.TargetClass
		}
		if member.Label != "" {
			labels = append(labels, member.Label)
		}
	}
	n.Label = strings.Join(labels, " / ")
	n.Fields = r.fields(n, ids...)
	n.resolving = false
	r.observer.TemplateResolved()
	return n
}

// RangeOf returns the nested node template of a node-typed field, or nil.
func (r *Resolver) RangeOf(p *PropertyTemplate) *NodeTemplate {
	switch len(p.ExtendedShapes) {
	case 0:
		return nil
	case 1:
		return p.ExtendedShapes[0]
	}
	ids := make([]rdf.Term, 0, len(p.ExtendedShapes))
	for _, n := range p.ExtendedShapes {
		if n.ID != nil {
			ids = append(ids, n.ID)
		}
	}
	return r.Composite(ids)
}

// Roots returns the node shapes no other shape refers to, in declaration
// order. When every node shape is referenced (a cycle of root candidates)
// all node shapes are returned.
func (r *Resolver) Roots() []rdf.Term {
	candidates := r.nodeShapes()
	referenced := make(map[string]bool)
	for _, q := range r.ds.Match(nil, nil, nil, r.shapes) {
		switch shacl.LookupPredicate(term.IRIValue(q.Predicate)) {
		case shacl.PredicateNode, shacl.PredicateQualifiedValueShape, shacl.PredicateProperty:
			if !term.Equal(q.Subject, q.Object) {
				referenced[term.Key(q.Object)] = true
			}
		case shacl.PredicateAnd, shacl.PredicateOr, shacl.PredicateXone:
			items, _ := r.lists.Lookup(q.Object)
			for _, m := range items {
				referenced[term.Key(m)] = true
			}
		}
	}
	var roots []rdf.Term
	for _, c := range candidates {
		if !referenced[term.Key(c)] {
			roots = append(roots, c)
		}
	}
	if len(roots) == 0 {
		return candidates
	}
	return roots
}

// IsNodeShape reports whether id is declared or used as a node shape.
func (r *Resolver) IsNodeShape(id rdf.Term) bool {
	k := term.Key(id)
	for _, c := range r.nodeShapes() {
		if term.Key(c) == k {
			return true
		}
	}
	return false
}

// ShapesForClass returns the node shapes whose sh:targetClass is class. A
// class that is itself declared a node shape targets itself.
func (r *Resolver) ShapesForClass(class rdf.Term) []rdf.Term {
	out := r.ds.Subjects(shTargetClass, class, r.shapes)
	if r.ds.Has(class, rdfType, shNodeShape, r.shapes) {
		out = appendTerm(out, class)
	}
	return out
}

// nodeShapes lists declared node shapes and untyped shapes that carry
// sh:property or sh:targetClass without a sh:path.
func (r *Resolver) nodeShapes() []rdf.Term {
	var out []rdf.Term
	for _, q := range r.ds.Match(nil, nil, nil, r.shapes) {
		isShape := false
		switch {
		case term.Equal(q.Predicate, rdfType) && term.Equal(q.Object, shNodeShape):
			isShape = true
		case term.Equal(q.Predicate, shProperty), term.Equal(q.Predicate, shTargetClass):
			isShape = !r.ds.Has(q.Subject, shPath, nil, r.shapes)
		}
		if isShape {
			out = appendTerm(out, q.Subject)
		}
	}
	return out
}

type pathGroup struct {
	path   rdf.IRI
	shapes []rdf.Term
}

func (r *Resolver) fields(owner *NodeTemplate, ids ...rdf.Term) []*PropertyTemplate {
	var groups []*pathGroup
	byPath := make(map[string]*pathGroup)
	for _, f := range r.fragments(ids...) {
		path, ok := r.pathOf(f)
		if !ok {
			continue
		}
		g, found := byPath[path.String()]
		if !found {
			g = &pathGroup{path: path}
			byPath[path.String()] = g
			groups = append(groups, g)
		}
		g.shapes = append(g.shapes, f)
	}

	out := make([]*PropertyTemplate, 0, len(groups))
	for _, g := range groups {
		out = append(out, r.Property(g.path, g.shapes, owner))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return orderLess(out[i].Order, out[j].Order)
	})
	return out
}

func orderLess(a, b *float64) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a < *b
}

// fragments collects the property shapes of ids: inherited ones first,
// walking sh:node and sh:and parents depth first, then each shape's own.
func (r *Resolver) fragments(ids ...rdf.Term) []rdf.Term {
	visited := make(map[string]bool)
	var out []rdf.Term
	var walk func(id rdf.Term)
	walk = func(id rdf.Term) {
		k := term.Key(id)
		if visited[k] {
			return
		}
		visited[k] = true
		for _, q := range r.ds.Match(id, nil, nil, r.shapes) {
			switch shacl.LookupPredicate(term.IRIValue(q.Predicate)) {
			case shacl.PredicateNode:
				walk(q.Object)
			case shacl.PredicateAnd:
				for _, m := range r.list(q.Object, id, "sh:and") {
					walk(m)
				}
			}
		}
		for _, p := range r.ds.Objects(id, shProperty, r.shapes) {
			out = appendTerm(out, p)
		}
	}
	for _, id := range ids {
		walk(id)
	}
	return out
}

func (r *Resolver) pathOf(shape rdf.Term) (rdf.IRI, bool) {
	paths := r.ds.Objects(shape, shPath, r.shapes)
	if len(paths) == 0 {
		r.report(diagnostic.MissingPath, shape, "property shape %s has no sh:path", term.Key(shape))
		return rdf.IRI{}, false
	}
	iri, ok := paths[0].(rdf.IRI)
	if !ok {
		r.report(diagnostic.UnsupportedPath, shape, "property shape %s uses a complex path; only predicate paths are supported", term.Key(shape))
		return rdf.IRI{}, false
	}
	return iri, true
}

// list resolves a list reference, reporting a malformed reference when the
// head is not a list.
func (r *Resolver) list(head, owner rdf.Term, what string) []rdf.Term {
	items, ok := r.lists.Lookup(head)
	if !ok {
		r.report(diagnostic.MalformedReference, owner, "%s of %s points at %s, which is not an RDF list", what, term.Key(owner), term.Key(head))
		return nil
	}
	return items
}

// report records a diagnostic once per kind and subject.
func (r *Resolver) report(kind diagnostic.Kind, subject rdf.Term, format string, args ...any) {
	k := string(kind) + " " + term.Key(subject)
	if r.reported[k] {
		return
	}
	r.reported[k] = true
	r.diags.Report(kind, term.Key(subject), format, args...)
}

func (r *Resolver) pickLabel(candidates []rdf.Term) string {
	if l, ok := term.SelectByLanguage(candidates, r.langs); ok {
		return l.String()
	}
	return ""
}
