// Package binder realizes resolved templates against data: it builds the
// instance tree a form edits and writes the edited tree back as RDF.
//
// Binding walks the template from the root subject, looking up the values
// of each field in the data graph. Nested nodes are expanded once per
// (shape, subject) pair within a tree; later encounters become Reference
// placeholders so cyclic data terminates.
package binder

import (
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/knakk/rdf"

	"github.com/c360studio/semform/codec"
	"github.com/c360studio/semform/diagnostic"
	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/template"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

// DefaultMaxDepth bounds fresh nested instantiation.
const DefaultMaxDepth = 3

var (
	rdfType           = term.MustIRI(shacl.RDFType)
	dctermsConformsTo = term.MustIRI(shacl.DCTermsConformsTo)
)

// Options configures a Binder.
type Options struct {
	// DataGraph defaults to storage.DataGraph.
	DataGraph rdf.Term
	Languages []string
	// MaxDepth bounds how deep fresh nested nodes are created.
	MaxDepth int
	// MintBase, when set, makes new subjects IRIs under this base instead
	// of blank nodes.
	MintBase string
	// ConformsTo emits dcterms:conformsTo from the root subject to its shape.
	ConformsTo bool
	Logger     *slog.Logger
	// Diagnostics defaults to the resolver's list.
	Diagnostics *diagnostic.List
}

// Binder binds data to templates of one resolver. It is not safe for
// concurrent use.
type Binder struct {
	ds       *storage.Dataset
	r        *template.Resolver
	data     rdf.Term
	opts     Options
	logger   *slog.Logger
	diags    *diagnostic.List
	rendered map[string]bool
}

// New creates a binder reading data from the resolver's store.
func New(r *template.Resolver, opts Options) *Binder {
	if opts.DataGraph == nil {
		opts.DataGraph = storage.DataGraph
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	diags := opts.Diagnostics
	if diags == nil {
		diags = r.Diagnostics()
	}
	return &Binder{
		ds:       r.Store(),
		r:        r,
		data:     opts.DataGraph,
		opts:     opts,
		logger:   logger,
		diags:    diags,
		rendered: make(map[string]bool),
	}
}

// Bind realizes root for subject. A nil subject creates a fresh instance
// with a minted subject. Each call starts a new tree.
func (b *Binder) Bind(root *template.NodeTemplate, subject rdf.Term) *NodeInstance {
	b.rendered = make(map[string]bool)
	if subject == nil {
		return b.fresh(root, 0)
	}
	n, _ := b.expand(root, subject, 0)
	return n
}

// expand binds an existing subject, or returns a reference when the pair
// was already expanded in this tree.
func (b *Binder) expand(tpl *template.NodeTemplate, subject rdf.Term, depth int) (*NodeInstance, *Reference) {
	k := guardKey(tpl, subject)
	if b.rendered[k] {
		return nil, &Reference{Subject: subject, Label: b.r.LabelOf(subject, true), Shape: tpl}
	}
	b.rendered[k] = true

	n := &NodeInstance{Template: tpl, Subject: subject, binder: b, depth: depth}
	b.bindFields(n)
	b.bindGroups(n)
	return n, nil
}

// fresh creates an instance for a minted subject. Fresh nodes are not
// tracked by the recursion guard; depth bounds them instead.
func (b *Binder) fresh(tpl *template.NodeTemplate, depth int) *NodeInstance {
	if depth > b.opts.MaxDepth {
		b.diags.Report(diagnostic.DepthLimit, tpl.Key,
			"stopped creating nested %s at depth %d", tpl.Key, b.opts.MaxDepth)
		return nil
	}
	n := &NodeInstance{Template: tpl, Subject: b.mint(), Fresh: true, binder: b, depth: depth}
	b.bindFields(n)
	b.bindGroups(n)
	return n
}

// nested binds the node of a node-typed value. Resources found in data are
// expanded; anything else gets a fresh node.
func (b *Binder) nested(tpl *template.NodeTemplate, t rdf.Term, depth int) (*NodeInstance, *Reference) {
	if term.IsResource(t) {
		return b.expand(tpl, t, depth)
	}
	return b.fresh(tpl, depth), nil
}

// sameSubject realizes a node-level branch for the owner's subject.
func (b *Binder) sameSubject(tpl *template.NodeTemplate, owner *NodeInstance) *NodeInstance {
	k := guardKey(tpl, owner.Subject)
	seen := b.rendered[k]
	b.rendered[k] = true
	n := &NodeInstance{Template: tpl, Subject: owner.Subject, Fresh: owner.Fresh, binder: b, depth: owner.depth}
	b.bindFields(n)
	if !seen {
		b.bindGroups(n)
	}
	return n
}

func (b *Binder) bindFields(n *NodeInstance) {
	for _, f := range n.Template.Fields {
		n.Properties = append(n.Properties, b.bindProperty(n, f))
	}
}

func (b *Binder) bindProperty(n *NodeInstance, f *template.PropertyTemplate) *PropertyInstance {
	pi := &PropertyInstance{Template: f, node: n}
	if !n.Fresh {
		for _, q := range b.ds.Match(n.Subject, f.Path, nil, b.data) {
			pi.Values = append(pi.Values, b.bindValue(pi, q.Object))
		}
	}
	if len(pi.Values) == 0 {
		for i := 0; i < freshCount(f); i++ {
			pi.Values = append(pi.Values, b.freshValue(pi))
		}
	}
	return pi
}

func (b *Binder) bindValue(pi *PropertyInstance, t rdf.Term) *ValueInstance {
	f := pi.Template
	v := &ValueInstance{Template: f, Term: t, Value: codec.Decode(t), property: pi}
	if alts := f.Alternatives(); len(alts) > 0 {
		v.Choice = newChoice(f, v)
		if i := b.match(alts, t); i >= 0 {
			_ = v.Choice.Select(i)
		}
		return v
	}
	if rng := b.r.RangeOf(f); rng != nil && term.IsResource(t) {
		v.Node, v.Ref = b.expand(rng, t, pi.node.depth+1)
	}
	return v
}

func (b *Binder) freshValue(pi *PropertyInstance) *ValueInstance {
	f := pi.Template
	v := &ValueInstance{Template: f, property: pi}
	if len(f.Alternatives()) > 0 {
		v.Choice = newChoice(f, v)
		return v
	}
	switch {
	case f.HasValue != nil:
		v.Value = codec.Decode(f.HasValue)
	case f.DefaultValue != nil:
		v.Value = codec.Decode(f.DefaultValue)
	}
	if f.HasLanguageChooser() && v.Value.Language == "" {
		v.Value.Language = b.defaultLanguage(f)
	}
	if rng := b.r.RangeOf(f); rng != nil {
		v.Node = b.fresh(rng, pi.node.depth+1)
	}
	return v
}

func newChoice(f *template.PropertyTemplate, v *ValueInstance) *Choice {
	kind := ChoiceOr
	if f.Exclusive() {
		kind = ChoiceXone
	}
	return &Choice{Kind: kind, Alternatives: f.Alternatives(), Selected: Unselected, value: v}
}

// freshCount is the number of empty values a field starts with: at least
// one editor for literal fields, sh:minCount nested nodes otherwise, never
// more than sh:maxCount.
func freshCount(f *template.PropertyTemplate) int {
	n := 0
	if f.MinCount != nil {
		n = *f.MinCount
	}
	if n == 0 && !f.IsNodeTyped() && !hasNodeAlternative(f) {
		n = 1
	}
	if f.MaxCount != nil && n > *f.MaxCount {
		n = *f.MaxCount
	}
	return n
}

func hasNodeAlternative(f *template.PropertyTemplate) bool {
	for _, alt := range f.Alternatives() {
		if alt.Kind == template.AlternativeNode || alt.Class != nil {
			return true
		}
	}
	return false
}

// match picks the branch a bound term belongs to. Class and sh:hasValue
// branches are tried before datatype branches; the first match wins.
func (b *Binder) match(alts []template.Alternative, t rdf.Term) int {
	if t == nil {
		return -1
	}
	var types []rdf.Term
	if term.IsResource(t) {
		types = b.ds.Objects(t, rdfType, nil)
	}
	for i, alt := range alts {
		if alt.HasValue != nil && term.Equal(alt.HasValue, t) {
			return i
		}
		if types == nil {
			continue
		}
		if alt.Class != nil && b.hasType(types, alt.Class) {
			return i
		}
		if alt.Class == nil && alt.Node != nil && alt.Node.TargetClass != nil && b.hasType(types, alt.Node.TargetClass) {
			return i
		}
	}
	if !term.IsLiteral(t) {
		return -1
	}
	dt := term.Datatype(t)
	for i, alt := range alts {
		if alt.Datatype != nil && term.IRIValue(alt.Datatype) == dt {
			return i
		}
	}
	return -1
}

func (b *Binder) bindGroups(n *NodeInstance) {
	groups := []struct {
		kind ChoiceKind
		ids  []rdf.Term
	}{{ChoiceOr, n.Template.Or}, {ChoiceXone, n.Template.Xone}}

	for _, g := range groups {
		if len(g.ids) == 0 {
			continue
		}
		nc := &NodeChoice{Kind: g.kind, Selected: Unselected, owner: n}
		for _, id := range g.ids {
			alt := NodeAlternative{Shape: id}
			if p, ok := b.r.PropertyShape(id, n.Template); ok {
				alt.Property, alt.Label = p, p.Label
			} else {
				alt.Node = b.r.Node(id)
				alt.Label = alt.Node.Label
				if alt.Label == "" {
					alt.Label = b.r.LabelOf(id, false)
				}
			}
			nc.Alternatives = append(nc.Alternatives, alt)
		}
		if !n.Fresh {
			if i := b.matchNode(nc, n.Subject); i >= 0 {
				_ = nc.Select(i)
			}
		}
		n.Groups = append(n.Groups, nc)
	}
}

// matchNode picks the node-level branch the subject's data belongs to: a
// property branch whose path has values, or a node branch whose target
// class the subject has, or whose fields have values.
func (b *Binder) matchNode(nc *NodeChoice, subject rdf.Term) int {
	types := b.ds.Objects(subject, rdfType, nil)
	for i, alt := range nc.Alternatives {
		switch {
		case alt.Property != nil:
			if b.ds.Has(subject, alt.Property.Path, nil, b.data) {
				return i
			}
		case alt.Node != nil && alt.Node.TargetClass != nil:
			if b.hasType(types, alt.Node.TargetClass) {
				return i
			}
		}
	}
	for i, alt := range nc.Alternatives {
		if alt.Node == nil {
			continue
		}
		for _, f := range alt.Node.Fields {
			if b.ds.Has(subject, f.Path, nil, b.data) {
				return i
			}
		}
	}
	return -1
}

func (b *Binder) hasType(types []rdf.Term, class rdf.Term) bool {
	for _, t := range types {
		if b.r.IsSubClassOf(t, class) {
			return true
		}
	}
	return false
}

func (b *Binder) defaultLanguage(f *template.PropertyTemplate) string {
	for _, want := range b.opts.Languages {
		if len(f.LanguageIn) == 0 {
			return want
		}
		for _, allowed := range f.LanguageIn {
			if term.LanguageMatches(allowed, want) {
				return allowed
			}
		}
	}
	if len(f.LanguageIn) > 0 {
		return f.LanguageIn[0]
	}
	return ""
}

func (b *Binder) mint() rdf.Term {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	if b.opts.MintBase != "" {
		if iri, err := term.NewIRI(b.opts.MintBase + id); err == nil {
			return iri
		}
		b.logger.Warn("Invalid mint base, using a blank node", slog.String("base", b.opts.MintBase))
	}
	return term.MustBlank("n" + id)
}

func guardKey(tpl *template.NodeTemplate, subject rdf.Term) string {
	return tpl.Key + "|" + term.Key(subject)
}
