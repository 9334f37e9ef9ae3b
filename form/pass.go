// Package form ties the pipeline together: a Pass owns one loaded store
// with its lists, template cache, diagnostics and binders; a Session keeps
// the current pass and replaces it on reload.
package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/binder"
	"github.com/c360studio/semform/diagnostic"
	"github.com/c360studio/semform/metrics"
	"github.com/c360studio/semform/rdflist"
	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/template"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

var (
	// ErrNoShapes is returned when a store holds no shapes to resolve.
	ErrNoShapes = errors.New("no shapes loaded")
	// ErrNoRoot is returned when no subject of the data conforms to a known shape.
	ErrNoRoot = errors.New("no data subject conforms to a known shape")
	// ErrSuperseded is returned by a reload that a newer reload replaced.
	ErrSuperseded = errors.New("load superseded by a newer reload")
	// ErrClosed is returned by a reload on a closed session.
	ErrClosed = errors.New("session closed")
)

var (
	rdfType           = term.MustIRI(shacl.RDFType)
	dctermsConformsTo = term.MustIRI(shacl.DCTermsConformsTo)
)

// Options configures passes.
type Options struct {
	Languages []string
	Prefixes  map[string]string
	// MaxDepth bounds fresh nested instantiation; zero uses the binder default.
	MaxDepth   int
	Subclasses bool
	// RemoveLists deletes consumed list triples from the pass store.
	RemoveLists bool
	MintBase    string
	ConformsTo  bool
	Provider    template.InstanceProvider
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Pass is one resolution pass. It is not safe for concurrent use.
type Pass struct {
	Generation  uint64
	Store       *storage.Dataset
	Lists       *rdflist.Lists
	Anomalies   []rdflist.Anomaly
	Resolver    *template.Resolver
	Diagnostics *diagnostic.List

	opts   Options
	logger *slog.Logger
}

// NewPass prepares a pass over ds. ctx bounds class instance lookups made
// while templates resolve.
func NewPass(ctx context.Context, ds *storage.Dataset, generation uint64, opts Options) (*Pass, error) {
	if !ds.Has(nil, nil, nil, storage.ShapesGraph) {
		return nil, ErrNoShapes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.Uint64("generation", generation))

	diags := diagnostic.NewList(logger)
	if opts.Metrics != nil {
		diags.OnReport(opts.Metrics.Diagnostic)
	}

	lists, anomalies := rdflist.Extract(ds, storage.ShapesGraph, rdflist.Options{Remove: opts.RemoveLists})
	for _, a := range anomalies {
		diags.Report(diagnostic.BrokenList, term.Key(a.Head),
			"list %s is broken (%s) after %d items", term.Key(a.Head), a.Reason, a.Items)
	}
	opts.Metrics.ListAnomalies(len(anomalies))

	ropts := template.Options{
		Lists:       lists,
		Languages:   opts.Languages,
		Prefixes:    opts.Prefixes,
		Provider:    opts.Provider,
		Subclasses:  opts.Subclasses,
		Logger:      logger,
		Diagnostics: diags,
	}
	if opts.Metrics != nil {
		ropts.Observer = opts.Metrics
	}

	return &Pass{
		Generation:  generation,
		Store:       ds,
		Lists:       lists,
		Anomalies:   anomalies,
		Resolver:    template.NewResolver(ctx, ds, ropts),
		Diagnostics: diags,
		opts:        opts,
		logger:      logger,
	}, nil
}

// Root returns the template of shape. A nil shape picks the first root
// shape, reporting an ambiguity when there are several.
func (p *Pass) Root(shape rdf.Term) (*template.NodeTemplate, error) {
	if shape != nil {
		if !p.Resolver.IsNodeShape(shape) {
			return nil, fmt.Errorf("%w: %s is not a node shape", ErrNoShapes, term.Key(shape))
		}
		return p.Resolver.Node(shape), nil
	}
	roots := p.Resolver.Roots()
	if len(roots) == 0 {
		return nil, ErrNoShapes
	}
	if len(roots) > 1 {
		p.Diagnostics.Report(diagnostic.AmbiguousRoot, term.Key(roots[0]),
			"%d root shapes found, using %s", len(roots), term.Key(roots[0]))
	}
	return p.Resolver.Node(roots[0]), nil
}

// Locate finds the data subject to edit together with its shape. The
// subject's dcterms:conformsTo and rdf:type links are followed to known
// node shapes; a nil subject searches the whole data graph. Several
// candidates are reported as ambiguous and the first one wins.
func (p *Pass) Locate(subject rdf.Term) (rdf.Term, *template.NodeTemplate, error) {
	type candidate struct {
		subject rdf.Term
		shape   rdf.Term
	}
	var found []candidate
	seen := make(map[string]bool)
	add := func(s, shape rdf.Term) {
		k := term.Key(s) + " " + term.Key(shape)
		if !seen[k] {
			seen[k] = true
			found = append(found, candidate{s, shape})
		}
	}

	for _, q := range p.Store.Match(subject, dctermsConformsTo, nil, storage.DataGraph) {
		if p.Resolver.IsNodeShape(q.Object) {
			add(q.Subject, q.Object)
		}
	}
	if len(found) == 0 {
		for _, q := range p.Store.Match(subject, rdfType, nil, storage.DataGraph) {
			for _, shape := range p.Resolver.ShapesForClass(q.Object) {
				add(q.Subject, shape)
			}
		}
	}

	key := "data"
	if subject != nil {
		key = term.Key(subject)
	}
	switch len(found) {
	case 0:
		p.Diagnostics.Report(diagnostic.MissingConformance, key,
			"no dcterms:conformsTo or rdf:type link from %s to a known shape", key)
		return nil, nil, ErrNoRoot
	case 1:
	default:
		p.Diagnostics.Report(diagnostic.AmbiguousRoot, key,
			"%d conforming subjects or shapes found, using %s", len(found), term.Key(found[0].shape))
	}
	return found[0].subject, p.Resolver.Node(found[0].shape), nil
}

// Binder returns a new binder configured for this pass.
func (p *Pass) Binder() *binder.Binder {
	return binder.New(p.Resolver, binder.Options{
		Languages:   p.opts.Languages,
		MaxDepth:    p.opts.MaxDepth,
		MintBase:    p.opts.MintBase,
		ConformsTo:  p.opts.ConformsTo,
		Logger:      p.logger,
		Diagnostics: p.Diagnostics,
	})
}

// Bind realizes root for subject; a nil subject creates a fresh instance.
func (p *Pass) Bind(root *template.NodeTemplate, subject rdf.Term) *binder.NodeInstance {
	return p.Binder().Bind(root, subject)
}

// Emit writes the instance tree into a new dataset under storage.DataGraph.
func (p *Pass) Emit(n *binder.NodeInstance) *storage.Dataset {
	out := storage.NewDataset()
	if n == nil {
		return out
	}
	n.ToRDF(out, storage.DataGraph)
	p.opts.Metrics.Emitted(out.Len())
	p.logger.Debug("Emitted instance", slog.String("subject", term.Key(n.Subject)), slog.Int("triples", out.Len()))
	return out
}
