package template

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/diagnostic"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

// fragmentState carries what must be settled after every fragment of a
// field has been applied.
type fragmentState struct {
	visited map[string]bool
	or      []rdf.Term
	xone    []rdf.Term
	// chain guards against alternatives that contain themselves.
	chain map[string]bool
}

func newFragmentState(chain map[string]bool) *fragmentState {
	if chain == nil {
		chain = make(map[string]bool)
	}
	return &fragmentState{visited: make(map[string]bool), chain: chain}
}

// Property merges the given property shapes, in order, into one template
// for path. Later fragments override scalar facets set by earlier ones.
func (r *Resolver) Property(path rdf.IRI, fragments []rdf.Term, owner *NodeTemplate) *PropertyTemplate {
	p := &PropertyTemplate{Path: path, Owner: owner}
	st := newFragmentState(nil)
	for _, f := range fragments {
		r.applyFragment(p, f, st)
	}
	r.finalize(p, st, false)
	return p
}

// PropertyShape resolves a single property shape on its own. The second
// result is false when id has no usable sh:path.
func (r *Resolver) PropertyShape(id rdf.Term, owner *NodeTemplate) (*PropertyTemplate, bool) {
	if !r.ds.Has(id, shPath, nil, r.shapes) {
		return nil, false
	}
	path, ok := r.pathOf(id)
	if !ok {
		return nil, false
	}
	return r.Property(path, []rdf.Term{id}, owner), true
}

func (r *Resolver) applyFragment(p *PropertyTemplate, shape rdf.Term, st *fragmentState) {
	k := term.Key(shape)
	if st.visited[k] {
		return
	}
	st.visited[k] = true
	p.Shapes = appendTerm(p.Shapes, shape)

	var names, descriptions []rdf.Term
	for _, q := range r.ds.Match(shape, nil, nil, r.shapes) {
		obj := q.Object
		pred := shacl.LookupPredicate(term.IRIValue(q.Predicate))
		switch pred {
		case shacl.PredicateUnknown, shacl.PredicatePath, shacl.PredicateTargetClass, shacl.PredicateProperty:
			// Not a field facet. sh:property only matters on qualified shapes.
		case shacl.PredicateName:
			names = append(names, obj)
		case shacl.PredicateDescription:
			descriptions = append(descriptions, obj)
		case shacl.PredicateDatatype:
			if term.IsIRI(obj) {
				p.Datatype = obj
			}
		case shacl.PredicateNodeKind:
			if term.IsIRI(obj) {
				p.NodeKind = obj
			}
		case shacl.PredicateClass:
			p.Class = obj
		case shacl.PredicateNode:
			if !r.ds.Has(obj, nil, nil, nil) {
				r.report(diagnostic.MalformedReference, shape, "sh:node of %s points at %s, which has no statements", k, term.Key(obj))
				continue
			}
			p.ExtendedShapes = appendNode(p.ExtendedShapes, r.Node(obj))
		case shacl.PredicateAnd:
			for _, m := range r.list(obj, shape, "sh:and") {
				r.applyFragment(p, m, st)
			}
		case shacl.PredicateOr:
			for _, m := range r.list(obj, shape, "sh:or") {
				st.or = appendTerm(st.or, m)
			}
		case shacl.PredicateXone:
			for _, m := range r.list(obj, shape, "sh:xone") {
				st.xone = appendTerm(st.xone, m)
			}
		case shacl.PredicateMinCount:
			p.MinCount = r.intFacet(shape, pred, obj, p.MinCount)
		case shacl.PredicateMaxCount:
			p.MaxCount = r.intFacet(shape, pred, obj, p.MaxCount)
		case shacl.PredicateQualifiedValueShape:
			r.applyQualified(p, obj, st)
		case shacl.PredicateQualifiedMinCount:
			p.MinCount = r.intFacet(shape, pred, obj, p.MinCount)
		case shacl.PredicateQualifiedMaxCount:
			p.MaxCount = r.intFacet(shape, pred, obj, p.MaxCount)
		case shacl.PredicateMinLength:
			p.MinLength = r.intFacet(shape, pred, obj, p.MinLength)
		case shacl.PredicateMaxLength:
			p.MaxLength = r.intFacet(shape, pred, obj, p.MaxLength)
		case shacl.PredicateMinInclusive:
			p.MinInclusive = r.floatFacet(shape, pred, obj, p.MinInclusive)
		case shacl.PredicateMaxInclusive:
			p.MaxInclusive = r.floatFacet(shape, pred, obj, p.MaxInclusive)
		case shacl.PredicateMinExclusive:
			p.MinExclusive = r.floatFacet(shape, pred, obj, p.MinExclusive)
		case shacl.PredicateMaxExclusive:
			p.MaxExclusive = r.floatFacet(shape, pred, obj, p.MaxExclusive)
		case shacl.PredicatePattern:
			p.Pattern = term.Value(obj)
		case shacl.PredicateFlags:
			p.Flags = term.Value(obj)
		case shacl.PredicateLanguageIn:
			for _, m := range r.list(obj, shape, "sh:languageIn") {
				p.LanguageIn = unionStrings(p.LanguageIn, []string{strings.ToLower(term.Value(m))})
			}
		case shacl.PredicateUniqueLang:
			p.UniqueLang = boolFacet(obj)
		case shacl.PredicateIn:
			if items := r.list(obj, shape, "sh:in"); items != nil {
				p.In = obj
				p.InValues = append([]rdf.Term(nil), items...)
			}
		case shacl.PredicateHasValue:
			p.HasValue = obj
		case shacl.PredicateDefaultValue:
			p.DefaultValue = obj
		case shacl.PredicateOrder:
			p.Order = r.floatFacet(shape, pred, obj, p.Order)
		case shacl.PredicateGroup:
			p.Group = obj
		case shacl.PredicateSingleLine:
			p.SingleLine = boolFacet(obj)
		case shacl.PredicateReadonly:
			p.Readonly = boolFacet(obj)
		default:
			r.logger.Debug("Unhandled shape predicate", slog.String("predicate", pred.String()))
		}
	}
	if l := r.pickLabel(names); l != "" {
		p.Label = l
	}
	if d := r.pickLabel(descriptions); d != "" {
		p.Description = d
	}
}

// applyQualified applies a sh:qualifiedValueShape as another fragment. A
// qualified shape with its own properties also becomes the nested node.
func (r *Resolver) applyQualified(p *PropertyTemplate, shape rdf.Term, st *fragmentState) {
	if st.visited[term.Key(shape)] {
		return
	}
	r.applyFragment(p, shape, st)
	if r.ds.Has(shape, shProperty, nil, r.shapes) {
		p.ExtendedShapes = appendNode(p.ExtendedShapes, r.Node(shape))
	}
}

// finalize settles facets that depend on the merged result.
func (r *Resolver) finalize(p *PropertyTemplate, st *fragmentState, branch bool) {
	if p.Class != nil {
		r.resolveClass(p)
	}
	if len(p.LanguageIn) > 0 && p.Datatype == nil {
		p.Datatype = rdfLangString
	}
	if p.In != nil {
		p.Options = make([]Option, 0, len(p.InValues))
		for _, v := range p.InValues {
			p.Options = append(p.Options, Option{Value: v, Label: r.LabelOf(v, false)})
		}
	}
	if p.Label == "" && !branch {
		p.Label = r.pickLabel(r.outsideData(p.Path, rdfsLabel))
	}
	if p.Label == "" && !branch {
		p.Label = term.Compact(p.Path.String(), r.prefixes)
	}

	base := Clone(p)
	p.Or = r.alternatives(base, st.or, st.chain)
	p.Xone = r.alternatives(base, st.xone, st.chain)
}

// alternatives resolves each branch of a sh:or or sh:xone against base.
func (r *Resolver) alternatives(base *PropertyTemplate, ids []rdf.Term, chain map[string]bool) []Alternative {
	if len(ids) == 0 {
		return nil
	}
	out := make([]Alternative, 0, len(ids))
	for _, id := range ids {
		k := term.Key(id)
		if chain[k] {
			continue
		}
		nested := make(map[string]bool, len(chain)+1)
		for c := range chain {
			nested[c] = true
		}
		nested[k] = true

		branch := &PropertyTemplate{Path: base.Path, Owner: base.Owner}
		bst := newFragmentState(nested)
		r.applyFragment(branch, id, bst)
		r.finalize(branch, bst, true)

		alt := Alternative{
			Shape:    id,
			Label:    branch.Label,
			Class:    branch.Class,
			Datatype: branch.Datatype,
			HasValue: branch.HasValue,
		}
		if branch.IsNodeTyped() {
			alt.Kind = AlternativeNode
			alt.Node = r.RangeOf(branch)
			if alt.Label == "" {
				alt.Label = alt.Node.Label
			}
		}
		if alt.Label == "" {
			alt.Label = r.alternativeLabel(alt)
		}
		branch.Label = ""
		alt.Template = Merge(base, branch)
		out = append(out, alt)
	}
	return out
}

func (r *Resolver) alternativeLabel(alt Alternative) string {
	switch {
	case alt.Class != nil:
		return r.LabelOf(alt.Class, false)
	case alt.Datatype != nil:
		return term.Compact(term.IRIValue(alt.Datatype), r.prefixes)
	case alt.HasValue != nil:
		return r.LabelOf(alt.HasValue, false)
	default:
		return r.LabelOf(alt.Shape, false)
	}
}

func (r *Resolver) intFacet(shape rdf.Term, pred shacl.Predicate, obj rdf.Term, prev *int) *int {
	n, err := strconv.Atoi(strings.TrimSpace(term.Value(obj)))
	if err != nil {
		r.logger.Debug("Ignoring non-integer facet",
			slog.String("shape", term.Key(shape)), slog.String("predicate", pred.String()), slog.String("value", term.Key(obj)))
		return prev
	}
	return &n
}

func (r *Resolver) floatFacet(shape rdf.Term, pred shacl.Predicate, obj rdf.Term, prev *float64) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(term.Value(obj)), 64)
	if err != nil {
		r.logger.Debug("Ignoring non-numeric facet",
			slog.String("shape", term.Key(shape)), slog.String("predicate", pred.String()), slog.String("value", term.Key(obj)))
		return prev
	}
	return &f
}

func boolFacet(obj rdf.Term) *bool {
	v := strings.TrimSpace(term.Value(obj))
	b := v == "true" || v == "1"
	return &b
}
