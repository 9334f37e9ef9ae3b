package template

import (
	"github.com/knakk/rdf"

	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

// NodeTemplate is a resolved node shape. Templates are shared and read-only
// once their resolver has returned them.
type NodeTemplate struct {
	// ID is the shape term. Composite templates have a nil ID.
	ID rdf.Term
	// Key is the cache key: the canonical key of ID, or the joined keys of a
	// composite.
	Key   string
	Label string

	// Properties lists the shape's own sh:property subjects in declaration order.
	Properties []rdf.Term
	// ExtendedShapes holds sh:node and sh:and parents in declaration order.
	ExtendedShapes []*NodeTemplate
	TargetClass    rdf.Term
	// Or and Xone hold alternative shape ids. The binder expands them.
	Or   []rdf.Term
	Xone []rdf.Term

	// Fields are the effective property templates, one per path: parent
	// contributions first, then own, ordered by first appearance and sh:order.
	Fields []*PropertyTemplate

	resolving bool
}

// Resolving reports whether the template is still being resolved. Only a
// template reached through a reference cycle is observed in this state.
func (n *NodeTemplate) Resolving() bool {
	return n.resolving
}

// Field returns the field for path, or nil.
func (n *NodeTemplate) Field(path string) *PropertyTemplate {
	for _, f := range n.Fields {
		if f.Path.String() == path {
			return f
		}
	}
	return nil
}

// Option is one selectable value of an enumerated field.
type Option struct {
	Value rdf.Term
	Label string
}

// AlternativeKind distinguishes the two branch forms of sh:or / sh:xone.
type AlternativeKind int

// Alternative kinds.
const (
	// AlternativeConstraint narrows the field's own value constraints.
	AlternativeConstraint AlternativeKind = iota
	// AlternativeNode turns the value into a nested node of another shape.
	AlternativeNode
)

// Alternative is one branch of a property-level sh:or or sh:xone.
type Alternative struct {
	Shape rdf.Term
	Kind  AlternativeKind
	Label string

	// Matching facets of the branch.
	Class    rdf.Term
	Datatype rdf.Term
	HasValue rdf.Term

	// Node is the nested template of a node alternative.
	Node *NodeTemplate
	// Template is the base field merged with the branch.
	Template *PropertyTemplate
}

// PropertyTemplate is the merged view of every property shape that shares
// one path within a node template.
type PropertyTemplate struct {
	Path        rdf.IRI
	Label       string
	Description string

	Datatype rdf.Term
	NodeKind rdf.Term
	Class    rdf.Term

	MinCount     *int
	MaxCount     *int
	MinLength    *int
	MaxLength    *int
	MinInclusive *float64
	MaxInclusive *float64
	MinExclusive *float64
	MaxExclusive *float64
	Pattern      string
	Flags        string
	LanguageIn   []string
	UniqueLang   *bool

	// In is the sh:in list head; InValues its resolved members.
	In       rdf.Term
	InValues []rdf.Term

	HasValue     rdf.Term
	DefaultValue rdf.Term
	Order        *float64
	Group        rdf.Term
	SingleLine   *bool
	Readonly     *bool

	ExtendedShapes []*NodeTemplate
	Or             []Alternative
	Xone           []Alternative

	// Options enumerates the selectable values from sh:in or class instances.
	Options []Option

	// Owner is the node template the field belongs to.
	Owner *NodeTemplate
	// Shapes lists the property shape subjects merged into the field.
	Shapes []rdf.Term
}

// IsNodeTyped reports whether values of the field are nested nodes.
func (p *PropertyTemplate) IsNodeTyped() bool {
	return len(p.ExtendedShapes) > 0
}

// Alternatives returns the sh:or branches, or the sh:xone branches when the
// field has no sh:or.
func (p *PropertyTemplate) Alternatives() []Alternative {
	if len(p.Or) > 0 {
		return p.Or
	}
	return p.Xone
}

// Exclusive reports whether the active alternatives come from sh:xone.
func (p *PropertyTemplate) Exclusive() bool {
	return len(p.Or) == 0 && len(p.Xone) > 0
}

// HasLanguageChooser reports whether values carry a selectable language tag.
func (p *PropertyTemplate) HasLanguageChooser() bool {
	return len(p.LanguageIn) > 0 || term.IRIValue(p.Datatype) == shacl.RDFLangString
}

// Required reports whether sh:minCount demands at least one value.
func (p *PropertyTemplate) Required() bool {
	return p.MinCount != nil && *p.MinCount > 0
}

// IsUniqueLang reports whether sh:uniqueLang is set to true.
func (p *PropertyTemplate) IsUniqueLang() bool {
	return p.UniqueLang != nil && *p.UniqueLang
}

// IsSingleLine reports whether dash:singleLine is set to true.
func (p *PropertyTemplate) IsSingleLine() bool {
	return p.SingleLine != nil && *p.SingleLine
}

// IsReadonly reports whether dash:readOnly is set to true.
func (p *PropertyTemplate) IsReadonly() bool {
	return p.Readonly != nil && *p.Readonly
}

// DatatypeIRI returns the datatype IRI or "".
func (p *PropertyTemplate) DatatypeIRI() string {
	return term.IRIValue(p.Datatype)
}

// NodeKindIRI returns the node kind IRI or "".
func (p *PropertyTemplate) NodeKindIRI() string {
	return term.IRIValue(p.NodeKind)
}
