package binder

import (
	"errors"
	"fmt"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/codec"
	"github.com/c360studio/semform/template"
)

// Errors returned by instance editing.
var (
	ErrMaxCount     = errors.New("field already holds sh:maxCount values")
	ErrMinCount     = errors.New("field must keep sh:minCount values")
	ErrNoSuchBranch = errors.New("no such alternative")
	ErrNoSuchValue  = errors.New("value does not belong to the field")
)

// NodeInstance is a node template realized for one subject.
type NodeInstance struct {
	Template *template.NodeTemplate
	Subject  rdf.Term
	// Fresh is set when the subject was minted rather than found in the data.
	Fresh      bool
	Properties []*PropertyInstance
	// Groups holds the node-level sh:or and sh:xone choices.
	Groups []*NodeChoice

	binder *Binder
	depth  int
}

// Property returns the instance of the field with the given path, or nil.
func (n *NodeInstance) Property(path string) *PropertyInstance {
	for _, p := range n.Properties {
		if p.Template.Path.String() == path {
			return p
		}
	}
	return nil
}

// PropertyInstance holds the values of one field.
type PropertyInstance struct {
	Template *template.PropertyTemplate
	Values   []*ValueInstance

	node *NodeInstance
}

// Node returns the node instance the field belongs to.
func (p *PropertyInstance) Node() *NodeInstance {
	return p.node
}

// CanAdd reports whether another value is allowed by sh:maxCount.
func (p *PropertyInstance) CanAdd() bool {
	return p.Template.MaxCount == nil || len(p.Values) < *p.Template.MaxCount
}

// CanRemove reports whether a value may be removed without going below
// sh:minCount.
func (p *PropertyInstance) CanRemove() bool {
	lower := 0
	if p.Template.MinCount != nil {
		lower = *p.Template.MinCount
	}
	return len(p.Values) > lower
}

// AddValue appends a fresh value.
func (p *PropertyInstance) AddValue() (*ValueInstance, error) {
	if !p.CanAdd() {
		return nil, fmt.Errorf("%w: %s", ErrMaxCount, p.Template.Path.String())
	}
	v := p.node.binder.freshValue(p)
	p.Values = append(p.Values, v)
	return v, nil
}

// RemoveValue removes v from the field.
func (p *PropertyInstance) RemoveValue(v *ValueInstance) error {
	for i, have := range p.Values {
		if have != v {
			continue
		}
		if !p.CanRemove() {
			return fmt.Errorf("%w: %s", ErrMinCount, p.Template.Path.String())
		}
		p.Values = append(p.Values[:i], p.Values[i+1:]...)
		return nil
	}
	return ErrNoSuchValue
}

// ValueInstance is one value of a field. Exactly one of Node, Ref or a leaf
// Value is meaningful; Choice is set for fields with alternatives.
type ValueInstance struct {
	// Template is the effective template: the field's own, or the merged
	// template of the selected alternative.
	Template *template.PropertyTemplate
	// Term is the bound RDF term, nil for fresh values.
	Term  rdf.Term
	Value codec.Value
	Node  *NodeInstance
	Ref   *Reference
	// Choice is set when the field has sh:or or sh:xone alternatives.
	Choice *Choice

	property *PropertyInstance
}

// Property returns the field the value belongs to.
func (v *ValueInstance) Property() *PropertyInstance {
	return v.property
}

// SelectedOption returns the index of the option equal to the value, or -1.
func (v *ValueInstance) SelectedOption() int {
	if v.Value.IsEmpty() {
		return -1
	}
	for i, o := range v.Template.Options {
		if codec.Decode(o.Value) == v.Value {
			return i
		}
	}
	return -1
}

// SelectOption sets the value to option i of its template.
func (v *ValueInstance) SelectOption(i int) error {
	if i < 0 || i >= len(v.Template.Options) {
		return fmt.Errorf("option %d out of range", i)
	}
	v.Value = codec.Decode(v.Template.Options[i].Value)
	return nil
}

// Reference stands in for a node already expanded elsewhere in the tree.
// It emits no triples of its own.
type Reference struct {
	Subject rdf.Term
	Label   string
	Shape   *template.NodeTemplate
}

// ChoiceKind tells sh:or and sh:xone apart.
type ChoiceKind int

// Choice kinds.
const (
	ChoiceOr ChoiceKind = iota
	ChoiceXone
)

// Unselected is the Selected value of an unbound choice.
const Unselected = -1

// Choice is the state of a property-level alternative group. It starts
// unbound and becomes bound when a branch is selected.
type Choice struct {
	Kind         ChoiceKind
	Alternatives []template.Alternative
	Selected     int

	value *ValueInstance
}

// Bound reports whether a branch is selected.
func (c *Choice) Bound() bool {
	return c.Selected != Unselected
}

// Branch returns the selected alternative, or nil.
func (c *Choice) Branch() *template.Alternative {
	if !c.Bound() {
		return nil
	}
	return &c.Alternatives[c.Selected]
}

// Select binds branch i. A node branch instantiates its nested node for the
// value's subject, or a fresh subject when the value has none.
func (c *Choice) Select(i int) error {
	if i < 0 || i >= len(c.Alternatives) {
		return fmt.Errorf("%w: %d", ErrNoSuchBranch, i)
	}
	c.Selected = i
	v := c.value
	alt := c.Alternatives[i]
	v.Template = alt.Template
	v.Node, v.Ref = nil, nil
	if alt.Kind == template.AlternativeNode && alt.Node != nil {
		parent := v.property.node
		v.Node, v.Ref = parent.binder.nested(alt.Node, v.Term, parent.depth+1)
	}
	return nil
}

// NodeAlternative is one branch of a node-level group: either a property
// shape adding a field or a node shape adding fields to the same subject.
type NodeAlternative struct {
	Shape    rdf.Term
	Label    string
	Property *template.PropertyTemplate
	Node     *template.NodeTemplate
}

// NodeChoice is the state of a node-level sh:or / sh:xone group.
type NodeChoice struct {
	Kind         ChoiceKind
	Alternatives []NodeAlternative
	Selected     int

	// Property or Node holds the realized branch once bound.
	Property *PropertyInstance
	Node     *NodeInstance

	owner *NodeInstance
}

// Bound reports whether a branch is selected.
func (c *NodeChoice) Bound() bool {
	return c.Selected != Unselected
}

// Select binds branch i for the owning subject.
func (c *NodeChoice) Select(i int) error {
	if i < 0 || i >= len(c.Alternatives) {
		return fmt.Errorf("%w: %d", ErrNoSuchBranch, i)
	}
	c.Selected = i
	c.Property, c.Node = nil, nil
	alt := c.Alternatives[i]
	b := c.owner.binder
	switch {
	case alt.Property != nil:
		c.Property = b.bindProperty(c.owner, alt.Property)
	case alt.Node != nil:
		c.Node = b.sameSubject(alt.Node, c.owner)
	}
	return nil
}
