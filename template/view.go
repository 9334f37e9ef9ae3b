package template

import (
	"github.com/knakk/rdf"

	"github.com/c360studio/semform/term"
)

// NodeView is a serializable, cycle-free summary of a node template. Nested
// nodes are referred to by key.
type NodeView struct {
	Key         string         `json:"key" yaml:"key"`
	Label       string         `json:"label,omitempty" yaml:"label,omitempty"`
	TargetClass string         `json:"targetClass,omitempty" yaml:"targetClass,omitempty"`
	Extends     []string       `json:"extends,omitempty" yaml:"extends,omitempty"`
	Or          []string       `json:"or,omitempty" yaml:"or,omitempty"`
	Xone        []string       `json:"xone,omitempty" yaml:"xone,omitempty"`
	Fields      []PropertyView `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// PropertyView summarizes one field.
type PropertyView struct {
	Path         string            `json:"path" yaml:"path"`
	Label        string            `json:"label,omitempty" yaml:"label,omitempty"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Datatype     string            `json:"datatype,omitempty" yaml:"datatype,omitempty"`
	NodeKind     string            `json:"nodeKind,omitempty" yaml:"nodeKind,omitempty"`
	Class        string            `json:"class,omitempty" yaml:"class,omitempty"`
	MinCount     *int              `json:"minCount,omitempty" yaml:"minCount,omitempty"`
	MaxCount     *int              `json:"maxCount,omitempty" yaml:"maxCount,omitempty"`
	Pattern      string            `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	LanguageIn   []string          `json:"languageIn,omitempty" yaml:"languageIn,omitempty"`
	Options      []string          `json:"options,omitempty" yaml:"options,omitempty"`
	Node         string            `json:"node,omitempty" yaml:"node,omitempty"`
	Alternatives []AlternativeView `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	Exclusive    bool              `json:"exclusive,omitempty" yaml:"exclusive,omitempty"`
}

// AlternativeView summarizes one sh:or / sh:xone branch.
type AlternativeView struct {
	Label string `json:"label" yaml:"label"`
	Node  string `json:"node,omitempty" yaml:"node,omitempty"`
}

// Describe returns views of root and every node template reachable from it,
// root first, each exactly once.
func (r *Resolver) Describe(root *NodeTemplate) []NodeView {
	var out []NodeView
	seen := make(map[string]bool)
	queue := []*NodeTemplate{root}
	enqueue := func(n *NodeTemplate) {
		if n != nil && !seen[n.Key] {
			seen[n.Key] = true
			queue = append(queue, n)
		}
	}
	seen[root.Key] = true
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		v := NodeView{Key: n.Key, Label: n.Label, TargetClass: r.compact(n.TargetClass)}
		for _, e := range n.ExtendedShapes {
			v.Extends = append(v.Extends, e.Key)
			enqueue(e)
		}
		for _, id := range n.Or {
			v.Or = append(v.Or, term.Key(id))
		}
		for _, id := range n.Xone {
			v.Xone = append(v.Xone, term.Key(id))
		}
		for _, f := range n.Fields {
			pv := PropertyView{
				Path:        r.compact(f.Path),
				Label:       f.Label,
				Description: f.Description,
				Datatype:    r.compact(f.Datatype),
				NodeKind:    r.compact(f.NodeKind),
				Class:       r.compact(f.Class),
				MinCount:    f.MinCount,
				MaxCount:    f.MaxCount,
				Pattern:     f.Pattern,
				LanguageIn:  f.LanguageIn,
				Exclusive:   f.Exclusive(),
			}
			for _, o := range f.Options {
				pv.Options = append(pv.Options, o.Label)
			}
			if rng := r.RangeOf(f); rng != nil {
				pv.Node = rng.Key
				enqueue(rng)
			}
			for _, alt := range f.Alternatives() {
				av := AlternativeView{Label: alt.Label}
				if alt.Node != nil {
					av.Node = alt.Node.Key
					enqueue(alt.Node)
				}
				pv.Alternatives = append(pv.Alternatives, av)
			}
			v.Fields = append(v.Fields, pv)
		}
		out = append(out, v)
	}
	return out
}

func (r *Resolver) compact(t rdf.Term) string {
	if t == nil {
		return ""
	}
	if term.IsIRI(t) {
		return term.Compact(term.IRIValue(t), r.prefixes)
	}
	return term.Key(t)
}
