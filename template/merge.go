package template

import (
	"github.com/knakk/rdf"

	"github.com/c360studio/semform/term"
)

// Clone returns a deep copy of p. Slices are copied; nested node templates
// and terms are shared because they are immutable.
func Clone(p *PropertyTemplate) *PropertyTemplate {
	if p == nil {
		return nil
	}
	c := *p
	c.MinCount = cloneInt(p.MinCount)
	c.MaxCount = cloneInt(p.MaxCount)
	c.MinLength = cloneInt(p.MinLength)
	c.MaxLength = cloneInt(p.MaxLength)
	c.MinInclusive = cloneFloat(p.MinInclusive)
	c.MaxInclusive = cloneFloat(p.MaxInclusive)
	c.MinExclusive = cloneFloat(p.MinExclusive)
	c.MaxExclusive = cloneFloat(p.MaxExclusive)
	c.Order = cloneFloat(p.Order)
	c.UniqueLang = cloneBool(p.UniqueLang)
	c.SingleLine = cloneBool(p.SingleLine)
	c.Readonly = cloneBool(p.Readonly)
	c.LanguageIn = append([]string(nil), p.LanguageIn...)
	c.InValues = append([]rdf.Term(nil), p.InValues...)
	c.ExtendedShapes = append([]*NodeTemplate(nil), p.ExtendedShapes...)
	c.Or = append([]Alternative(nil), p.Or...)
	c.Xone = append([]Alternative(nil), p.Xone...)
	c.Options = append([]Option(nil), p.Options...)
	c.Shapes = append([]rdf.Term(nil), p.Shapes...)
	return &c
}

// Merge returns a new template with overlay applied on top of base. Scalar
// facets set in overlay win; list facets are unioned with base entries
// first. Neither argument is modified.
func Merge(base, overlay *PropertyTemplate) *PropertyTemplate {
	out := Clone(base)
	if out == nil {
		return Clone(overlay)
	}
	if overlay == nil {
		return out
	}
	if overlay.Label != "" {
		out.Label = overlay.Label
	}
	if overlay.Description != "" {
		out.Description = overlay.Description
	}
	out.Datatype = pickTerm(out.Datatype, overlay.Datatype)
	out.NodeKind = pickTerm(out.NodeKind, overlay.NodeKind)
	out.Class = pickTerm(out.Class, overlay.Class)
	out.MinCount = pickInt(out.MinCount, overlay.MinCount)
	out.MaxCount = pickInt(out.MaxCount, overlay.MaxCount)
	out.MinLength = pickInt(out.MinLength, overlay.MinLength)
	out.MaxLength = pickInt(out.MaxLength, overlay.MaxLength)
	out.MinInclusive = pickFloat(out.MinInclusive, overlay.MinInclusive)
	out.MaxInclusive = pickFloat(out.MaxInclusive, overlay.MaxInclusive)
	out.MinExclusive = pickFloat(out.MinExclusive, overlay.MinExclusive)
	out.MaxExclusive = pickFloat(out.MaxExclusive, overlay.MaxExclusive)
	out.Order = pickFloat(out.Order, overlay.Order)
	if overlay.Pattern != "" {
		out.Pattern = overlay.Pattern
		out.Flags = overlay.Flags
	}
	out.UniqueLang = pickBool(out.UniqueLang, overlay.UniqueLang)
	out.SingleLine = pickBool(out.SingleLine, overlay.SingleLine)
	out.Readonly = pickBool(out.Readonly, overlay.Readonly)
	if overlay.In != nil {
		out.In = overlay.In
		out.InValues = append([]rdf.Term(nil), overlay.InValues...)
	}
	out.HasValue = pickTerm(out.HasValue, overlay.HasValue)
	out.DefaultValue = pickTerm(out.DefaultValue, overlay.DefaultValue)
	out.Group = pickTerm(out.Group, overlay.Group)
	if len(overlay.Options) > 0 {
		out.Options = append([]Option(nil), overlay.Options...)
	}

	out.LanguageIn = unionStrings(out.LanguageIn, overlay.LanguageIn)
	for _, n := range overlay.ExtendedShapes {
		out.ExtendedShapes = appendNode(out.ExtendedShapes, n)
	}
	out.Or = append(out.Or, overlay.Or...)
	out.Xone = append(out.Xone, overlay.Xone...)
	for _, s := range overlay.Shapes {
		out.Shapes = appendTerm(out.Shapes, s)
	}
	return out
}

func pickTerm(base, overlay rdf.Term) rdf.Term {
	if overlay != nil {
		return overlay
	}
	return base
}

func pickInt(base, overlay *int) *int {
	if overlay != nil {
		return cloneInt(overlay)
	}
	return base
}

func pickFloat(base, overlay *float64) *float64 {
	if overlay != nil {
		return cloneFloat(overlay)
	}
	return base
}

func pickBool(base, overlay *bool) *bool {
	if overlay != nil {
		return cloneBool(overlay)
	}
	return base
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func unionStrings(base, more []string) []string {
	out := base
	for _, s := range more {
		found := false
		for _, have := range out {
			if have == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}

func appendNode(list []*NodeTemplate, n *NodeTemplate) []*NodeTemplate {
	for _, have := range list {
		if have == n {
			return list
		}
	}
	return append(list, n)
}

func appendTerm(list []rdf.Term, t rdf.Term) []rdf.Term {
	for _, have := range list {
		if term.Equal(have, t) {
			return list
		}
	}
	return append(list, t)
}
