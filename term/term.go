// Package term wraps the knakk/rdf term model with the helpers the resolver
// needs: canonical keys, constructors, language selection and IRI
// compaction.
package term

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/vocabulary/shacl"
)

// Key returns the canonical string form of t. Two terms are equal iff their
// keys are equal. A nil term has the empty key.
//
// IRIs render as <iri>, blank nodes as _:label, literals as a quoted
// lexical form followed by @lang or ^^<datatype>. xsd:string is omitted so
// plain and explicitly typed strings compare equal.
func Key(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case rdf.IRI:
		return "<" + v.String() + ">"
	case rdf.Blank:
		return "_:" + BlankLabel(v)
	case rdf.Literal:
		s := strconv.Quote(v.String())
		if lang := v.Lang(); lang != "" {
			return s + "@" + strings.ToLower(lang)
		}
		if dt := v.DataType.String(); dt != "" && dt != shacl.XSDString && dt != shacl.RDFLangString {
			return s + "^^<" + dt + ">"
		}
		return s
	default:
		return t.String()
	}
}

// Equal reports whether a and b denote the same term.
func Equal(a, b rdf.Term) bool {
	return Key(a) == Key(b)
}

// Value returns the raw string of a term: the IRI, the blank node label or
// the literal's lexical form.
func Value(t rdf.Term) string {
	switch v := t.(type) {
	case nil:
		return ""
	case rdf.Blank:
		return BlankLabel(v)
	default:
		return t.String()
	}
}

// BlankLabel returns the label of a blank node without the "_:" prefix.
func BlankLabel(b rdf.Blank) string {
	return strings.TrimPrefix(b.String(), "_:")
}

// IsIRI reports whether t is an IRI.
func IsIRI(t rdf.Term) bool {
	_, ok := t.(rdf.IRI)
	return ok
}

// IsBlank reports whether t is a blank node.
func IsBlank(t rdf.Term) bool {
	_, ok := t.(rdf.Blank)
	return ok
}

// IsResource reports whether t can be the subject of a triple.
func IsResource(t rdf.Term) bool {
	return IsIRI(t) || IsBlank(t)
}

// IsLiteral reports whether t is a literal.
func IsLiteral(t rdf.Term) bool {
	_, ok := t.(rdf.Literal)
	return ok
}

// IRIValue returns the IRI string of t, or "" when t is not an IRI.
func IRIValue(t rdf.Term) string {
	if v, ok := t.(rdf.IRI); ok {
		return v.String()
	}
	return ""
}

// NewIRI builds an IRI term, rejecting empty and malformed input.
func NewIRI(s string) (rdf.IRI, error) {
	iri, err := rdf.NewIRI(s)
	if err != nil {
		return rdf.IRI{}, fmt.Errorf("invalid IRI %q: %w", s, err)
	}
	return iri, nil
}

// MustIRI is NewIRI for constants; it panics on malformed input.
func MustIRI(s string) rdf.IRI {
	iri, err := NewIRI(s)
	if err != nil {
		panic(err)
	}
	return iri
}

// NewBlank builds a blank node with the given label.
func NewBlank(label string) (rdf.Blank, error) {
	b, err := rdf.NewBlank(strings.TrimPrefix(label, "_:"))
	if err != nil {
		return rdf.Blank{}, fmt.Errorf("invalid blank node %q: %w", label, err)
	}
	return b, nil
}

// MustBlank is NewBlank for labels known to be valid.
func MustBlank(label string) rdf.Blank {
	b, err := NewBlank(label)
	if err != nil {
		panic(err)
	}
	return b
}

// PlainLiteral builds an xsd:string literal.
func PlainLiteral(lexical string) rdf.Literal {
	return rdf.NewTypedLiteral(lexical, xsdString)
}

// TypedLiteral builds a literal with the given datatype IRI. An empty or
// malformed datatype yields a plain literal.
func TypedLiteral(lexical, datatype string) rdf.Literal {
	if datatype == "" || datatype == shacl.XSDString {
		return PlainLiteral(lexical)
	}
	dt, err := rdf.NewIRI(datatype)
	if err != nil {
		return PlainLiteral(lexical)
	}
	return rdf.NewTypedLiteral(lexical, dt)
}

// LangLiteral builds a language-tagged literal. An invalid tag yields a
// plain literal.
func LangLiteral(lexical, lang string) rdf.Literal {
	if lang == "" {
		return PlainLiteral(lexical)
	}
	l, err := rdf.NewLangLiteral(lexical, lang)
	if err != nil {
		return PlainLiteral(lexical)
	}
	return l
}

// Datatype returns the datatype IRI of a literal. Language-tagged literals
// report rdf:langString, untyped ones xsd:string. Non-literals return "".
func Datatype(t rdf.Term) string {
	l, ok := t.(rdf.Literal)
	if !ok {
		return ""
	}
	if l.Lang() != "" {
		return shacl.RDFLangString
	}
	if dt := l.DataType.String(); dt != "" {
		return dt
	}
	return shacl.XSDString
}

// Lang returns the language tag of a literal, or "".
func Lang(t rdf.Term) string {
	if l, ok := t.(rdf.Literal); ok {
		return l.Lang()
	}
	return ""
}

var xsdString = MustIRI(shacl.XSDString)

// Compact shortens iri to prefix:local using the longest matching namespace
// in prefixes. The IRI is returned unchanged when nothing matches or the
// local part would be empty.
func Compact(iri string, prefixes map[string]string) string {
	best, bestNS := "", ""
	for prefix, ns := range prefixes {
		if ns == "" || !strings.HasPrefix(iri, ns) || len(iri) == len(ns) {
			continue
		}
		if len(ns) > len(bestNS) || (len(ns) == len(bestNS) && prefix < best) {
			best, bestNS = prefix, ns
		}
	}
	if bestNS == "" {
		return iri
	}
	return best + ":" + iri[len(bestNS):]
}

// Expand turns prefix:local back into a full IRI. Strings that do not use a
// known prefix are returned unchanged.
func Expand(s string, prefixes map[string]string) string {
	prefix, local, ok := strings.Cut(s, ":")
	if !ok || strings.HasPrefix(local, "//") {
		return s
	}
	if ns, found := prefixes[prefix]; found {
		return ns + local
	}
	return s
}

// SortedPrefixes returns the prefix names in lexical order.
func SortedPrefixes(prefixes map[string]string) []string {
	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
