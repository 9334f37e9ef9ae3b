// Package codec converts between RDF terms and the editable values held by
// the binder, preserving datatypes and language tags across a round trip.
package codec

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

// Kind is the term kind of a value.
type Kind int

// Value kinds.
const (
	KindLiteral Kind = iota
	KindIRI
	KindBlank
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	default:
		return "literal"
	}
}

// Value is an editable value. Datatype is empty for plain strings.
type Value struct {
	Lexical  string
	Language string
	Datatype string
	Kind     Kind
}

// IsEmpty reports whether the value carries no content.
func (v Value) IsEmpty() bool {
	return v.Lexical == ""
}

// Decode turns a term into a value. A nil term decodes to the empty value.
func Decode(t rdf.Term) Value {
	switch v := t.(type) {
	case rdf.IRI:
		return Value{Lexical: v.String(), Kind: KindIRI}
	case rdf.Blank:
		return Value{Lexical: term.BlankLabel(v), Kind: KindBlank}
	case rdf.Literal:
		out := Value{Lexical: v.String(), Language: v.Lang()}
		if out.Language == "" {
			if dt := v.DataType.String(); dt != shacl.XSDString && dt != shacl.RDFLangString {
				out.Datatype = dt
			}
		}
		return out
	default:
		return Value{}
	}
}

// Hints are the template facets that steer encoding.
type Hints struct {
	Datatype string
	NodeKind string
	// Class is set when the field constrains values with sh:class.
	Class bool
	// LanguageChooser is set when the field offers a language selection.
	LanguageChooser bool
	// Required is set when sh:minCount > 0.
	Required bool
}

// Encode converts a value back into a term. The second result is false when
// the value should not produce a triple.
//
// An IRI is produced when the node kind asks for one, when a class is
// expected, when the value already is an IRI, or when the field has no
// datatype and the text is an absolute URI. The absolute URI rule is skipped
// for fields that declare sh:datatype and for language tagged values, so a
// typed literal such as "http://x.org"^^xsd:anyURI reads back unchanged.
// Otherwise a literal is produced:
// a chosen language beats any datatype, then the template datatype, then the
// value's own datatype. xsd:string is written as a plain literal.
func Encode(v Value, h Hints) (rdf.Term, bool) {
	if v.Kind == KindBlank && v.Lexical != "" {
		b, err := term.NewBlank(v.Lexical)
		return b, err == nil
	}

	datatype := h.Datatype
	if datatype == "" && !h.LanguageChooser {
		datatype = v.Datatype
	}
	if datatype == shacl.XSDBoolean {
		return encodeBool(v, h.Required)
	}
	if v.Lexical == "" {
		return nil, false
	}

	if wantsIRI(v, h) {
		iri, err := term.NewIRI(strings.TrimSpace(v.Lexical))
		if err == nil {
			return iri, true
		}
	}

	if v.Language != "" && (h.LanguageChooser || h.Datatype == "" || h.Datatype == shacl.RDFLangString) {
		return term.LangLiteral(v.Lexical, v.Language), true
	}
	if datatype == shacl.RDFLangString {
		return term.PlainLiteral(v.Lexical), true
	}
	return term.TypedLiteral(v.Lexical, datatype), true
}

func wantsIRI(v Value, h Hints) bool {
	switch h.NodeKind {
	case shacl.NodeKindIRI, shacl.NodeKindBlankNodeOrIRI:
		return true
	case shacl.NodeKindLiteral, shacl.NodeKindBlankNodeOrLiteral:
		return false
	}
	if h.Class || v.Kind == KindIRI {
		return true
	}
	return h.Datatype == "" && v.Language == "" && IsAbsoluteURI(v.Lexical)
}

func encodeBool(v Value, required bool) (rdf.Term, bool) {
	switch strings.ToLower(strings.TrimSpace(v.Lexical)) {
	case "true", "1":
		return term.TypedLiteral("true", shacl.XSDBoolean), true
	}
	if required {
		return term.TypedLiteral("false", shacl.XSDBoolean), true
	}
	return nil, false
}

// IsAbsoluteURI reports whether s looks like an absolute URI: a scheme,
// no whitespace and something after the colon.
func IsAbsoluteURI(s string) bool {
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || !u.IsAbs() {
		return false
	}
	return u.Opaque != "" || u.Host != "" || u.Path != ""
}

// Bool parses the value as xsd:boolean.
func (v Value) Bool() (bool, error) {
	switch strings.TrimSpace(v.Lexical) {
	case "true", "1":
		return true, nil
	case "false", "0", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v.Lexical)
}

// Int parses the value as an integer.
func (v Value) Int() (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(v.Lexical), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", v.Lexical, err)
	}
	return n, nil
}

// Float parses the value as a decimal or floating point number.
func (v Value) Float() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Lexical), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", v.Lexical, err)
	}
	return f, nil
}

// Time parses xsd:date and xsd:dateTime values.
func (v Value) Time() (time.Time, error) {
	s := strings.TrimSpace(v.Lexical)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02Z07:00", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v.Lexical)
}
