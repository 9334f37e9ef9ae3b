package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - JSON for Linked Data",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for name, info := range FormatRegistry {
		if s == string(name) || s == info.Extension || s == strings.TrimPrefix(info.Extension, ".") {
			return name, nil
		}
	}
	switch s {
	case "ttl":
		return FormatTurtle, nil
	case "nt", "n-triples":
		return FormatNTriples, nil
	case "json-ld", "json":
		return FormatJSONLD, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// TurtleWriter formats terms for Turtle output, compacting IRIs with the
// prefixes it was given and declaring only the prefixes it used.
type TurtleWriter struct {
	prefixes map[string]string
	used     map[string]bool
	sb       strings.Builder
}

// NewTurtleWriter creates a new Turtle writer.
func NewTurtleWriter(prefixes map[string]string) *TurtleWriter {
	return &TurtleWriter{prefixes: prefixes, used: make(map[string]bool)}
}

// Term formats t in Turtle syntax.
func (w *TurtleWriter) Term(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.IRI:
		return w.iri(v.String())
	case rdf.Blank:
		return "_:" + term.BlankLabel(v)
	case rdf.Literal:
		return formatLiteral(v, w.iri)
	default:
		return fmt.Sprintf("\"%v\"", t)
	}
}

func (w *TurtleWriter) iri(iri string) string {
	if prefix, c := compactIRI(iri, w.prefixes); c != "" {
		w.used[prefix] = true
		return c
	}
	return fmt.Sprintf("<%s>", iri)
}

// WritePrefixes writes declarations for the prefixes used so far.
func (w *TurtleWriter) WritePrefixes() {
	// Sort prefixes for consistent output
	keys := make([]string, 0, len(w.used))
	for k := range w.used {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, prefix := range keys {
		w.sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, w.prefixes[prefix]))
	}
	if len(keys) > 0 {
		w.sb.WriteString("\n")
	}
}

// String returns the accumulated Turtle output.
func (w *TurtleWriter) String() string {
	return w.sb.String()
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteTriple writes a single triple.
func (w *NTriplesWriter) WriteTriple(subject, predicate, object rdf.Term) {
	w.sb.WriteString(fmt.Sprintf("%s %s %s .\n", ntriplesTerm(subject), ntriplesTerm(predicate), ntriplesTerm(object)))
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}

func ntriplesTerm(t rdf.Term) string {
	switch v := t.(type) {
	case rdf.IRI:
		return fmt.Sprintf("<%s>", v.String())
	case rdf.Blank:
		return "_:" + term.BlankLabel(v)
	case rdf.Literal:
		return formatLiteral(v, func(dt string) string { return fmt.Sprintf("<%s>", dt) })
	default:
		return fmt.Sprintf("\"%v\"", t)
	}
}

// JSONLDDocument represents a JSON-LD document structure.
type JSONLDDocument struct {
	Context map[string]any `json:"@context"`
	Graph   []JSONLDNode   `json:"@graph"`
}

// JSONLDNode represents a node in a JSON-LD graph.
type JSONLDNode struct {
	ID         string         `json:"@id"`
	Type       []string       `json:"@type,omitempty"`
	Properties map[string]any `json:"-"`
}

// MarshalJSON implements custom JSON marshaling for JSONLDNode.
func (n JSONLDNode) MarshalJSON() ([]byte, error) {
	// Create a map with all fields
	m := make(map[string]any)
	m["@id"] = n.ID
	if len(n.Type) > 0 {
		m["@type"] = n.Type
	}
	for k, v := range n.Properties {
		m[k] = v
	}
	return json.Marshal(m)
}

// JSONLDWriter writes RDF in JSON-LD format.
type JSONLDWriter struct {
	prefixes map[string]string
	used     map[string]bool
	doc      JSONLDDocument
}

// NewJSONLDWriter creates a new JSON-LD writer compacting with prefixes.
func NewJSONLDWriter(prefixes map[string]string) *JSONLDWriter {
	return &JSONLDWriter{
		prefixes: prefixes,
		used:     make(map[string]bool),
		doc: JSONLDDocument{
			Context: make(map[string]any),
			Graph:   make([]JSONLDNode, 0),
		},
	}
}

// Name returns the compact IRI or blank node identifier of t.
func (w *JSONLDWriter) Name(t rdf.Term) string {
	if b, ok := t.(rdf.Blank); ok {
		return "_:" + term.BlankLabel(b)
	}
	iri := term.Value(t)
	if prefix, c := compactIRI(iri, w.prefixes); c != "" {
		w.used[prefix] = true
		return c
	}
	return iri
}

// Value returns the JSON-LD value object of t.
func (w *JSONLDWriter) Value(t rdf.Term) any {
	l, ok := t.(rdf.Literal)
	if !ok {
		return map[string]any{"@id": w.Name(t)}
	}
	if lang := l.Lang(); lang != "" {
		return map[string]any{"@value": l.String(), "@language": lang}
	}
	dt := term.Datatype(l)
	if dt == "" || dt == shacl.XSDString {
		return l.String()
	}
	return map[string]any{"@value": l.String(), "@type": w.Name(term.MustIRI(dt))}
}

// AddNode adds a node to the graph.
func (w *JSONLDWriter) AddNode(id string, types []string, properties map[string]any) {
	node := JSONLDNode{
		ID:         id,
		Type:       types,
		Properties: properties,
	}
	w.doc.Graph = append(w.doc.Graph, node)
}

// String returns the JSON-LD output.
func (w *JSONLDWriter) String() string {
	for prefix := range w.used {
		w.doc.Context[prefix] = w.prefixes[prefix]
	}
	data, err := json.MarshalIndent(w.doc, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data) + "\n"
}
