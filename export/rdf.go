// Package export serializes graphs of a storage.Dataset as Turtle,
// N-Triples or JSON-LD. Output is deterministic: subjects and predicates
// keep the order in which they were added.
package export

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/knakk/rdf"

	"github.com/c360studio/semform/storage"
	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"

	// FormatJSONLD produces JSON-LD (.jsonld) output.
	FormatJSONLD Format = "jsonld"
)

// Exporter serializes dataset graphs with a set of namespace prefixes.
type Exporter struct {
	prefixes map[string]string
}

// NewExporter creates an exporter. Nil prefixes use shacl.DefaultPrefixes.
func NewExporter(prefixes map[string]string) *Exporter {
	if prefixes == nil {
		prefixes = shacl.DefaultPrefixes()
	}
	return &Exporter{prefixes: prefixes}
}

// Export serializes graph of ds to the specified format. A nil graph
// exports every graph merged.
func (e *Exporter) Export(ds *storage.Dataset, graph rdf.Term, format Format) (string, error) {
	var sb strings.Builder
	if err := e.Write(&sb, ds, graph, format); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write serializes graph of ds to w.
func (e *Exporter) Write(w io.Writer, ds *storage.Dataset, graph rdf.Term, format Format) error {
	subjects := group(ds.Match(nil, nil, nil, graph))
	var out string
	switch format {
	case FormatTurtle:
		out = e.toTurtle(subjects)
	case FormatNTriples:
		out = toNTriples(subjects)
	case FormatJSONLD:
		out = e.toJSONLD(subjects)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	_, err := io.WriteString(w, out)
	return err
}

// subjectBlock holds the statements of one subject, predicates in first
// appearance order.
type subjectBlock struct {
	subject    rdf.Term
	predicates []predicateObjects
}

type predicateObjects struct {
	predicate rdf.Term
	objects   []rdf.Term
}

func group(quads []storage.Quad) []*subjectBlock {
	var blocks []*subjectBlock
	index := make(map[string]*subjectBlock)
	seen := make(map[string]bool)
	for _, q := range quads {
		// Merged graphs may repeat a triple.
		tk := term.Key(q.Subject) + " " + term.Key(q.Predicate) + " " + term.Key(q.Object)
		if seen[tk] {
			continue
		}
		seen[tk] = true

		sk := term.Key(q.Subject)
		b, ok := index[sk]
		if !ok {
			b = &subjectBlock{subject: q.Subject}
			index[sk] = b
			blocks = append(blocks, b)
		}
		found := false
		for i := range b.predicates {
			if term.Equal(b.predicates[i].predicate, q.Predicate) {
				b.predicates[i].objects = append(b.predicates[i].objects, q.Object)
				found = true
				break
			}
		}
		if !found {
			b.predicates = append(b.predicates, predicateObjects{predicate: q.Predicate, objects: []rdf.Term{q.Object}})
		}
	}
	return blocks
}

// toTurtle serializes to Turtle format.
func (e *Exporter) toTurtle(blocks []*subjectBlock) string {
	w := NewTurtleWriter(e.prefixes)
	var body strings.Builder
	for _, b := range blocks {
		body.WriteString(w.Term(b.subject))
		body.WriteString("\n")
		for i, po := range b.predicates {
			pred := "a"
			if term.IRIValue(po.predicate) != shacl.RDFType {
				pred = w.Term(po.predicate)
			}
			objects := make([]string, len(po.objects))
			for j, o := range po.objects {
				objects[j] = w.Term(o)
			}
			terminator := " ;"
			if i == len(b.predicates)-1 {
				terminator = " ."
			}
			body.WriteString(fmt.Sprintf("    %s %s%s\n", pred, strings.Join(objects, " , "), terminator))
		}
		body.WriteString("\n")
	}
	w.WritePrefixes()
	return w.String() + body.String()
}

// toNTriples serializes to N-Triples format.
func toNTriples(blocks []*subjectBlock) string {
	w := NewNTriplesWriter()
	for _, b := range blocks {
		for _, po := range b.predicates {
			for _, o := range po.objects {
				w.WriteTriple(b.subject, po.predicate, o)
			}
		}
	}
	return w.String()
}

// toJSONLD serializes to JSON-LD format.
func (e *Exporter) toJSONLD(blocks []*subjectBlock) string {
	w := NewJSONLDWriter(e.prefixes)
	for _, b := range blocks {
		var types []string
		props := make(map[string]any)
		for _, po := range b.predicates {
			if term.IRIValue(po.predicate) == shacl.RDFType {
				for _, o := range po.objects {
					types = append(types, w.Name(o))
				}
				continue
			}
			values := make([]any, len(po.objects))
			for i, o := range po.objects {
				values[i] = w.Value(o)
			}
			key := w.Name(po.predicate)
			if len(values) == 1 {
				props[key] = values[0]
			} else {
				props[key] = values
			}
		}
		w.AddNode(w.Name(b.subject), types, props)
	}
	return w.String()
}

var localName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// compactIRI returns prefix:local when the local part is safe to write
// unescaped, otherwise "".
func compactIRI(iri string, prefixes map[string]string) (string, string) {
	c := term.Compact(iri, prefixes)
	if c == iri {
		return "", ""
	}
	prefix, local, _ := strings.Cut(c, ":")
	if !localName.MatchString(local) {
		return "", ""
	}
	return prefix, c
}

// formatLiteral formats a literal with an explicit datatype writer.
func formatLiteral(l rdf.Literal, datatype func(string) string) string {
	s := fmt.Sprintf("\"%s\"", escapeString(l.String()))
	if lang := l.Lang(); lang != "" {
		return s + "@" + lang
	}
	dt := term.Datatype(l)
	if dt == "" || dt == shacl.XSDString {
		return s
	}
	return s + "^^" + datatype(dt)
}

// escapeString escapes special characters in strings for RDF serialization.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
