package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"
)

// Format identifies an RDF serialization the loader can parse.
type Format string

// Supported input formats.
const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatRDFXML   Format = "rdfxml"
)

var extensions = map[string]Format{
	".ttl":    FormatTurtle,
	".turtle": FormatTurtle,
	".nt":     FormatNTriples,
	".rdf":    FormatRDFXML,
	".owl":    FormatRDFXML,
	".xml":    FormatRDFXML,
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	if f, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unsupported RDF file extension: %s", path)
}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "turtle", "ttl", "text/turtle":
		return FormatTurtle, nil
	case "ntriples", "nt", "n-triples", "application/n-triples":
		return FormatNTriples, nil
	case "rdfxml", "rdf", "xml", "owl", "application/rdf+xml":
		return FormatRDFXML, nil
	}
	return "", fmt.Errorf("unsupported RDF format: %s", name)
}

func (f Format) knakk() (rdf.Format, error) {
	switch f {
	case FormatTurtle:
		return rdf.Turtle, nil
	case FormatNTriples:
		return rdf.NTriples, nil
	case FormatRDFXML:
		return rdf.RDFXML, nil
	}
	return 0, fmt.Errorf("unsupported RDF format: %s", f)
}
