package shacl

// Namespace IRIs.
const (
	SH      = "http://www.w3.org/ns/shacl#"
	DASH    = "http://datashapes.org/dash#"
	RDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	XSD     = "http://www.w3.org/2001/XMLSchema#"
	OWL     = "http://www.w3.org/2002/07/owl#"
	DCTERMS = "http://purl.org/dc/terms/"
	SKOS    = "http://www.w3.org/2004/02/skos/core#"
)

// RDF and RDFS terms.
const (
	RDFType       = RDF + "type"
	RDFFirst      = RDF + "first"
	RDFRest       = RDF + "rest"
	RDFNil        = RDF + "nil"
	RDFLangString = RDF + "langString"

	RDFSLabel      = RDFS + "label"
	RDFSComment    = RDFS + "comment"
	RDFSSubClassOf = RDFS + "subClassOf"
	RDFSClass      = RDFS + "Class"

	OWLImports = OWL + "imports"
	OWLClass   = OWL + "Class"

	DCTermsConformsTo = DCTERMS + "conformsTo"
)

// SHACL classes and node kinds.
const (
	NodeShape     = SH + "NodeShape"
	PropertyShape = SH + "PropertyShape"

	NodeKindIRI                = SH + "IRI"
	NodeKindBlankNode          = SH + "BlankNode"
	NodeKindLiteral            = SH + "Literal"
	NodeKindBlankNodeOrIRI     = SH + "BlankNodeOrIRI"
	NodeKindBlankNodeOrLiteral = SH + "BlankNodeOrLiteral"
	NodeKindIRIOrLiteral       = SH + "IRIOrLiteral"
)

// XML Schema datatypes the codec treats specially.
const (
	XSDString   = XSD + "string"
	XSDBoolean  = XSD + "boolean"
	XSDInteger  = XSD + "integer"
	XSDInt      = XSD + "int"
	XSDLong     = XSD + "long"
	XSDDecimal  = XSD + "decimal"
	XSDDouble   = XSD + "double"
	XSDFloat    = XSD + "float"
	XSDDate     = XSD + "date"
	XSDDateTime = XSD + "dateTime"
	XSDAnyURI   = XSD + "anyURI"
)

// DefaultPrefixes returns the prefix table used for IRI compaction.
// The returned map is a fresh copy and may be modified by the caller.
func DefaultPrefixes() map[string]string {
	return map[string]string{
		"sh":      SH,
		"dash":    DASH,
		"rdf":     RDF,
		"rdfs":    RDFS,
		"xsd":     XSD,
		"owl":     OWL,
		"dcterms": DCTERMS,
		"skos":    SKOS,
	}
}
