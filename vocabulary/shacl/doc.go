// Package shacl provides the SHACL, DASH and supporting RDF vocabularies
// understood by the semform resolver.
//
// # Semstreams Integration
//
// This package follows semstreams vocabulary patterns:
//   - Predicates use three-level dotted notation (shacl.category.property)
//   - Predicates are registered in init() using vocabulary.Register()
//   - IRI mappings use vocabulary.WithIRI() so the dotted name and the W3C IRI
//     can be translated in both directions
//
// # Closed Predicate Set
//
// The resolver dispatches on Predicate, a closed enumeration of the shape
// predicates that contribute to a form template. LookupPredicate maps an IRI
// onto the enumeration; anything not listed is PredicateUnknown and is
// ignored by the resolver.
//
//	switch shacl.LookupPredicate(iri) {
//	case shacl.PredicateMinCount:
//	    ...
//	}
//
// # Namespaces
//
// iris.go carries the namespace constants (SH, DASH, RDF, RDFS, XSD, OWL,
// DCTERMS) together with the individual class and datatype IRIs that the
// resolver, binder and codec compare against. DefaultPrefixes returns the
// prefix table used to compact IRIs in labels and Turtle output.
package shacl
