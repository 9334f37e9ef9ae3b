package shacl

import "github.com/c360studio/semstreams/vocabulary"

// Predicate is the closed set of shape predicates that contribute to a form
// template. The zero value is PredicateUnknown.
type Predicate int

// Predicate values, in the order they are registered.
const (
	PredicateUnknown Predicate = iota
	PredicatePath
	PredicateName
	PredicateDescription
	PredicateDatatype
	PredicateNodeKind
	PredicateClass
	PredicateNode
	PredicateProperty
	PredicateAnd
	PredicateOr
	PredicateXone
	PredicateTargetClass
	PredicateMinCount
	PredicateMaxCount
	PredicateQualifiedValueShape
	PredicateQualifiedMinCount
	PredicateQualifiedMaxCount
	PredicateMinLength
	PredicateMaxLength
	PredicateMinInclusive
	PredicateMaxInclusive
	PredicateMinExclusive
	PredicateMaxExclusive
	PredicatePattern
	PredicateFlags
	PredicateLanguageIn
	PredicateUniqueLang
	PredicateIn
	PredicateHasValue
	PredicateDefaultValue
	PredicateOrder
	PredicateGroup
	PredicateSingleLine
	PredicateReadonly

	predicateCount
)

// Dotted predicate names registered with the semstreams vocabulary.
const (
	ShapePath                = "shacl.property.path"
	ShapeName                = "shacl.property.name"
	ShapeDescription         = "shacl.property.description"
	ShapeDatatype            = "shacl.value.datatype"
	ShapeNodeKind            = "shacl.value.nodekind"
	ShapeClass               = "shacl.value.class"
	ShapeNode                = "shacl.shape.node"
	ShapeProperty            = "shacl.shape.property"
	ShapeAnd                 = "shacl.logic.and"
	ShapeOr                  = "shacl.logic.or"
	ShapeXone                = "shacl.logic.xone"
	ShapeTargetClass         = "shacl.target.class"
	ShapeMinCount            = "shacl.cardinality.mincount"
	ShapeMaxCount            = "shacl.cardinality.maxcount"
	ShapeQualifiedValueShape = "shacl.qualified.shape"
	ShapeQualifiedMinCount   = "shacl.qualified.mincount"
	ShapeQualifiedMaxCount   = "shacl.qualified.maxcount"
	ShapeMinLength           = "shacl.string.minlength"
	ShapeMaxLength           = "shacl.string.maxlength"
	ShapeMinInclusive        = "shacl.range.mininclusive"
	ShapeMaxInclusive        = "shacl.range.maxinclusive"
	ShapeMinExclusive        = "shacl.range.minexclusive"
	ShapeMaxExclusive        = "shacl.range.maxexclusive"
	ShapePattern             = "shacl.string.pattern"
	ShapeFlags               = "shacl.string.flags"
	ShapeLanguageIn          = "shacl.string.languagein"
	ShapeUniqueLang          = "shacl.string.uniquelang"
	ShapeIn                  = "shacl.value.in"
	ShapeHasValue            = "shacl.value.hasvalue"
	ShapeDefaultValue        = "shacl.value.default"
	ShapeOrder               = "shacl.display.order"
	ShapeGroup               = "shacl.display.group"
	DashSingleLine           = "dash.editor.singleline"
	DashReadonly             = "dash.editor.readonly"
)

type predicateInfo struct {
	name        string
	iri         string
	description string
	dataType    string
}

var predicateTable = [predicateCount]predicateInfo{
	PredicateUnknown:             {},
	PredicatePath:                {ShapePath, SH + "path", "Property path of a property shape", "iri"},
	PredicateName:                {ShapeName, SH + "name", "Human readable field label", "string"},
	PredicateDescription:         {ShapeDescription, SH + "description", "Human readable field description", "string"},
	PredicateDatatype:            {ShapeDatatype, SH + "datatype", "Literal datatype of the values", "iri"},
	PredicateNodeKind:            {ShapeNodeKind, SH + "nodeKind", "Allowed term kind of the values", "iri"},
	PredicateClass:               {ShapeClass, SH + "class", "Required rdf:type of the values", "iri"},
	PredicateNode:                {ShapeNode, SH + "node", "Shape the values or focus node must also conform to", "iri"},
	PredicateProperty:            {ShapeProperty, SH + "property", "Property shape attached to a node shape", "iri"},
	PredicateAnd:                 {ShapeAnd, SH + "and", "List of shapes that all apply", "list"},
	PredicateOr:                  {ShapeOr, SH + "or", "List of alternative shapes", "list"},
	PredicateXone:                {ShapeXone, SH + "xone", "List of exclusive alternative shapes", "list"},
	PredicateTargetClass:         {ShapeTargetClass, SH + "targetClass", "Class whose instances the shape targets", "iri"},
	PredicateMinCount:            {ShapeMinCount, SH + "minCount", "Minimum number of values", "int"},
	PredicateMaxCount:            {ShapeMaxCount, SH + "maxCount", "Maximum number of values", "int"},
	PredicateQualifiedValueShape: {ShapeQualifiedValueShape, SH + "qualifiedValueShape", "Shape a counted subset of values conforms to", "iri"},
	PredicateQualifiedMinCount:   {ShapeQualifiedMinCount, SH + "qualifiedMinCount", "Minimum number of qualified values", "int"},
	PredicateQualifiedMaxCount:   {ShapeQualifiedMaxCount, SH + "qualifiedMaxCount", "Maximum number of qualified values", "int"},
	PredicateMinLength:           {ShapeMinLength, SH + "minLength", "Minimum string length", "int"},
	PredicateMaxLength:           {ShapeMaxLength, SH + "maxLength", "Maximum string length", "int"},
	PredicateMinInclusive:        {ShapeMinInclusive, SH + "minInclusive", "Inclusive lower bound", "float"},
	PredicateMaxInclusive:        {ShapeMaxInclusive, SH + "maxInclusive", "Inclusive upper bound", "float"},
	PredicateMinExclusive:        {ShapeMinExclusive, SH + "minExclusive", "Exclusive lower bound", "float"},
	PredicateMaxExclusive:        {ShapeMaxExclusive, SH + "maxExclusive", "Exclusive upper bound", "float"},
	PredicatePattern:             {ShapePattern, SH + "pattern", "Regular expression the lexical form must match", "string"},
	PredicateFlags:               {ShapeFlags, SH + "flags", "Regular expression flags for sh:pattern", "string"},
	PredicateLanguageIn:          {ShapeLanguageIn, SH + "languageIn", "Allowed language tags", "list"},
	PredicateUniqueLang:          {ShapeUniqueLang, SH + "uniqueLang", "At most one value per language tag", "bool"},
	PredicateIn:                  {ShapeIn, SH + "in", "Enumeration of allowed values", "list"},
	PredicateHasValue:            {ShapeHasValue, SH + "hasValue", "Value that must be present", "term"},
	PredicateDefaultValue:        {ShapeDefaultValue, SH + "defaultValue", "Value proposed for new entries", "term"},
	PredicateOrder:               {ShapeOrder, SH + "order", "Relative display order", "float"},
	PredicateGroup:               {ShapeGroup, SH + "group", "Property group the field belongs to", "iri"},
	PredicateSingleLine:          {DashSingleLine, DASH + "singleLine", "Value must not contain line breaks", "bool"},
	PredicateReadonly:            {DashReadonly, DASH + "readOnly", "Value is not editable", "bool"},
}

var predicateByIRI = func() map[string]Predicate {
	m := make(map[string]Predicate, predicateCount)
	for p := PredicateUnknown + 1; p < predicateCount; p++ {
		m[predicateTable[p].iri] = p
	}
	return m
}()

// LookupPredicate maps a predicate IRI onto the closed enumeration.
func LookupPredicate(iri string) Predicate {
	return predicateByIRI[iri]
}

// Predicates returns every known predicate in declaration order.
func Predicates() []Predicate {
	out := make([]Predicate, 0, predicateCount-1)
	for p := PredicateUnknown + 1; p < predicateCount; p++ {
		out = append(out, p)
	}
	return out
}

// IRI returns the W3C IRI of the predicate, or "" for PredicateUnknown.
func (p Predicate) IRI() string {
	if p <= PredicateUnknown || p >= predicateCount {
		return ""
	}
	return predicateTable[p].iri
}

// Name returns the dotted vocabulary name.
func (p Predicate) Name() string {
	if p <= PredicateUnknown || p >= predicateCount {
		return ""
	}
	return predicateTable[p].name
}

func (p Predicate) String() string {
	if n := p.Name(); n != "" {
		return n
	}
	return "unknown"
}

func init() {
	for _, p := range Predicates() {
		info := predicateTable[p]
		vocabulary.Register(info.name,
			vocabulary.WithDescription(info.description),
			vocabulary.WithDataType(info.dataType),
			vocabulary.WithIRI(info.iri))
	}
}
