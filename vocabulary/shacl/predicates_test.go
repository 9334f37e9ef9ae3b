package shacl_test

import (
	"testing"

	"github.com/c360studio/semstreams/vocabulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semform/vocabulary/shacl"
)

func TestPredicatesRegistered(t *testing.T) {
	for _, p := range shacl.Predicates() {
		t.Run(p.Name(), func(t *testing.T) {
			meta := vocabulary.GetPredicateMetadata(p.Name())
			require.NotNil(t, meta, "predicate %q not registered", p.Name())
			assert.Equal(t, p.IRI(), meta.StandardIRI)
			assert.NotEmpty(t, meta.Description)
		})
	}
}

func TestLookupPredicate(t *testing.T) {
	tests := []struct {
		iri  string
		want shacl.Predicate
	}{
		{shacl.SH + "path", shacl.PredicatePath},
		{shacl.SH + "qualifiedValueShape", shacl.PredicateQualifiedValueShape},
		{shacl.SH + "languageIn", shacl.PredicateLanguageIn},
		{shacl.DASH + "singleLine", shacl.PredicateSingleLine},
		{shacl.RDFSLabel, shacl.PredicateUnknown},
		{"", shacl.PredicateUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			assert.Equal(t, tt.want, shacl.LookupPredicate(tt.iri))
		})
	}
}

func TestPredicateRoundTrip(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range shacl.Predicates() {
		assert.Equal(t, p, shacl.LookupPredicate(p.IRI()))
		assert.False(t, seen[p.Name()], "duplicate name %s", p.Name())
		seen[p.Name()] = true
	}
	assert.Equal(t, "", shacl.PredicateUnknown.IRI())
	assert.Equal(t, "unknown", shacl.PredicateUnknown.String())
}

func TestDefaultPrefixesIsCopy(t *testing.T) {
	a := shacl.DefaultPrefixes()
	a["sh"] = "changed"
	assert.Equal(t, shacl.SH, shacl.DefaultPrefixes()["sh"])
}
