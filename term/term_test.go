package term_test

import (
	"testing"

	"github.com/knakk/rdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semform/term"
	"github.com/c360studio/semform/vocabulary/shacl"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		in   rdf.Term
		want string
	}{
		{"nil", nil, ""},
		{"iri", term.MustIRI("http://example.org/a"), "<http://example.org/a>"},
		{"blank", term.MustBlank("b1"), "_:b1"},
		{"blank with prefix", term.MustBlank("_:b1"), "_:b1"},
		{"plain", term.PlainLiteral("x"), `"x"`},
		{"explicit string", term.TypedLiteral("x", shacl.XSDString), `"x"`},
		{"typed", term.TypedLiteral("1", shacl.XSDInteger), `"1"^^<` + shacl.XSDInteger + `>`},
		{"lang", term.LangLiteral("chat", "FR"), `"chat"@fr`},
		{"quoted", term.PlainLiteral("a \"b\"\n"), `"a \"b\"\n"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, term.Key(tt.in))
		})
	}
}

func TestEqualDistinguishesKinds(t *testing.T) {
	iri := term.MustIRI("http://example.org/a")
	lit := term.PlainLiteral("http://example.org/a")
	assert.False(t, term.Equal(iri, lit))
	assert.True(t, term.Equal(iri, term.MustIRI("http://example.org/a")))
	assert.False(t, term.Equal(term.TypedLiteral("1", shacl.XSDInteger), term.TypedLiteral("1", shacl.XSDDecimal)))
}

func TestDatatype(t *testing.T) {
	assert.Equal(t, shacl.XSDString, term.Datatype(term.PlainLiteral("x")))
	assert.Equal(t, shacl.RDFLangString, term.Datatype(term.LangLiteral("x", "en")))
	assert.Equal(t, shacl.XSDDate, term.Datatype(term.TypedLiteral("2024-01-01", shacl.XSDDate)))
	assert.Equal(t, "", term.Datatype(term.MustIRI("http://example.org/a")))
}

func TestNewIRIRejectsEmpty(t *testing.T) {
	_, err := term.NewIRI("")
	require.Error(t, err)
	assert.Panics(t, func() { term.MustIRI("") })
}

func TestCompactAndExpand(t *testing.T) {
	prefixes := map[string]string{
		"ex":  "http://example.org/",
		"exv": "http://example.org/vocab#",
		"xsd": shacl.XSD,
	}
	tests := []struct {
		iri  string
		want string
	}{
		{"http://example.org/Person", "ex:Person"},
		{"http://example.org/vocab#name", "exv:name"},
		{shacl.XSDInteger, "xsd:integer"},
		{"http://other.org/x", "http://other.org/x"},
		{"http://example.org/", "http://example.org/"},
	}
	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			got := term.Compact(tt.iri, prefixes)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.iri, term.Expand(got, prefixes))
		})
	}
	assert.Equal(t, "http://x.org/a", term.Expand("http://x.org/a", prefixes))
}

func TestSelectByLanguage(t *testing.T) {
	en := term.LangLiteral("Name", "en")
	de := term.LangLiteral("Name (de)", "de-AT")
	plain := term.PlainLiteral("name")
	iri := term.MustIRI("http://example.org/x")

	tests := []struct {
		name       string
		candidates []rdf.Term
		prefs      []string
		want       string
		ok         bool
	}{
		{"preferred first", []rdf.Term{plain, en, de}, []string{"de", "en"}, "Name (de)", true},
		{"falls to untagged", []rdf.Term{en, plain}, []string{"fr"}, "name", true},
		{"falls to first", []rdf.Term{de, en}, []string{"fr"}, "Name (de)", true},
		{"no preference", []rdf.Term{en, plain}, nil, "name", true},
		{"ignores iris", []rdf.Term{iri, en}, nil, "Name", true},
		{"nothing", []rdf.Term{iri}, []string{"en"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := term.SelectByLanguage(tt.candidates, tt.prefs)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestLanguageMatches(t *testing.T) {
	assert.True(t, term.LanguageMatches("en-US", "en"))
	assert.True(t, term.LanguageMatches("EN", "en"))
	assert.False(t, term.LanguageMatches("eng", "en"))
	assert.False(t, term.LanguageMatches("", "en"))
}
