package term

import (
	"strings"

	"github.com/knakk/rdf"
)

// SelectByLanguage picks one literal from candidates by language preference:
// the first candidate matching the earliest preferred language, then the
// first untagged literal, then the first literal found. A preference of "en"
// also matches "en-GB". Non-literal candidates are ignored. The second result
// is false when no literal was offered.
func SelectByLanguage(candidates []rdf.Term, preferred []string) (rdf.Literal, bool) {
	var first, untagged *rdf.Literal
	for i := range candidates {
		l, ok := candidates[i].(rdf.Literal)
		if !ok {
			continue
		}
		if first == nil {
			first = &l
		}
		if untagged == nil && l.Lang() == "" {
			untagged = &l
		}
	}
	if first == nil {
		return rdf.Literal{}, false
	}
	for _, want := range preferred {
		for _, c := range candidates {
			if l, ok := c.(rdf.Literal); ok && LanguageMatches(l.Lang(), want) {
				return l, true
			}
		}
	}
	if untagged != nil {
		return *untagged, true
	}
	return *first, true
}

// LanguageMatches reports whether tag satisfies the language range want.
// Comparison is case-insensitive; "en" matches "en" and "en-US".
func LanguageMatches(tag, want string) bool {
	if tag == "" || want == "" {
		return false
	}
	tag, want = strings.ToLower(tag), strings.ToLower(want)
	return tag == want || strings.HasPrefix(tag, want+"-")
}
