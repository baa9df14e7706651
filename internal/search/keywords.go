package search

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords removes high-frequency tokens with no retrieval value.
// Korean particles commonly survive tokenization as standalone words.
var stopWords = map[string]struct{}{
	// English
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "by": {}, "at": {}, "is": {},
	"are": {}, "was": {}, "be": {}, "this": {}, "that": {}, "it": {}, "as": {},
	"from": {}, "will": {}, "can": {}, "not": {},
	// Korean
	"및": {}, "등": {}, "의": {}, "을": {}, "를": {}, "이": {}, "가": {},
	"은": {}, "는": {}, "에": {}, "에서": {}, "으로": {}, "로": {}, "와": {},
	"과": {}, "또는": {}, "있는": {}, "대한": {}, "위한": {}, "경우": {},
	"있습니다": {}, "합니다": {}, "수": {}, "것": {}, "중": {}, "내": {},
	"해당": {}, "관련": {}, "통해": {}, "따라": {}, "바랍니다": {},
}

// ExtractKeywords lowercases, tokenizes and removes stop words,
// returning the remaining distinct tokens sorted for determinism.
// Empty input yields an empty set.
func ExtractKeywords(text string) []string {
	tokens := tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	for _, tok := range tokens {
		if len(tok) == 0 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// keywordOverlap scores how much of the query keyword set appears in
// the candidate set: |intersection| / |query|, in [0,1].
func keywordOverlap(query, candidate []string) float64 {
	if len(query) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(candidate))
	for _, k := range candidate {
		set[k] = struct{}{}
	}
	hits := 0
	for _, k := range query {
		if _, ok := set[k]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
