// Package dedup clusters announcements republished across portals into
// project groups and selects one canonical record per group.
package dedup

import (
	"strings"
	"unicode"
)

// orgSynonyms collapses known organization-name variants onto one form.
var orgSynonyms = map[string]string{
	"중기부":        "중소벤처기업부",
	"중소벤처부":      "중소벤처기업부",
	"소진공":        "소상공인시장진흥공단",
	"중진공":        "중소벤처기업진흥공단",
	"창진원":        "창업진흥원",
	"기정원":        "중소기업기술정보진흥원",
	"콘진원":        "한국콘텐츠진흥원",
	"산자부":        "산업통상자원부",
	"산업부":        "산업통상자원부",
	"과기정통부":      "과학기술정보통신부",
	"smba":       "중소벤처기업부",
	"kosmes":     "중소벤처기업진흥공단",
	"kised":      "창업진흥원",
}

// corporateSuffixes are dropped from organization names before matching.
var corporateSuffixes = []string{
	"(주)", "（주）", "주식회사", "(재)", "(사)", "재단법인", "사단법인",
	"co., ltd", "co.,ltd", "inc.", "ltd.", "llc",
}

// yearPrefixes like "2026년" vary across re-publications of the same
// program and are stripped from names.
func stripYearPrefix(s string) string {
	runes := []rune(s)
	i := 0
	for i < len(runes) && unicode.IsDigit(runes[i]) {
		i++
	}
	if i == 4 && i < len(runes) && (runes[i] == '년' || runes[i] == '-') {
		return strings.TrimSpace(string(runes[i+1:]))
	}
	return s
}

// NormalizeName produces the name half of the dedup fingerprint.
func NormalizeName(name string) string {
	return normalize(stripYearPrefix(strings.TrimSpace(name)))
}

// NormalizeOrg produces the organization half of the dedup fingerprint.
func NormalizeOrg(org string) string {
	s := strings.ToLower(strings.TrimSpace(org))
	for _, suffix := range corporateSuffixes {
		s = strings.ReplaceAll(s, suffix, "")
	}
	s = normalize(s)
	if canonical, ok := orgSynonyms[s]; ok {
		return canonical
	}
	return s
}

// normalize lowercases and drops punctuation, symbols and whitespace so
// that spacing/punctuation variants collide.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
