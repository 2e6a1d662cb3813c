// Package textsim holds the string normalization and similarity primitives used
// by duplicate detection.
package textsim

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeText lower-cases s, trims it and collapses internal whitespace to single spaces.
func NormalizeText(s string) string {
	// Casers are stateful, one per call.
	lowered := cases.Lower(language.Und).String(s)
	return strings.Join(strings.Fields(lowered), " ")
}

// LevenshteinSimilarity returns 1 - distance/max(len(a), len(b)) over runes.
// Two empty strings are identical; one empty string against a non-empty one scores 0.
// The comparison is case-sensitive.
func LevenshteinSimilarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 1.0
	}
	if la == 0 || lb == 0 {
		return 0.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(max(la, lb))
}

var (
	houseNumberRe = regexp.MustCompile(`^(\d+)[a-z]$`)

	// streetSuffixes are rewritten when a token ends with them (German compounds).
	streetSuffixes = []string{"straße", "strasse"}

	// streetWords are rewritten only as whole tokens.
	streetWords = map[string]string{
		"street": "st",
		"avenue": "ave",
		"road":   "rd",
	}
)

// NormalizeAddress canonicalizes an address for exact comparison: case, whitespace,
// punctuation, street suffix variants and house number letter suffixes.
// NormalizeAddress(NormalizeAddress(x)) == NormalizeAddress(x).
func NormalizeAddress(s string) string {
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.ReplaceAll(s, ".", "")
	tokens := strings.Fields(NormalizeText(s))
	for i, tok := range tokens {
		tokens[i] = normalizeAddressToken(tok)
	}
	return strings.Join(tokens, " ")
}

func normalizeAddressToken(tok string) string {
	for _, suffix := range streetSuffixes {
		if strings.HasSuffix(tok, suffix) {
			return strings.TrimSuffix(tok, suffix) + "str"
		}
	}
	if w, ok := streetWords[tok]; ok {
		return w
	}
	if m := houseNumberRe.FindStringSubmatch(tok); m != nil {
		return m[1]
	}
	return tok
}

// NormalizePhone keeps only digits and drops a leading "49" country code and then a
// leading trunk "0". It reports false when nothing is left.
func NormalizePhone(s string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	digits = strings.TrimPrefix(digits, "49")
	digits = strings.TrimPrefix(digits, "0")
	if digits == "" {
		return "", false
	}
	return digits, true
}

// NormalizeEmail trims and lower-cases an email address. It reports false for blanks.
func NormalizeEmail(s string) (string, bool) {
	e := strings.TrimFunc(s, unicode.IsSpace)
	if e == "" {
		return "", false
	}
	return strings.ToLower(e), true
}
