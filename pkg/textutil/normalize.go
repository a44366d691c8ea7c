// Package textutil turns portal display text into identifier-safe tokens and
// Brazilian-formatted numbers into floats.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unitReplacer folds the bracketed unit markers used in column titles.
// It runs before punctuation is stripped since it keys on the brackets.
var unitReplacer = strings.NewReplacer(
	"(Kg)", "_kg",
	"(US$)", "_us",
	"(L)", "_l",
)

var (
	disallowedChars = regexp.MustCompile(`[^A-Za-z0-9_\s-]`)
	separatorRuns   = regexp.MustCompile(`[\s_-]+`)
)

// Normalize converts display text such as "Produção (Kg)" into "producao_kg".
// The empty string stands for "no value" in both directions.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := stripAccents(text)
	s = unitReplacer.Replace(s)
	s = disallowedChars.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = separatorRuns.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// stripAccents decomposes text, drops combining marks and then any rune that
// still falls outside ASCII.
func stripAccents(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	s, _, err := transform.String(t, text)
	if err != nil {
		s = text
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasPrefixFold reports whether s starts with any of the prefixes, ignoring case.
func HasPrefixFold(s string, prefixes ...string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// IsTotalLabel reports whether a row label marks a total or subtotal row.
func IsTotalLabel(s string) bool {
	return HasPrefixFold(s, "total", "subtotal")
}
