// SPDX-License-Identifier: MIT

// Package match links classified streams to scheduled events, with a
// stable content fingerprint per pairing and a confidence score.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining diacritical marks after NFD
// decomposition, so "Montréal" and "Montreal" normalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// wordAliases resolves common short forms to their canonical spelling
// before comparison. Applied per word, after lowercasing.
var wordAliases = map[string]string{
	"ny":   "new york",
	"la":   "los angeles",
	"st":   "saint",
	"st.":  "saint",
	"utd":  "united",
	"fc":   "",
	"cf":   "",
	"sc":   "",
	"afc":  "",
	"vfb":  "",
	"inter": "internazionale",
}

// Normalize lowercases, strips diacritics and punctuation, resolves
// known abbreviations and collapses whitespace. The result is the
// canonical form used for scoring and fingerprinting, so it must stay
// stable across releases.
func Normalize(name string) string {
	if out, _, err := transform.String(stripMarks, name); err == nil {
		name = out
	}
	name = strings.ToLower(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	out := make([]string, 0, len(words))
	for _, w := range words {
		if alias, ok := wordAliases[w]; ok {
			if alias == "" {
				continue
			}
			out = append(out, alias)
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// tokens splits an already-normalized name into comparison tokens.
func tokens(normalized string) []string {
	return strings.Fields(normalized)
}
