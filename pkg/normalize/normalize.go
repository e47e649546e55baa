// Package normalize produces the canonical form of game titles used to match
// records across providers.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Title decomposes s, drops combining marks, lowercases and trims it, so
// "Pokémon" and "pokemon" compare equal. Title(Title(s)) == Title(s).
func Title(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		// The chain only fails on invalid UTF-8; fall back to the raw input.
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Equal reports whether two titles share a normalized form.
func Equal(a, b string) bool {
	return Title(a) == Title(b)
}
