// Package sortname builds the keys library entries are ordered by.
package sortname

import (
	"strings"
	"unicode"

	"github.com/ludotheque/ludotheque/pkg/normalize"
)

// articles are the leading words moved to the end of a sort title.
var articles = []string{"The", "A", "An"}

// numberWidth is how far digit runs are zero-padded in sort keys.
const numberWidth = 6

// ForTitle moves a leading article to the end, keeping its case:
// "The Witcher 3" becomes "Witcher 3, The". Titles without one come back
// trimmed but otherwise unchanged.
func ForTitle(title string) string {
	title = strings.TrimSpace(title)

	first, rest, found := strings.Cut(title, " ")
	if !found {
		return title
	}
	rest = strings.TrimSpace(rest)
	for _, article := range articles {
		if strings.EqualFold(first, article) && rest != "" {
			return rest + ", " + first
		}
	}
	return title
}

// Key is the stored ordering key: the sort title, accent and case folded,
// with numbers padded so "Final Fantasy 9" sorts before "Final Fantasy 10".
func Key(title string) string {
	return padNumbers(normalize.Title(ForTitle(title)))
}

func padNumbers(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); {
		if !unicode.IsDigit(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsDigit(runes[j]) {
			j++
		}
		for pad := numberWidth - (j - i); pad > 0; pad-- {
			b.WriteByte('0')
		}
		b.WriteString(string(runes[i:j]))
		i = j
	}
	return b.String()
}
