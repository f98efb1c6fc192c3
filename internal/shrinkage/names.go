package shrinkage

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// transformPairs maps a state token in the origin name to its transformed
// counterpart. Matching is case- and accent-insensitive over Spanish catalog
// names; replacement preserves the rest of the name.
var transformPairs = []struct {
	from string
	to   string
}{
	{"verde", "maduro"},
	{"fresco", "envejecido"},
	{"crudo", "cocido"},
	{"nuevo", "usado"},
}

var nameFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases and strips diacritics so "Plátano Verde" and
// "platano verde" compare equal.
func foldName(s string) string {
	folded, _, err := transform.String(nameFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// DeriveTransformedName derives the destination product name for an automatic
// appearance change. The first word matching a known state token is replaced,
// keeping its capitalization style; a name with no known token gets a generic
// suffix.
func DeriveTransformedName(origin string) string {
	words := strings.Fields(origin)
	for i, word := range words {
		folded := foldName(word)
		for _, pair := range transformPairs {
			if folded != pair.from {
				continue
			}
			replacement := pair.to
			if r := []rune(word); len(r) > 0 && unicode.IsUpper(r[0]) {
				replacement = cases.Title(language.Spanish).String(replacement)
			}
			words[i] = replacement
			return strings.Join(words, " ")
		}
	}
	return origin + " (transformado)"
}

// SameName reports whether two product names refer to the same product under
// fold rules.
func SameName(a, b string) bool {
	return foldName(a) == foldName(b)
}
