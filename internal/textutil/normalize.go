package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds text to NFKC lowercase and keeps only letters and digits.
func Normalize(text string) string {
	folded := norm.NFKC.String(text)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// NormalizeArtist normalizes an artist name and drops a leading "The".
func NormalizeArtist(artist string) string {
	fields := strings.Fields(norm.NFKC.String(artist))
	if len(fields) > 1 && strings.EqualFold(fields[0], "the") {
		fields = fields[1:]
	}
	return Normalize(strings.Join(fields, " "))
}

// Contains reports whether the normalized form of text contains the
// normalized form of part. An empty part never matches.
func Contains(text, part string) bool {
	needle := Normalize(part)
	if needle == "" {
		return false
	}
	return strings.Contains(Normalize(text), needle)
}
