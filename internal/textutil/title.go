package textutil

import (
	"regexp"
	"strings"
)

// bracketPattern matches bracketed segments such as "(Remastered)",
// "[2LP]" or the CJK 【한정반】 style.
var bracketPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}|【[^】]*】|「[^」]*」|<[^>]*>`)

// noiseWords are format and edition markers storefronts bolt onto titles.
var noiseWords = []string{
	"lp", "2lp", "3lp", "4lp", "vinyl", "12\"", "바이닐", "엘피", "레코드", "lp판",
	"limited", "edition", "한정반", "리마스터", "remastered", "reissue", "180g", "gatefold",
}

// StripTitleNoise removes bracketed segments, the artist name and common
// format words from a storefront title, leaving the album title.
func StripTitleNoise(title, artist string) string {
	cleaned := bracketPattern.ReplaceAllString(title, " ")
	if artist = strings.TrimSpace(artist); artist != "" {
		cleaned = replaceFold(cleaned, artist)
	}
	fields := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == '|' || r == ',' || r == '·' || r == '–'
	})
	kept := fields[:0]
	for _, field := range fields {
		if isNoise(field) {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

// TitleScore compares the wanted album title with a candidate storefront
// title. The candidate is scored both raw and with noise stripped, and the
// better score wins.
func TitleScore(query, candidate, artist string) float64 {
	raw := Similarity(query, candidate)
	stripped := StripTitleNoise(candidate, artist)
	if stripped == "" {
		return raw
	}
	return max(raw, Similarity(query, stripped))
}

func isNoise(word string) bool {
	lowered := strings.ToLower(strings.TrimSpace(word))
	if lowered == "" {
		return true
	}
	for _, noise := range noiseWords {
		if lowered == noise {
			return true
		}
	}
	return false
}

func replaceFold(text, old string) string {
	lowerText := strings.ToLower(text)
	lowerOld := strings.ToLower(old)
	if len(lowerText) != len(text) || lowerOld == "" {
		return strings.ReplaceAll(text, old, " ")
	}
	var b strings.Builder
	for {
		idx := strings.Index(lowerText, lowerOld)
		if idx < 0 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:idx])
		b.WriteByte(' ')
		text = text[idx+len(old):]
		lowerText = lowerText[idx+len(lowerOld):]
	}
}
