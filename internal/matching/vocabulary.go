package matching

import (
	"regexp"
	"strings"
)

// Latin keywords need word edges so "lp" does not match "help" and "cd" does
// not match "abcd". Hangul terms are matched as substrings.
var (
	allowLatin  = regexp.MustCompile(`(?:^|[^a-z0-9])(?:\d{0,2}lp|vinyl|12"|10"|7"|12inch|12 inch)(?:$|[^a-z0-9])`)
	allowHangul = []string{"바이닐", "엘피", "레코드", "lp판", "12인치", "비닐 음반"}

	blockLatin  = regexp.MustCompile(`(?:^|[^a-z0-9])(?:\d{0,2}cd|cds|cassette|dvd|blu-?ray|t-?shirts?|posters?|books?|photobook|magazine|turntable|cartridge|slipmat|stylus)(?:$|[^a-z0-9])`)
	blockHangul = []string{"카세트", "티셔츠", "포스터", "잡지", "화보", "포토북", "도서", "턴테이블", "카트리지", "슬립매트", "블루레이"}

	// overridePhrases mark bundles whose primary item is still the record.
	overridePhrases = []string{
		"lp+cd", "cd+lp", "lp + cd", "cd + lp", "with cd", "cd 포함",
		"lp & poster", "lp+poster", "with poster", "포스터 포함", "포스터 증정",
	}
)

func lowerText(parts ...string) string {
	return strings.ToLower(strings.Join(parts, " "))
}

func hasAllowKeyword(text string) bool {
	if allowLatin.MatchString(text) {
		return true
	}
	return containsAny(text, allowHangul)
}

func hasBlockKeyword(text string) bool {
	if blockLatin.MatchString(text) {
		return true
	}
	return containsAny(text, blockHangul)
}

func hasOverride(text string) bool {
	return containsAny(text, overridePhrases)
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// formatTagsDisqualified reports whether every catalog format tag names a
// non-record format, e.g. ["CD"] or ["Cassette", "DVD"].
func formatTagsDisqualified(tags []string) bool {
	if len(tags) == 0 {
		return false
	}
	for _, tag := range tags {
		text := lowerText(tag)
		if hasAllowKeyword(text) || !hasBlockKeyword(text) {
			return false
		}
	}
	return true
}
