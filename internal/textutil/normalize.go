package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keepLetterDigit drops every rune that is not a letter or digit. Filtering
// happens before recomposition so NormalizeTitle is idempotent for scripts
// whose letters compose under NFC.
var keepLetterDigit = runes.Remove(runes.Predicate(func(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}))

// NormalizeTitle lowercases s, strips diacritics and removes everything that is
// not a letter or digit. "Shingeki no Kyojin: The Final Season" and
// "shingeki-no-kyojin the final season" share one key.
func NormalizeTitle(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	lowered := strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), keepLetterDigit, norm.NFC)
	out, _, err := transform.String(t, lowered)
	if err != nil {
		return fallbackNormalize(lowered)
	}
	return out
}

func fallbackNormalize(lowered string) string {
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CollapseSpace trims s and replaces every whitespace run with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryKey is the case- and whitespace-insensitive identity of a search string.
func QueryKey(s string) string {
	return strings.ToLower(CollapseSpace(s))
}
