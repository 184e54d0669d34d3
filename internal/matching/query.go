package matching

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"sourcelink/internal/textutil"
)

// DefaultMaxQueries bounds the number of search strings per resolution round.
const DefaultMaxQueries = 4

var (
	bracketPattern      = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	seasonMarkerPattern = regexp.MustCompile(`(?i)\b(?:season|part|cour)\s*\d{1,3}\b|\b\d{1,3}(?:st|nd|rd|th)\s+(?:season|part|cour)\b`)
	subtitleSeparator   = regexp.MustCompile(`:\s+|\s+[-–—]\s+`)
	spaceBeforePunct    = regexp.MustCompile(`\s+([:,])`)
)

// BuildQueries returns at most limit search strings for target: the primary
// title, then the English and romaji titles, then synonyms in order. Blank
// strings are skipped and duplicates are detected ignoring case and whitespace.
func BuildQueries(target TargetRecord, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxQueries
	}
	ordered := make([]string, 0, 3+len(target.Synonyms))
	ordered = append(ordered, target.PrimaryTitle(), target.TitleEnglish, target.TitleRomaji)
	ordered = append(ordered, target.Synonyms...)
	return appendQueries(nil, make(map[string]struct{}), ordered, limit, 1)
}

// FallbackQueries derives looser search strings from the target's titles and
// synonyms: bracketed text removed, season markers removed, and the part
// before a subtitle separator. Strings already present in tried are skipped.
func FallbackQueries(target TargetRecord, tried []string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxQueries
	}
	seen := make(map[string]struct{}, len(tried))
	for _, q := range tried {
		seen[textutil.QueryKey(q)] = struct{}{}
	}

	sources := append(target.Titles(), target.Synonyms...)
	variants := make([]string, 0, len(sources)*3)
	for _, title := range sources {
		variants = append(variants, titleVariants(title)...)
	}
	return appendQueries(nil, seen, variants, limit, 2)
}

func titleVariants(title string) []string {
	base := textutil.CollapseSpace(bracketPattern.ReplaceAllString(title, " "))
	if base == "" {
		base = textutil.CollapseSpace(strings.Trim(title, "[]() "))
	}
	noSeason := textutil.CollapseSpace(seasonMarkerPattern.ReplaceAllString(base, " "))
	noSeason = strings.Trim(spaceBeforePunct.ReplaceAllString(noSeason, "$1"), " :-")

	out := []string{base, noSeason}
	if parts := subtitleSeparator.Split(noSeason, 2); len(parts) == 2 {
		out = append(out, strings.TrimSpace(parts[0]))
	}
	return out
}

func appendQueries(dst []string, seen map[string]struct{}, values []string, limit, minRunes int) []string {
	for _, value := range values {
		if len(dst) >= limit {
			break
		}
		clean := textutil.CollapseSpace(value)
		if clean == "" || utf8.RuneCountInString(clean) < minRunes {
			continue
		}
		key := textutil.QueryKey(clean)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dst = append(dst, clean)
	}
	return dst
}
