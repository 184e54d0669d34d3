package matching

import "strings"

// TargetRecord is the canonical metadata entity being resolved.
type TargetRecord struct {
	CanonicalID  string   `json:"canonical_id"`
	Title        string   `json:"title"`
	TitleEnglish string   `json:"title_english,omitempty"`
	TitleRomaji  string   `json:"title_romaji,omitempty"`
	TitleNative  string   `json:"title_native,omitempty"`
	Synonyms     []string `json:"synonyms,omitempty"`
	Year         int      `json:"year,omitempty"`
	ContentType  string   `json:"content_type,omitempty"`
	SeasonHint   int      `json:"season_hint,omitempty"`
	MalID        int      `json:"mal_id,omitempty"`
}

// PrimaryTitle returns Title, falling back to the English, romaji and native
// titles in that order.
func (t TargetRecord) PrimaryTitle() string {
	for _, title := range []string{t.Title, t.TitleEnglish, t.TitleRomaji, t.TitleNative} {
		if strings.TrimSpace(title) != "" {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

// Titles lists the non-empty primary, English, romaji and native titles.
func (t TargetRecord) Titles() []string {
	out := make([]string, 0, 4)
	for _, title := range []string{t.Title, t.TitleEnglish, t.TitleRomaji, t.TitleNative} {
		if strings.TrimSpace(title) != "" {
			out = append(out, title)
		}
	}
	return out
}

// Candidate is one search result from a content source. SourceID is only
// meaningful within the source that produced it.
type Candidate struct {
	SourceID    string `json:"id"`
	Title       string `json:"title"`
	Year        int    `json:"year,omitempty"`
	ContentType string `json:"type,omitempty"`
	URL         string `json:"url,omitempty"`
}

// ScoredCandidate pairs a candidate with its score against one target.
type ScoredCandidate struct {
	Candidate Candidate `json:"candidate"`
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

// Breakdown records each signal's signed contribution to a score.
type Breakdown struct {
	Containment  int    `json:"containment"`
	Season       int    `json:"season"`
	SeasonReason string `json:"season_reason"`
	Year         int    `json:"year"`
	Type         int    `json:"type"`
}

// Total sums the contributions.
func (b Breakdown) Total() int {
	return b.Containment + b.Season + b.Year + b.Type
}
