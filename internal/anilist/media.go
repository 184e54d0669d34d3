package anilist

import (
	"strconv"
	"strings"

	"sourcelink/internal/matching"
)

// Media types accepted by the API.
const (
	TypeAnime = "ANIME"
	TypeManga = "MANGA"
)

// Title holds the title variants AniList reports.
type Title struct {
	Romaji        string `json:"romaji"`
	English       string `json:"english"`
	Native        string `json:"native"`
	UserPreferred string `json:"userPreferred"`
}

// FuzzyDate is AniList's partial date.
type FuzzyDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Media is the subset of an AniList media object used for resolution.
type Media struct {
	ID         int64     `json:"id"`
	IDMal      int64     `json:"idMal"`
	Type       string    `json:"type"`
	Format     string    `json:"format"`
	Title      Title     `json:"title"`
	Synonyms   []string  `json:"synonyms"`
	SeasonYear int       `json:"seasonYear"`
	StartDate  FuzzyDate `json:"startDate"`
	Episodes   int       `json:"episodes"`
	Chapters   int       `json:"chapters"`
}

// Year returns the season year, falling back to the start date.
func (m Media) Year() int {
	if m.SeasonYear > 0 {
		return m.SeasonYear
	}
	return m.StartDate.Year
}

// DisplayTitle returns the user-preferred title, then English, romaji or native.
func (m Media) DisplayTitle() string {
	for _, title := range []string{m.Title.UserPreferred, m.Title.English, m.Title.Romaji, m.Title.Native} {
		if strings.TrimSpace(title) != "" {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

// Target converts the media into the record resolved against content sources.
func (m Media) Target() matching.TargetRecord {
	primary := strings.TrimSpace(m.Title.Romaji)
	if primary == "" {
		primary = m.DisplayTitle()
	}
	synonyms := make([]string, 0, len(m.Synonyms))
	for _, s := range m.Synonyms {
		if s = strings.TrimSpace(s); s != "" {
			synonyms = append(synonyms, s)
		}
	}
	return matching.TargetRecord{
		CanonicalID:  strconv.FormatInt(m.ID, 10),
		Title:        primary,
		TitleEnglish: strings.TrimSpace(m.Title.English),
		TitleRomaji:  strings.TrimSpace(m.Title.Romaji),
		TitleNative:  strings.TrimSpace(m.Title.Native),
		Synonyms:     synonyms,
		Year:         m.Year(),
		ContentType:  contentType(m.Format),
		MalID:        int(m.IDMal),
	}
}

// contentType maps AniList formats onto the labels content sites use.
func contentType(format string) string {
	switch strings.ToUpper(strings.TrimSpace(format)) {
	case "TV", "TV_SHORT":
		return "TV"
	case "MOVIE":
		return "Movie"
	case "OVA":
		return "OVA"
	case "ONA":
		return "ONA"
	case "SPECIAL":
		return "Special"
	case "MUSIC":
		return "Music"
	case "MANGA":
		return "Manga"
	case "NOVEL":
		return "Novel"
	case "ONE_SHOT":
		return "One Shot"
	default:
		return ""
	}
}
