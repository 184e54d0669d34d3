package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sourcelink/internal/matching"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexYear accepts a number, a numeric string or a date such as "2002-10-03".
type flexYear int

func (f *flexYear) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	match := yearPattern.FindString(string(s))
	if match == "" {
		*f = 0
		return nil
	}
	year, _ := strconv.Atoi(match)
	*f = flexYear(year)
	return nil
}

// flexNumber accepts a number or a numeric string such as "12.5".
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexNumber(n)
	return nil
}

type searchHit struct {
	ID    flexString `json:"id"`
	Title string     `json:"title"`
	Name  string     `json:"name"`
	Year  flexYear   `json:"year"`
	Date  flexYear   `json:"releaseDate"`
	Type  string     `json:"type"`
	URL   string     `json:"url"`
}

func (h searchHit) candidate() matching.Candidate {
	title := strings.TrimSpace(h.Title)
	if title == "" {
		title = strings.TrimSpace(h.Name)
	}
	year := int(h.Year)
	if year == 0 {
		year = int(h.Date)
	}
	return matching.Candidate{
		SourceID:    string(h.ID),
		Title:       title,
		Year:        year,
		ContentType: strings.TrimSpace(h.Type),
		URL:         strings.TrimSpace(h.URL),
	}
}

type listEntry struct {
	ID     flexString `json:"id"`
	Title  string     `json:"title"`
	Number flexNumber `json:"number"`
	URL    string     `json:"url"`
}

type pageEntry struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Image string `json:"img"`
}

func (p *pageEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.URL)
	}
	type plain pageEntry
	return json.Unmarshal(data, (*plain)(p))
}

type detailPayload struct {
	Pages   []pageEntry `json:"pages"`
	Images  []pageEntry `json:"images"`
	Streams []Stream    `json:"streams"`
	Sources []Stream    `json:"sources"`
}

// decodeList accepts a bare array or an object holding the array under one of keys.
func decodeList[T any](data []byte, keys ...string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] == '[' {
		var out []T
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range keys {
		raw, ok := wrapper[key]
		if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		return out, nil
	}
	return nil, nil
}

func decodeCandidates(data []byte) ([]matching.Candidate, error) {
	hits, err := decodeList[searchHit](data, "results", "data", "items")
	if err != nil {
		return nil, err
	}
	out := make([]matching.Candidate, 0, len(hits))
	for _, hit := range hits {
		cand := hit.candidate()
		if cand.SourceID == "" || cand.Title == "" {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

func decodeContentItems(data []byte) ([]ContentItem, error) {
	entries, err := decodeList[listEntry](data, "items", "episodes", "chapters", "results")
	if err != nil {
		return nil, err
	}
	out := make([]ContentItem, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == "" {
			continue
		}
		out = append(out, ContentItem{
			ID:     string(entry.ID),
			Title:  strings.TrimSpace(entry.Title),
			Number: float64(entry.Number),
			URL:    strings.TrimSpace(entry.URL),
		})
	}
	return out, nil
}

func decodeDetail(contentID string, data []byte) (ContentDetail, error) {
	detail := ContentDetail{ContentID: contentID}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return detail, nil
	}

	var payload detailPayload
	if data[0] == '[' {
		if err := json.Unmarshal(data, &payload.Pages); err != nil {
			return detail, err
		}
	} else if err := json.Unmarshal(data, &payload); err != nil {
		return detail, err
	}

	pages := payload.Pages
	if len(pages) == 0 {
		pages = payload.Images
	}
	for idx, page := range pages {
		url := strings.TrimSpace(page.URL)
		if url == "" {
			url = strings.TrimSpace(page.Image)
		}
		if url == "" {
			continue
		}
		index := page.Index
		if index == 0 {
			index = idx + 1
		}
		detail.Pages = append(detail.Pages, Page{Index: index, URL: url})
	}

	streams := payload.Streams
	if len(streams) == 0 {
		streams = payload.Sources
	}
	for _, stream := range streams {
		if strings.TrimSpace(stream.URL) == "" {
			continue
		}
		detail.Streams = append(detail.Streams, stream)
	}
	return detail, nil
}
