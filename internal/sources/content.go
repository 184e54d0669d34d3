package sources

// Source kinds.
const (
	KindAnime = "anime"
	KindManga = "manga"
)

// ContentItem is one episode or chapter of a resolved title.
type ContentItem struct {
	ID     string  `json:"id"`
	Title  string  `json:"title,omitempty"`
	Number float64 `json:"number,omitempty"`
	URL    string  `json:"url,omitempty"`
}

// Page is one image of a manga chapter.
type Page struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// Stream is one playable rendition of an episode.
type Stream struct {
	URL     string `json:"url"`
	Quality string `json:"quality,omitempty"`
	Type    string `json:"type,omitempty"`
}

// ContentDetail holds the pages of a chapter or the streams of an episode.
type ContentDetail struct {
	ContentID string   `json:"content_id"`
	Pages     []Page   `json:"pages,omitempty"`
	Streams   []Stream `json:"streams,omitempty"`
}

// Empty reports whether the detail carries nothing usable.
func (d ContentDetail) Empty() bool {
	return len(d.Pages) == 0 && len(d.Streams) == 0
}
