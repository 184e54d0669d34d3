package testsupport

import (
	"context"
	"sync"

	"sourcelink/internal/matching"
	"sourcelink/internal/services"
	"sourcelink/internal/sources"
)

// FakeSource is a scripted sources.Source. Search returns Results[query], or
// Errors[query] when set; unknown queries return nothing.
type FakeSource struct {
	mu       sync.Mutex
	Results  map[string][]matching.Candidate
	Errors   map[string]error
	Items    map[string][]sources.ContentItem
	Details  map[string]sources.ContentDetail
	searches []string
	listed   []string
}

var _ sources.Source = (*FakeSource)(nil)

// NewFakeSource returns an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		Results: make(map[string][]matching.Candidate),
		Errors:  make(map[string]error),
		Items:   make(map[string][]sources.ContentItem),
		Details: make(map[string]sources.ContentDetail),
	}
}

// OnSearch scripts the result of query.
func (f *FakeSource) OnSearch(query string, candidates ...matching.Candidate) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[query] = candidates
	return f
}

// FailSearch makes query fail with a source-unavailable error.
func (f *FakeSource) FailSearch(query string) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[query] = services.Wrap(services.ErrSourceUnavailable, "fake", "search", query, nil)
	return f
}

// OnList scripts the content list of sourceID.
func (f *FakeSource) OnList(sourceID string, items ...sources.ContentItem) *FakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Items[sourceID] = items
	return f
}

// Search implements matching.Searcher.
func (f *FakeSource) Search(ctx context.Context, query string) ([]matching.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if err := f.Errors[query]; err != nil {
		return nil, err
	}
	return append([]matching.Candidate(nil), f.Results[query]...), nil
}

// ListContent implements sources.Source. Unknown IDs report not found.
func (f *FakeSource) ListContent(ctx context.Context, sourceID string) ([]sources.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, sourceID)
	items, ok := f.Items[sourceID]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "fake", "list content", sourceID, nil)
	}
	return append([]sources.ContentItem(nil), items...), nil
}

// ContentDetail implements sources.Source.
func (f *FakeSource) ContentDetail(ctx context.Context, contentID string) (sources.ContentDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	detail, ok := f.Details[contentID]
	if !ok {
		return sources.ContentDetail{}, services.Wrap(services.ErrNotFound, "fake", "content detail", contentID, nil)
	}
	return detail, nil
}

// SearchCount returns how many Search calls were made.
func (f *FakeSource) SearchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

// Searches returns the queries seen so far.
func (f *FakeSource) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

// Listed returns the source IDs passed to ListContent.
func (f *FakeSource) Listed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.listed...)
}
