package mappingstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Mapping records that a canonical record resolved to SourceID on Source.
type Mapping struct {
	Source       string    `json:"source"`
	CanonicalID  string    `json:"canonical_id"`
	SourceID     string    `json:"source_id"`
	MatchedTitle string    `json:"matched_title"`
	Score        int       `json:"score"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// Store is a durable mapping store. Get reports found=false without error
// when no mapping exists. Delete of an absent mapping is not an error.
type Store interface {
	Get(ctx context.Context, source, canonicalID string) (Mapping, bool, error)
	Set(ctx context.Context, m Mapping) error
	Delete(ctx context.Context, source, canonicalID string) error
	// List returns mappings newest first; an empty source lists every source.
	List(ctx context.Context, source string) ([]Mapping, error)
	// Clear removes mappings for source, or all mappings when source is
	// empty, and returns how many were removed.
	Clear(ctx context.Context, source string) (int, error)
	Close() error
}

var (
	errEmptySource      = errors.New("source cannot be empty")
	errEmptyCanonicalID = errors.New("canonical ID cannot be empty")
	errEmptySourceID    = errors.New("source ID cannot be empty")
)

func normalizeKey(source, canonicalID string) (string, string, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	canonicalID = strings.TrimSpace(canonicalID)
	if source == "" {
		return "", "", errEmptySource
	}
	if canonicalID == "" {
		return "", "", errEmptyCanonicalID
	}
	return source, canonicalID, nil
}

func normalizeMapping(m Mapping) (Mapping, error) {
	source, canonicalID, err := normalizeKey(m.Source, m.CanonicalID)
	if err != nil {
		return Mapping{}, err
	}
	m.Source = source
	m.CanonicalID = canonicalID
	m.SourceID = strings.TrimSpace(m.SourceID)
	if m.SourceID == "" {
		return Mapping{}, errEmptySourceID
	}
	if m.ResolvedAt.IsZero() {
		m.ResolvedAt = time.Now()
	}
	m.ResolvedAt = m.ResolvedAt.UTC()
	return m, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
