package testsupport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sourcelink/internal/config"
	"sourcelink/internal/logging"
	"sourcelink/internal/mappingstore"
)

// MustOpenStore opens the configured mapping store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) mappingstore.Store {
	t.Helper()

	store, err := mappingstore.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("mappingstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// ErrStoreDown is returned by a MemoryStore with failure injection enabled.
var ErrStoreDown = errors.New("store down")

// MemoryStore is an in-memory mappingstore.Store that counts calls and can
// be told to fail.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]mappingstore.Mapping
	FailGet  bool
	FailSet  bool
	GetCalls int
	SetCalls int
	DelCalls int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]mappingstore.Mapping)}
}

func memoryKey(source, canonicalID string) string { return source + "/" + canonicalID }

// Get implements mappingstore.Store.
func (s *MemoryStore) Get(_ context.Context, source, canonicalID string) (mappingstore.Mapping, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GetCalls++
	if s.FailGet {
		return mappingstore.Mapping{}, false, ErrStoreDown
	}
	m, ok := s.entries[memoryKey(source, canonicalID)]
	return m, ok, nil
}

// Set implements mappingstore.Store.
func (s *MemoryStore) Set(_ context.Context, m mappingstore.Mapping) error {
	s.mu.Lock()
	s.SetCalls++
	fail := s.FailSet
	if !fail {
		s.entries[memoryKey(m.Source, m.CanonicalID)] = m
	}
	s.mu.Unlock()
	if fail {
		return ErrStoreDown
	}
	return nil
}

// Delete implements mappingstore.Store.
func (s *MemoryStore) Delete(_ context.Context, source, canonicalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DelCalls++
	delete(s.entries, memoryKey(source, canonicalID))
	return nil
}

// List implements mappingstore.Store.
func (s *MemoryStore) List(_ context.Context, source string) ([]mappingstore.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mappingstore.Mapping, 0, len(s.entries))
	for _, m := range s.entries {
		if source == "" || m.Source == source {
			out = append(out, m)
		}
	}
	return out, nil
}

// Clear implements mappingstore.Store.
func (s *MemoryStore) Clear(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, m := range s.entries {
		if source == "" || m.Source == source {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Close implements mappingstore.Store.
func (s *MemoryStore) Close() error { return nil }

// Counts returns the Get, Set and Delete call counts.
func (s *MemoryStore) Counts() (gets, sets, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetCalls, s.SetCalls, s.DelCalls
}

// SetFailures toggles failure injection.
func (s *MemoryStore) SetFailures(get, set bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailGet = get
	s.FailSet = set
}

// Has reports whether a mapping is stored.
func (s *MemoryStore) Has(source, canonicalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[memoryKey(source, canonicalID)]
	return ok
}
