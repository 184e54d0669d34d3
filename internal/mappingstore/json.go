package mappingstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"sourcelink/internal/logging"
)

const lockRetryDelay = 25 * time.Millisecond

// JSONStore keeps mappings in one JSON file. Every write reloads the file
// under an advisory lock so several processes can share it.
type JSONStore struct {
	path    string
	lock    *flock.Flock
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Mapping
}

// OpenJSON loads the mapping file at path. A missing file starts empty; an
// unreadable one is logged and replaced on the next write.
func OpenJSON(path string, logger *slog.Logger) (*JSONStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("json mapping store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create mapping store directory: %w", err)
	}

	s := &JSONStore{
		path:    path,
		lock:    flock.New(path + ".lock"),
		logger:  logging.NewComponentLogger(logger, "mappingstore"),
		entries: make(map[string]Mapping),
	}
	if err := s.load(); err != nil {
		logging.WarnWithContext(s.logger, "failed to load mapping file",
			"mappingstore_load_failed",
			logging.Error(err),
			logging.String("path", path),
			logging.String(logging.FieldErrorHint, "the file will be rewritten on the next resolution"),
			logging.String(logging.FieldImpact, "previously resolved titles will be re-resolved"))
	}
	return s, nil
}

func entryKey(source, canonicalID string) string {
	return source + "\x00" + canonicalID
}

// Get returns the mapping for (source, canonicalID).
func (s *JSONStore) Get(_ context.Context, source, canonicalID string) (Mapping, bool, error) {
	source, canonicalID, err := normalizeKey(source, canonicalID)
	if err != nil {
		return Mapping{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.entries[entryKey(source, canonicalID)]
	return m, ok, nil
}

// Set upserts a mapping and persists the file.
func (s *JSONStore) Set(ctx context.Context, m Mapping) error {
	m, err := normalizeMapping(m)
	if err != nil {
		return err
	}
	err = s.mutate(ctx, func(entries map[string]Mapping) {
		entries[entryKey(m.Source, m.CanonicalID)] = m
	})
	if err != nil {
		return err
	}
	s.logger.Debug("stored mapping",
		logging.String(logging.FieldSource, m.Source),
		logging.String(logging.FieldCanonicalID, m.CanonicalID),
		logging.String("source_id", m.SourceID))
	return nil
}

// Delete removes a mapping and persists the file.
func (s *JSONStore) Delete(ctx context.Context, source, canonicalID string) error {
	source, canonicalID, err := normalizeKey(source, canonicalID)
	if err != nil {
		return err
	}
	return s.mutate(ctx, func(entries map[string]Mapping) {
		delete(entries, entryKey(source, canonicalID))
	})
}

// List returns mappings newest first.
func (s *JSONStore) List(_ context.Context, source string) ([]Mapping, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Mapping, 0, len(s.entries))
	for _, m := range s.entries {
		if source == "" || m.Source == source {
			out = append(out, m)
		}
	}
	sortMappings(out)
	return out, nil
}

// Clear removes mappings for source, or every mapping when source is empty.
func (s *JSONStore) Clear(ctx context.Context, source string) (int, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	removed := 0
	err := s.mutate(ctx, func(entries map[string]Mapping) {
		for key, m := range entries {
			if source == "" || m.Source == source {
				delete(entries, key)
				removed++
			}
		}
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Close releases the file lock handle.
func (s *JSONStore) Close() error {
	return s.lock.Close()
}

// mutate reloads the file under the advisory lock, applies fn and writes the
// result back atomically.
func (s *JSONStore) mutate(ctx context.Context, fn func(map[string]Mapping)) error {
	ctx = ensureContext(ctx)
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire mapping file lock: %w", err)
	}
	if !locked {
		return errors.New("acquire mapping file lock: lock not acquired")
	}
	defer func() { _ = s.lock.Unlock() }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		logging.WarnWithContext(s.logger, "mapping file unreadable; overwriting",
			"mappingstore_reload_failed",
			logging.Error(err),
			logging.String("path", s.path),
			logging.String(logging.FieldImpact, "mappings written by other processes may be lost"))
	}
	fn(s.entries)
	if err := s.save(); err != nil {
		return fmt.Errorf("persist mappings: %w", err)
	}
	return nil
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *JSONStore) loadLocked() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read mapping file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var mappings []Mapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return fmt.Errorf("parse mapping file: %w", err)
	}
	entries := make(map[string]Mapping, len(mappings))
	for _, m := range mappings {
		if m.Source == "" || m.CanonicalID == "" || m.SourceID == "" {
			continue
		}
		entries[entryKey(m.Source, m.CanonicalID)] = m
	}
	s.entries = entries
	return nil
}

func (s *JSONStore) save() error {
	mappings := make([]Mapping, 0, len(s.entries))
	for _, m := range s.entries {
		mappings = append(mappings, m)
	}
	sortMappings(mappings)

	data, err := json.MarshalIndent(mappings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal mappings: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func sortMappings(mappings []Mapping) {
	sort.Slice(mappings, func(i, j int) bool {
		if !mappings[i].ResolvedAt.Equal(mappings[j].ResolvedAt) {
			return mappings[i].ResolvedAt.After(mappings[j].ResolvedAt)
		}
		if mappings[i].Source != mappings[j].Source {
			return mappings[i].Source < mappings[j].Source
		}
		return mappings[i].CanonicalID < mappings[j].CanonicalID
	})
}
