package resolution

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"sourcelink/internal/logging"
	"sourcelink/internal/mappingstore"
	"sourcelink/internal/services"
)

// MappingCache is the cache contract the resolver depends on.
type MappingCache interface {
	// Lookup checks memory first, then the persistent layer.
	Lookup(ctx context.Context, source, canonicalID string) (mappingstore.Mapping, bool)
	// Remember records a mapping in memory only.
	Remember(m mappingstore.Mapping)
	// Persist writes a mapping to the persistent layer only.
	Persist(ctx context.Context, m mappingstore.Mapping) error
	// Invalidate drops a mapping from both layers.
	Invalidate(ctx context.Context, source, canonicalID string) error
}

type cacheKey struct {
	source      string
	canonicalID string
}

func newCacheKey(source, canonicalID string) cacheKey {
	return cacheKey{
		source:      strings.ToLower(strings.TrimSpace(source)),
		canonicalID: strings.TrimSpace(canonicalID),
	}
}

// Cache is a memory map in front of an optional persistent store. It is safe
// for concurrent use; racing writes for one key keep the last value.
type Cache struct {
	mu     sync.RWMutex
	memory map[cacheKey]mappingstore.Mapping
	store  mappingstore.Store
	logger *slog.Logger
}

var _ MappingCache = (*Cache)(nil)

// NewCache wraps store, which may be nil for a memory-only cache.
func NewCache(store mappingstore.Store, logger *slog.Logger) *Cache {
	return &Cache{
		memory: make(map[cacheKey]mappingstore.Mapping),
		store:  store,
		logger: logging.NewComponentLogger(logger, "resolution_cache"),
	}
}

// Lookup returns the cached mapping. A persistent hit is promoted to memory.
// Read failures of the persistent layer are logged and treated as a miss.
func (c *Cache) Lookup(ctx context.Context, source, canonicalID string) (mappingstore.Mapping, bool) {
	key := newCacheKey(source, canonicalID)
	if key.source == "" || key.canonicalID == "" {
		return mappingstore.Mapping{}, false
	}

	c.mu.RLock()
	m, ok := c.memory[key]
	c.mu.RUnlock()
	if ok {
		return m, true
	}
	if c.store == nil {
		return mappingstore.Mapping{}, false
	}

	m, ok, err := c.store.Get(ctx, key.source, key.canonicalID)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "mapping store read failed",
			"mapping_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the mapping store path and permissions"),
			logging.String(logging.FieldImpact, "title will be resolved from scratch"))
		return mappingstore.Mapping{}, false
	}
	if !ok {
		return mappingstore.Mapping{}, false
	}
	c.Remember(m)
	return m, true
}

// Remember records m in memory.
func (c *Cache) Remember(m mappingstore.Mapping) {
	key := newCacheKey(m.Source, m.CanonicalID)
	if key.source == "" || key.canonicalID == "" || strings.TrimSpace(m.SourceID) == "" {
		return
	}
	m.Source = key.source
	m.CanonicalID = key.canonicalID
	c.mu.Lock()
	c.memory[key] = m
	c.mu.Unlock()
}

// Persist writes m to the persistent store.
func (c *Cache) Persist(ctx context.Context, m mappingstore.Mapping) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Set(ctx, m); err != nil {
		return services.Wrap(services.ErrPersistence, "resolution_cache", "persist", m.Source+"/"+m.CanonicalID, err)
	}
	return nil
}

// Store writes m through to memory and the persistent store. The memory
// entry is kept even when persisting fails.
func (c *Cache) Store(ctx context.Context, m mappingstore.Mapping) error {
	c.Remember(m)
	return c.Persist(ctx, m)
}

// Invalidate removes the mapping from memory and from the persistent store so
// the next lookup misses.
func (c *Cache) Invalidate(ctx context.Context, source, canonicalID string) error {
	key := newCacheKey(source, canonicalID)
	c.mu.Lock()
	delete(c.memory, key)
	c.mu.Unlock()

	if c.store == nil || key.source == "" || key.canonicalID == "" {
		return nil
	}
	if err := c.store.Delete(ctx, key.source, key.canonicalID); err != nil {
		return services.Wrap(services.ErrPersistence, "resolution_cache", "invalidate", key.source+"/"+key.canonicalID, err)
	}
	return nil
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memory)
}
