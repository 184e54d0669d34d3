package resolution

import (
	"log/slog"
	"strings"

	"sourcelink/internal/config"
	"sourcelink/internal/services"
	"sourcelink/internal/sources"
)

// Engine holds one Linker per registered source, all sharing one Cache.
type Engine struct {
	cache   *Cache
	linkers map[string]*Linker
}

// NewEngine builds resolvers for every source in registry.
func NewEngine(cfg *config.Config, registry *sources.Registry, cache *Cache, logger *slog.Logger) *Engine {
	opts := Options{}
	if cfg != nil {
		opts = OptionsFromConfig(cfg.Resolution)
	}
	e := &Engine{cache: cache, linkers: make(map[string]*Linker)}
	for _, name := range registry.Names() {
		src, err := registry.Get(name)
		if err != nil {
			continue
		}
		resolver := NewResolver(name, src, cache, opts, logger)
		e.linkers[name] = NewLinker(resolver, src, logger)
	}
	return e
}

// Linker returns the linker for the named source.
func (e *Engine) Linker(source string) (*Linker, error) {
	source = strings.ToLower(strings.TrimSpace(source))
	if l, ok := e.linkers[source]; ok {
		return l, nil
	}
	return nil, services.Wrap(services.ErrConfiguration, "engine", "linker", "unknown source "+source, nil)
}

// Cache returns the shared resolution cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Wait blocks until every resolver's background writes have finished.
func (e *Engine) Wait() {
	for _, l := range e.linkers {
		l.resolver.Wait()
	}
}
