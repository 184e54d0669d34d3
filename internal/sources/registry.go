package sources

import (
	"log/slog"
	"sort"
	"strings"

	"sourcelink/internal/config"
	"sourcelink/internal/services"
)

// Registry holds the configured sources by name.
type Registry struct {
	sources map[string]Source
}

// NewRegistry builds an HTTPSource for every [[sources]] block in cfg.
func NewRegistry(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Registry, error) {
	r := &Registry{sources: make(map[string]Source)}
	if cfg == nil {
		return r, nil
	}
	opts = append([]Option{WithLogger(logger)}, opts...)
	for _, sc := range cfg.Sources {
		src, err := NewHTTPSource(sc, opts...)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "sources", "registry", "", err)
		}
		r.sources[src.Name()] = src
	}
	return r, nil
}

// Register adds or replaces a source under name.
func (r *Registry) Register(name string, src Source) {
	if r.sources == nil {
		r.sources = make(map[string]Source)
	}
	r.sources[strings.ToLower(strings.TrimSpace(name))] = src
}

// Get returns the named source.
func (r *Registry) Get(name string) (Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if src, ok := r.sources[name]; ok {
		return src, nil
	}
	return nil, services.Wrap(services.ErrConfiguration, "sources", "lookup",
		"unknown source "+name+" (configured: "+strings.Join(r.Names(), ", ")+")", nil)
}

// Names returns the registered source names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
