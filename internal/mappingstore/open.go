package mappingstore

import (
	"fmt"
	"log/slog"

	"sourcelink/internal/config"
	"sourcelink/internal/services"
)

// Backend names accepted in the mapping_store configuration section.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Open returns the store selected by cfg.MappingStore.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "mappingstore", "open", "config is nil", nil)
	}
	switch cfg.MappingStore.Backend {
	case BackendSQLite, "":
		store, err := OpenSQLite(cfg.MappingStore.Path)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "mappingstore", "open sqlite", cfg.MappingStore.Path, err)
		}
		return store, nil
	case BackendJSON:
		store, err := OpenJSON(cfg.MappingStore.Path, logger)
		if err != nil {
			return nil, services.Wrap(services.ErrPersistence, "mappingstore", "open json", cfg.MappingStore.Path, err)
		}
		return store, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "mappingstore", "open",
			fmt.Sprintf("unknown backend %q", cfg.MappingStore.Backend), nil)
	}
}
