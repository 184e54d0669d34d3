package testsupport

import (
	"path/filepath"
	"testing"

	"sourcelink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.MappingStore.Path = filepath.Join(base, "data", "mappings.db")
	cfgVal.AniList.BaseURL = "http://127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSource appends a content source pointing at baseURL, using the
// /search, /list/{id} and /detail/{id} routes.
func WithSource(name, kind, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources = append(b.cfg.Sources, config.Source{
			Name:           name,
			Kind:           kind,
			SearchURL:      baseURL + "/search",
			QueryParam:     "q",
			ListURL:        baseURL + "/list/{id}",
			DetailURL:      baseURL + "/detail/{id}",
			TimeoutSeconds: 2,
		})
	}
}

// WithJSONMappingStore switches the mapping store to the JSON backend.
func WithJSONMappingStore() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.MappingStore.Backend = "json"
		b.cfg.MappingStore.Path = filepath.Join(b.baseDir, "data", "mappings.json")
	}
}

// WithAniList points the metadata client at url.
func WithAniList(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.AniList.BaseURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
