package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// AniList contains configuration for the metadata provider.
type AniList struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Weights holds the signed score contributions of each matching signal.
type Weights struct {
	Containment    int `toml:"containment"`
	SeasonMatch    int `toml:"season_match"`
	SeasonRescue   int `toml:"season_rescue"`
	SeasonMismatch int `toml:"season_mismatch"`
	YearClose      int `toml:"year_close"`
	YearFar        int `toml:"year_far"`
	TypeMatch      int `toml:"type_match"`
}

// Resolution contains configuration for candidate gathering and scoring.
type Resolution struct {
	MaxQueries              int     `toml:"max_queries"`
	Concurrency             int     `toml:"concurrency"`
	QueryTimeoutSeconds     int     `toml:"query_timeout_seconds"`
	FallbackQueries         bool    `toml:"fallback_queries"`
	AcceptThreshold         int     `toml:"accept_threshold"`
	HighConfidenceThreshold int     `toml:"high_confidence_threshold"`
	Weights                 Weights `toml:"weights"`
}

// MappingStore selects the persistent resolution mapping backend.
type MappingStore struct {
	Backend string `toml:"backend"` // "sqlite" or "json"
	Path    string `toml:"path"`
}

// Source describes one content site reachable through a JSON search endpoint.
type Source struct {
	Name           string `toml:"name"`
	Kind           string `toml:"kind"` // "anime" or "manga"
	SearchURL      string `toml:"search_url"`
	QueryParam     string `toml:"query_param"`
	ListURL        string `toml:"list_url"`   // must contain {id}
	DetailURL      string `toml:"detail_url"` // must contain {id}
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sourcelink.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - AniList: metadata provider endpoint
//   - Resolution: query fan-out, thresholds and signal weights
//   - MappingStore: persistent resolution mapping backend
//   - Sources: content sites resolved against
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	AniList      AniList      `toml:"anilist"`
	Resolution   Resolution   `toml:"resolution"`
	MappingStore MappingStore `toml:"mapping_store"`
	Sources      []Source     `toml:"sources"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sourcelink.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Source returns the configured source with the given name.
func (c *Config) Source(name string) (Source, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return Source{}, false
}

// SourceNames lists configured source names in declaration order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for _, src := range c.Sources {
		names = append(names, src.Name)
	}
	return names
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
