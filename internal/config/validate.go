package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateResolution(); err != nil {
		return err
	}
	if err := c.validateMappingStore(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateResolution() error {
	r := c.Resolution
	if r.MaxQueries > 10 {
		return errors.New("resolution.max_queries must be 10 or fewer")
	}
	if r.QueryTimeoutSeconds < 1 || r.QueryTimeoutSeconds > 60 {
		return errors.New("resolution.query_timeout_seconds must be between 1 and 60")
	}
	if r.HighConfidenceThreshold <= r.AcceptThreshold {
		return errors.New("resolution.high_confidence_threshold must exceed resolution.accept_threshold")
	}
	w := r.Weights
	if w.SeasonMatch <= 0 {
		return errors.New("resolution.weights.season_match must be positive")
	}
	if w.SeasonMismatch >= 0 {
		return errors.New("resolution.weights.season_mismatch must be negative")
	}
	if w.SeasonRescue >= w.SeasonMatch {
		return errors.New("resolution.weights.season_rescue must be lower than season_match")
	}
	if w.YearFar > 0 {
		return errors.New("resolution.weights.year_far must not be positive")
	}
	return nil
}

func (c *Config) validateMappingStore() error {
	switch c.MappingStore.Backend {
	case "sqlite", "json":
		return nil
	default:
		return fmt.Errorf("mapping_store.backend: unsupported value %q (use sqlite or json)", c.MappingStore.Backend)
	}
}

func (c *Config) validateSources() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		prefix := fmt.Sprintf("sources[%d]", i)
		if src.Name == "" {
			return fmt.Errorf("%s.name must be set", prefix)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("%s.name %q is duplicated", prefix, src.Name)
		}
		seen[src.Name] = struct{}{}
		switch src.Kind {
		case "anime", "manga":
		default:
			return fmt.Errorf("%s.kind must be anime or manga, got %q", prefix, src.Kind)
		}
		if err := validateHTTPURL(src.SearchURL); err != nil {
			return fmt.Errorf("%s.search_url: %w", prefix, err)
		}
		for key, value := range map[string]string{"list_url": src.ListURL, "detail_url": src.DetailURL} {
			if value == "" {
				continue
			}
			if !strings.Contains(value, "{id}") {
				return fmt.Errorf("%s.%s must contain the {id} placeholder", prefix, key)
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateHTTPURL(value string) error {
	if value == "" {
		return errors.New("must be set")
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
