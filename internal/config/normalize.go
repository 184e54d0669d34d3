package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAniList()
	c.normalizeResolution()
	if err := c.normalizeMappingStore(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAniList() {
	if value, ok := os.LookupEnv("SOURCELINK_ANILIST_URL"); ok && strings.TrimSpace(value) != "" {
		c.AniList.BaseURL = value
	}
	c.AniList.BaseURL = strings.TrimRight(strings.TrimSpace(c.AniList.BaseURL), "/")
	if c.AniList.BaseURL == "" {
		c.AniList.BaseURL = defaultAniListBaseURL
	}
	if c.AniList.TimeoutSeconds <= 0 {
		c.AniList.TimeoutSeconds = defaultAniListTimeoutSeconds
	}
}

func (c *Config) normalizeResolution() {
	if c.Resolution.MaxQueries <= 0 {
		c.Resolution.MaxQueries = defaultMaxQueries
	}
	if c.Resolution.Concurrency <= 0 || c.Resolution.Concurrency > c.Resolution.MaxQueries {
		c.Resolution.Concurrency = c.Resolution.MaxQueries
	}
	if c.Resolution.QueryTimeoutSeconds <= 0 {
		c.Resolution.QueryTimeoutSeconds = defaultQueryTimeoutSeconds
	}
}

func (c *Config) normalizeMappingStore() error {
	c.MappingStore.Backend = strings.ToLower(strings.TrimSpace(c.MappingStore.Backend))
	if c.MappingStore.Backend == "" {
		c.MappingStore.Backend = defaultMappingBackend
	}
	if strings.TrimSpace(c.MappingStore.Path) == "" {
		file := defaultSQLiteFile
		if c.MappingStore.Backend == "json" {
			file = defaultJSONFile
		}
		c.MappingStore.Path = filepath.Join(c.Paths.DataDir, file)
	}
	var err error
	if c.MappingStore.Path, err = expandPath(c.MappingStore.Path); err != nil {
		return fmt.Errorf("mapping_store.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSources() {
	for i := range c.Sources {
		src := &c.Sources[i]
		src.Name = strings.ToLower(strings.TrimSpace(src.Name))
		src.Kind = strings.ToLower(strings.TrimSpace(src.Kind))
		src.SearchURL = strings.TrimSpace(src.SearchURL)
		src.ListURL = strings.TrimSpace(src.ListURL)
		src.DetailURL = strings.TrimSpace(src.DetailURL)
		src.QueryParam = strings.TrimSpace(src.QueryParam)
		if src.QueryParam == "" {
			src.QueryParam = defaultSourceQueryParam
		}
		if src.TimeoutSeconds <= 0 {
			src.TimeoutSeconds = defaultSourceTimeoutSeconds
		}
		src.UserAgent = strings.TrimSpace(src.UserAgent)
		if src.UserAgent == "" {
			src.UserAgent = defaultUserAgent
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
