package main

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"sourcelink/internal/anilist"
	"sourcelink/internal/config"
	"sourcelink/internal/logging"
	"sourcelink/internal/mappingstore"
	"sourcelink/internal/resolution"
	"sourcelink/internal/sources"
)

type commandContext struct {
	configFlag   *string
	jsonFlag     *bool
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		jsonFlag:     jsonFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

// JSONMode reports whether --json was passed.
func (c *commandContext) JSONMode() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) resolvedLogLevel(cfg *config.Config) string {
	if c.logLevelFlag != nil {
		if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
			return level
		}
	}
	if cfg == nil {
		return "info"
	}
	return cfg.Logging.Level
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		effective := *cfg
		effective.Logging.Level = c.resolvedLogLevel(cfg)
		c.logger, c.loggerErr = logging.NewFromConfig(&effective)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) anilistClient() (*anilist.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.AniList.TimeoutSeconds) * time.Second
	return anilist.New(cfg.AniList.BaseURL, anilist.WithTimeout(timeout))
}

// withStore opens the configured mapping store for the duration of fn.
func (c *commandContext) withStore(fn func(mappingstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := mappingstore.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withEngine wires the store, cache and source registry into an engine. Background
// mapping writes are drained before the store closes.
func (c *commandContext) withEngine(fn func(*resolution.Engine) error) error {
	return c.withStore(func(store mappingstore.Store) error {
		cfg, _ := c.ensureConfig()
		logger, _ := c.ensureLogger()
		registry, err := sources.NewRegistry(cfg, logger)
		if err != nil {
			return err
		}
		engine := resolution.NewEngine(cfg, registry, resolution.NewCache(store, logger), logger)
		defer engine.Wait()
		return fn(engine)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
