// Package config merges the built-in defaults, an optional config file and
// environment overrides into the effective bountycatch configuration.
package config

import (
	_ "embed"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/mosajjal/bountycatch/pkg/store"
	"github.com/rs/zerolog"
)

// Defaults is the embedded default configuration, also written out by --defaultconfig.
//
//go:embed config.defaults.yaml
var Defaults []byte

// Environment variables that override the store connection.
const (
	EnvRedisHost = "REDIS_HOST"
	EnvRedisPort = "REDIS_PORT"
)

// Config is the merged, read-only configuration of one process run.
type Config struct {
	k *koanf.Koanf
}

// LoggingConfig is the logging section of the config file.
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// APIConfig is the api section of the config file.
type APIConfig struct {
	Listen   string
	BasePath string
	RPS      float64
}

// Load builds the configuration from defaults, then path (if set and present),
// then the environment. Problems with the file or the environment are logged
// as warnings and never fail the load.
func Load(path string, logger zerolog.Logger) (*Config, error) {
	k := koanf.New(".")
	// load the defaults first, so if the config file is missing some values, we can fall back to the defaults
	if err := k.Load(rawbytes.Provider(Defaults), yaml.Parser()); err != nil {
		return nil, err
	}

	if path != "" {
		loadFile(k, path, logger)
	}

	_ = k.Load(env.ProviderWithValue("REDIS_", ".", func(key, value string) (string, interface{}) {
		if value == "" {
			return "", nil
		}
		switch key {
		case EnvRedisHost:
			return "store.host", value
		case EnvRedisPort:
			port, err := strconv.Atoi(value)
			if err != nil {
				logger.Warn().Msgf("invalid %s value: %s", EnvRedisPort, value)
				return "", nil
			}
			return "store.port", port
		}
		return "", nil
	}), nil)

	return &Config{k: k}, nil
}

func loadFile(k *koanf.Koanf, path string, logger zerolog.Logger) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug().Msgf("config file %s not found, using defaults", path)
		} else {
			logger.Warn().Msgf("failed to load config file %s: %s", path, err)
		}
		return
	}
	var parser koanf.Parser = yaml.Parser()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		parser = json.Parser()
	}
	// a parse failure leaves k untouched
	if err := k.Load(file.Provider(path), parser); err != nil {
		logger.Warn().Msgf("failed to load config file %s: %s", path, err)
		return
	}
	logger.Debug().Msgf("loaded config file %s", path)
}

// Store returns the store connection section.
func (c *Config) Store() store.Config {
	s := c.k.Cut("store")
	return store.Config{
		Engine:         s.String("engine"),
		Host:           s.String("host"),
		Port:           s.Int("port"),
		DB:             s.Int("db"),
		MaxConnections: s.Int("max_connections"),
		DialTimeout:    s.Duration("dial_timeout"),
		Path:           s.String("path"),
	}
}

// Logging returns the logging section.
func (c *Config) Logging() LoggingConfig {
	l := c.k.Cut("logging")
	return LoggingConfig{
		Level:  l.String("level"),
		Format: l.String("format"),
		File:   l.String("file"),
	}
}

// API returns the api section.
func (c *Config) API() APIConfig {
	a := c.k.Cut("api")
	return APIConfig{
		Listen:   a.String("listen"),
		BasePath: a.String("base_path"),
		RPS:      a.Float64("rps"),
	}
}

// Section returns any section as a raw map, including ones bountycatch doesn't know about.
func (c *Config) Section(name string) map[string]interface{} {
	return c.k.Cut(name).Raw()
}

// SetLevel overrides the logging level, used by --verbose.
func (c *Config) SetLevel(level string) {
	_ = c.k.Load(confmap.Provider(map[string]interface{}{"logging.level": level}, "."), nil)
}
