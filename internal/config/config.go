// Package config loads the settings of the magicstore command: a YAML file,
// then MAGICSTORE_* environment overrides. Command line flags are applied
// by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MAGICSTORE_"

// Config holds the command settings.
type Config struct {
	// Addr is the listen address of the HTTP API.
	Addr string `yaml:"addr"`
	// Catalog is the path of the YAML schema catalog.
	Catalog string `yaml:"catalog"`
	// DatabaseURL selects the repository, see internal/storage.
	DatabaseURL string `yaml:"database_url"`
	// PluralTables names SQL tables after the plural of their schema.
	PluralTables bool `yaml:"plural_tables"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Debug logs every SQL statement and runs gin in debug mode.
	Debug bool `yaml:"debug"`
	// CacheTTL enables the entity cache when positive.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// SlowQuery is the threshold above which SQL statements are logged.
	SlowQuery time.Duration `yaml:"slow_query"`
}

// Default returns the default settings.
func Default() Config {
	return Config{
		Addr:        ":8080",
		DatabaseURL: "memory://",
		LogLevel:    "info",
		SlowQuery:   100 * time.Millisecond,
	}
}

// Load reads the file at path, if path is not empty, over the defaults and
// applies the environment overrides.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(EnvPrefix + key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	if v, ok := get("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("CATALOG"); ok {
		c.Catalog = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	var errs []error
	if v, ok := get("PLURAL_TABLES"); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envError("PLURAL_TABLES", err))
		c.PluralTables = b
	}
	if v, ok := get("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envError("DEBUG", err))
		c.Debug = b
	}
	if v, ok := get("CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		errs = append(errs, envError("CACHE_TTL", err))
		c.CacheTTL = d
	}
	if v, ok := get("SLOW_QUERY"); ok {
		d, err := time.ParseDuration(v)
		errs = append(errs, envError("SLOW_QUERY", err))
		c.SlowQuery = d
	}
	return errors.Join(errs...)
}

func envError(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
}

// Validate checks the settings needed to serve the HTTP API.
func (c Config) Validate() error {
	var errs []error
	if c.Catalog == "" {
		errs = append(errs, errors.New("config: catalog is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("config: database_url is required"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel. Debug forces slog.LevelDebug.
func (c Config) Level() (slog.Level, error) {
	if c.Debug {
		return slog.LevelDebug, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	l, _ := c.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
