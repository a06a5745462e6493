package main

import (
	"os"
	"strings"
	"time"

	"github.com/apicus/apicus/internal/catalog"
	"github.com/rs/zerolog"
)

// Config holds settings for the API server.
type Config struct {
	ListenAddr      string
	CatalogPath     string
	DatabaseURL     string
	CatalogTable    string
	LogLevel        zerolog.Level
	ShutdownTimeout time.Duration
}

const (
	defaultListenAddr      = ":8080"
	defaultShutdownTimeout = 10 * time.Second
)

// parseConfig reads the APICUS_* environment. Invalid values fall back to
// their defaults with a warning.
func parseConfig(logger zerolog.Logger) Config {
	config := Config{
		ListenAddr:      getenv("APICUS_LISTEN_ADDR", defaultListenAddr),
		CatalogPath:     strings.TrimSpace(os.Getenv("APICUS_CATALOG_PATH")),
		DatabaseURL:     strings.TrimSpace(os.Getenv("APICUS_DATABASE_URL")),
		CatalogTable:    getenv("APICUS_CATALOG_TABLE", catalog.DefaultTable),
		LogLevel:        zerolog.InfoLevel,
		ShutdownTimeout: defaultShutdownTimeout,
	}

	if raw := os.Getenv("APICUS_LOG_LEVEL"); raw != "" {
		if level, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil && level != zerolog.NoLevel {
			config.LogLevel = level
		} else {
			logger.Warn().Str("value", raw).Msg("invalid APICUS_LOG_LEVEL, using info")
		}
	}

	if raw := os.Getenv("APICUS_SHUTDOWN_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			config.ShutdownTimeout = d
		} else {
			logger.Warn().Str("value", raw).Msg("invalid APICUS_SHUTDOWN_TIMEOUT, using default")
		}
	}

	return config
}

// catalogSource names the catalog backend: Postgres when a database URL is
// set, then a file, then the embedded sample.
func (c Config) catalogSource() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.CatalogPath != "":
		return "file"
	default:
		return "embedded"
	}
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
