// Package config provides configuration management for the erdash CLI.
//
// Configuration is layered: defaults, then an erdash.yaml config file, then
// ERDASH_-prefixed environment variables, then explicitly set CLI flags.
package config

import (
	"context"
	"log/slog"

	"github.com/sabrimoh/erdash/internal/db"
)

// Default values applied before any other configuration source.
const (
	DefaultOutDir   = "erd_output"
	DefaultSchema   = "public"
	DefaultPort     = 8050
	DefaultSnapshot = "erd_metadata.json"
)

// Config holds all CLI configuration options.
type Config struct {
	Database     db.Config `koanf:"database"`
	Schema       string    `koanf:"schema"`
	OutDir       string    `koanf:"out_dir"`
	SnapshotPath string    `koanf:"snapshot"`
	Port         int       `koanf:"port"`
	Watch        bool      `koanf:"watch"`
	Workers      int       `koanf:"workers"`
	Verbose      bool      `koanf:"verbose"`
}

type configKey struct{}
type loggerKey struct{}

// IntoContext stores the config in a context.
func IntoContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from a context, falling back to defaults.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Schema:       DefaultSchema,
		OutDir:       DefaultOutDir,
		SnapshotPath: DefaultSnapshot,
		Port:         DefaultPort,
	}
}

// LoggerIntoContext stores the logger in a context.
func LoggerIntoContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext retrieves the logger from a context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}
