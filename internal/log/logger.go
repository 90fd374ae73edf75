// SPDX-License-Identifier: MIT

// Package log provides structured logging utilities.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	Output  io.Writer // optional writer (defaults to os.Stdout)
	Service string    // optional service name attached to every log entry
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global zerolog logger. Only the first call
// takes effect; later calls are no-ops so libraries can call it safely.
func Configure(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(resolveLevel(cfg.Level))
		zerolog.TimeFieldFormat = time.RFC3339

		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		base = zerolog.New(out).With().
			Timestamp().
			Str("service", resolveService(cfg.Service)).
			Logger()
	})
}

func resolveLevel(explicit string) zerolog.Level {
	for _, candidate := range []string{explicit, os.Getenv("LOG_LEVEL")} {
		if candidate == "" {
			continue
		}
		if parsed, err := zerolog.ParseLevel(candidate); err == nil {
			return parsed
		}
	}
	return zerolog.InfoLevel
}

func resolveService(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("LOG_SERVICE"); env != "" {
		return env
	}
	return "sportarr"
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}
