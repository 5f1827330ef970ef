// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultService = "resumer"

// Config captures options for configuring the global logger.
type Config struct {
	// Level is a zerolog level name; empty or unknown means info.
	Level   string
	Output  io.Writer // defaults to os.Stdout
	Service string    // defaults to "resumer"
	Version string
	// Console switches to human-readable output for interactive commands.
	Console bool
}

var (
	mu   sync.RWMutex
	base *zerolog.Logger
)

// Configure replaces the global logger. The daemon calls it once with safe
// defaults and again once the configuration is loaded.
func Configure(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = os.Stdout
	if cfg.Output != nil {
		w = cfg.Output
	}
	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	service := cfg.Service
	if service == "" {
		service = defaultService
	}

	l := zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Str("version", cfg.Version).
		Logger()

	mu.Lock()
	base = &l
	mu.Unlock()
}

func logger() zerolog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	if l != nil {
		return *l
	}
	Configure(Config{})
	return logger()
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with the component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}
