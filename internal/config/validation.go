// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

type validator struct {
	errs []error
}

func (v *validator) add(field string, value any, msg string) {
	v.errs = append(v.errs, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *validator) oneOf(field, value string, allowed ...string) {
	if !slices.Contains(allowed, strings.ToLower(value)) {
		v.add(field, value, "must be one of "+strings.Join(allowed, ", "))
	}
}

func (v *validator) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.add(field, value, "is required")
	}
}

func (v *validator) rangeInt(field string, value, lo, hi int) {
	if value < lo || value > hi {
		v.add(field, value, fmt.Sprintf("must be between %d and %d", lo, hi))
	}
}

// Validate checks every field and reports all problems at once, wrapping ErrInvalid.
func Validate(cfg AppConfig) error {
	v := &validator{}

	v.oneOf("logLevel", cfg.LogLevel, "trace", "debug", "info", "warn", "error")
	v.required("dataDir", cfg.DataDir)
	v.required("api.listenAddr", cfg.API.ListenAddr)
	if cfg.API.RateLimitRPM < 0 {
		v.add("api.rateLimitRPM", cfg.API.RateLimitRPM, "must not be negative")
	}
	if cfg.API.ShutdownTimeout <= 0 {
		v.add("api.shutdownTimeout", cfg.API.ShutdownTimeout, "must be positive")
	}

	if u, err := url.Parse(cfg.Spotify.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		v.add("spotify.baseURL", cfg.Spotify.BaseURL, "must be an absolute URL")
	}
	v.rangeInt("spotify.pageSize", cfg.Spotify.PageSize, 1, 100)
	if cfg.Spotify.RateLimit <= 0 {
		v.add("spotify.rateLimit", cfg.Spotify.RateLimit, "must be positive")
	}

	p := cfg.Persistence
	v.oneOf("persistence.local", p.Local, "file", "sqlite")
	v.oneOf("persistence.mirror.backend", p.Mirror.Backend, "none", "memory", "redis", "github")
	v.rangeInt("persistence.mirror.pushRetries", p.Mirror.PushRetries, 0, 10)
	switch strings.ToLower(p.Mirror.Backend) {
	case "redis":
		v.required("persistence.mirror.redis.addr", p.Mirror.Redis.Addr)
	case "github":
		v.required("persistence.mirror.github.owner", p.Mirror.GitHub.Owner)
		v.required("persistence.mirror.github.repo", p.Mirror.GitHub.Repo)
		if p.Mirror.GitHub.Token == "" {
			v.add("persistence.mirror.github.token", "", "is required")
		}
	}
	if p.Mirror.Backend != "none" {
		v.required("persistence.mirror.key", p.Mirror.Key)
	}

	v.oneOf("resume.positionPolicy", cfg.Resume.PositionPolicy, "start", "saved")
	v.rangeInt("resume.listConcurrency", cfg.Resume.ListConcurrency, 1, 32)

	if cfg.Telemetry.Enabled {
		v.oneOf("telemetry.exporterType", cfg.Telemetry.ExporterType, "grpc", "http")
		v.required("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		v.add("telemetry.samplingRate", cfg.Telemetry.SamplingRate, "must be between 0 and 1")
	}

	if len(v.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(v.errs...))
}
