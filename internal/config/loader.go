// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence.
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// ConfigPath returns the YAML file path, empty for ENV-only configuration.
func (l *Loader) ConfigPath() string { return l.configPath }

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    "data",
		LogLevel:   "info",
		LogService: "resumer",
		API: APIConfig{
			ListenAddr:      ":8080",
			RateLimitRPM:    120,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Spotify: SpotifyConfig{
			BaseURL:        "https://api.spotify.com",
			Timeout:        10 * time.Second,
			RateLimit:      10,
			RateLimitBurst: 20,
			PageSize:       100,
		},
		Persistence: PersistenceConfig{
			Local: "file",
			Mirror: MirrorConfig{
				Backend:        "none",
				Key:            "progress.json",
				PushRetries:    0,
				InitialBackoff: 500 * time.Millisecond,
				MaxBackoff:     10 * time.Second,
				Redis:          RedisConfig{Prefix: "resumer"},
				GitHub:         GitHubConfig{Branch: "main", Timeout: 15 * time.Second},
			},
		},
		Resume: ResumeConfig{
			PositionPolicy:  "start",
			ListConcurrency: 4,
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
	}
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Strict order: defaults -> parse file (strict) -> apply env -> derive -> validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	// SAFETY: Ensure DataDir is absolute
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	cfg.Persistence.Path = LocalPath(cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LocalPath returns the configured local artifact path, or the default
// for the local backend inside DataDir.
func LocalPath(cfg AppConfig) string {
	if cfg.Persistence.Path != "" {
		return filepath.Clean(cfg.Persistence.Path)
	}
	if cfg.Persistence.Local == "sqlite" {
		return filepath.Join(cfg.DataDir, "checkpoints.sqlite")
	}
	return filepath.Join(cfg.DataDir, "progress.json")
}

// loadFile decodes a YAML file over cfg with STRICT parsing.
// Unknown fields cause an error to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: Ensure no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	p := EnvPrefix

	cfg.DataDir = l.envString(p+"DATA", cfg.DataDir)
	cfg.LogLevel = l.envString(p+"LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString(p+"LOG_SERVICE", cfg.LogService)

	cfg.API.ListenAddr = l.envString(p+"LISTEN", cfg.API.ListenAddr)
	cfg.API.RateLimitRPM = l.envInt(p+"API_RATE_LIMIT_RPM", cfg.API.RateLimitRPM)
	cfg.API.ShutdownTimeout = l.envDuration(p+"SHUTDOWN_TIMEOUT", cfg.API.ShutdownTimeout)

	cfg.Spotify.BaseURL = l.envString(p+"SPOTIFY_BASE_URL", cfg.Spotify.BaseURL)
	cfg.Spotify.Timeout = l.envDuration(p+"SPOTIFY_TIMEOUT", cfg.Spotify.Timeout)
	cfg.Spotify.RateLimit = l.envFloat(p+"SPOTIFY_RATE_LIMIT", cfg.Spotify.RateLimit)
	cfg.Spotify.RateLimitBurst = l.envInt(p+"SPOTIFY_RATE_BURST", cfg.Spotify.RateLimitBurst)
	cfg.Spotify.PageSize = l.envInt(p+"SPOTIFY_PAGE_SIZE", cfg.Spotify.PageSize)

	cfg.Persistence.Local = l.envString(p+"LOCAL_BACKEND", cfg.Persistence.Local)
	cfg.Persistence.Path = l.envString(p+"LOCAL_PATH", cfg.Persistence.Path)
	cfg.Persistence.FallbackLocal = l.envBool(p+"LOAD_FALLBACK_LOCAL", cfg.Persistence.FallbackLocal)

	m := &cfg.Persistence.Mirror
	m.Backend = l.envString(p+"MIRROR_BACKEND", m.Backend)
	m.Key = l.envString(p+"MIRROR_KEY", m.Key)
	m.PushRetries = l.envInt(p+"MIRROR_PUSH_RETRIES", m.PushRetries)
	m.InitialBackoff = l.envDuration(p+"MIRROR_INITIAL_BACKOFF", m.InitialBackoff)
	m.MaxBackoff = l.envDuration(p+"MIRROR_MAX_BACKOFF", m.MaxBackoff)
	m.Redis.Addr = l.envString(p+"REDIS_ADDR", m.Redis.Addr)
	m.Redis.Password = l.envString(p+"REDIS_PASSWORD", m.Redis.Password)
	m.Redis.DB = l.envInt(p+"REDIS_DB", m.Redis.DB)
	m.Redis.Prefix = l.envString(p+"REDIS_PREFIX", m.Redis.Prefix)
	m.GitHub.Owner = l.envString(p+"GITHUB_OWNER", m.GitHub.Owner)
	m.GitHub.Repo = l.envString(p+"GITHUB_REPO", m.GitHub.Repo)
	m.GitHub.Branch = l.envString(p+"GITHUB_BRANCH", m.GitHub.Branch)
	m.GitHub.Dir = l.envString(p+"GITHUB_DIR", m.GitHub.Dir)
	m.GitHub.Token = l.envString(p+"GITHUB_TOKEN", m.GitHub.Token)

	cfg.Resume.PositionPolicy = l.envString(p+"RESUME_POSITION_POLICY", cfg.Resume.PositionPolicy)
	cfg.Resume.PreferredDevice = l.envString(p+"RESUME_PREFERRED_DEVICE", cfg.Resume.PreferredDevice)
	cfg.Resume.ListConcurrency = l.envInt(p+"LIST_CONCURRENCY", cfg.Resume.ListConcurrency)

	cfg.Telemetry.Enabled = l.envBool(p+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Environment = l.envString(p+"ENVIRONMENT", cfg.Telemetry.Environment)
	cfg.Telemetry.ExporterType = l.envString(p+"OTEL_EXPORTER", cfg.Telemetry.ExporterType)
	cfg.Telemetry.Endpoint = l.envString(p+"OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(p+"OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
