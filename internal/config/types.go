// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Version string `yaml:"-" json:"-"`

	DataDir    string `yaml:"dataDir"`
	LogLevel   string `yaml:"logLevel"`
	LogService string `yaml:"logService"`

	API         APIConfig         `yaml:"api"`
	Spotify     SpotifyConfig     `yaml:"spotify"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Resume      ResumeConfig      `yaml:"resume"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	ListenAddr      string        `yaml:"listenAddr"`
	RateLimitRPM    int           `yaml:"rateLimitRPM"` // 0 disables limiting
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SpotifyConfig configures the upstream Web API client.
type SpotifyConfig struct {
	BaseURL        string        `yaml:"baseURL"`
	Timeout        time.Duration `yaml:"timeout"`
	RateLimit      float64       `yaml:"rateLimit"` // requests per second
	RateLimitBurst int           `yaml:"rateLimitBurst"`
	PageSize       int           `yaml:"pageSize"`
}

// PersistenceConfig configures the local artifact and the remote mirror.
type PersistenceConfig struct {
	// Local is "file" (JSON snapshot) or "sqlite".
	Local string `yaml:"local"`
	// Path of the local artifact; derived from DataDir when empty.
	Path string `yaml:"path"`
	// FallbackLocal loads the local artifact when the mirror cannot be read.
	FallbackLocal bool         `yaml:"fallbackLocal"`
	Mirror        MirrorConfig `yaml:"mirror"`
}

// MirrorConfig configures the remote versioned blob store.
type MirrorConfig struct {
	Backend        string        `yaml:"backend"` // none|memory|redis|github
	Key            string        `yaml:"key"`
	PushRetries    int           `yaml:"pushRetries"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
	Redis          RedisConfig   `yaml:"redis"`
	GitHub         GitHubConfig  `yaml:"github"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type GitHubConfig struct {
	Owner   string        `yaml:"owner"`
	Repo    string        `yaml:"repo"`
	Branch  string        `yaml:"branch"`
	Dir     string        `yaml:"dir"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// ResumeConfig holds the resume policy. It is the only section applied on hot reload.
type ResumeConfig struct {
	PositionPolicy  string `yaml:"positionPolicy"` // start|saved
	PreferredDevice string `yaml:"preferredDevice"`
	ListConcurrency int    `yaml:"listConcurrency"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Environment  string  `yaml:"environment"`
	ExporterType string  `yaml:"exporterType"` // grpc|http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

const redacted = "***"

// Redacted returns a copy safe to print.
func (c AppConfig) Redacted() AppConfig {
	if c.Persistence.Mirror.Redis.Password != "" {
		c.Persistence.Mirror.Redis.Password = redacted
	}
	if c.Persistence.Mirror.GitHub.Token != "" {
		c.Persistence.Mirror.GitHub.Token = redacted
	}
	return c
}
