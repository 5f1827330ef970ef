// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, "file", cfg.Persistence.Local)
	assert.Equal(t, "none", cfg.Persistence.Mirror.Backend)
	assert.Equal(t, 0, cfg.Persistence.Mirror.PushRetries)
	assert.False(t, cfg.Persistence.FallbackLocal)
	assert.Equal(t, "start", cfg.Resume.PositionPolicy)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, filepath.Join(cfg.DataDir, "progress.json"), cfg.Persistence.Path)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
dataDir: `+dir+`
logLevel: debug
api:
  listenAddr: 127.0.0.1:9000
  shutdownTimeout: 3s
persistence:
  local: sqlite
  mirror:
    backend: redis
    pushRetries: 2
    redis:
      addr: localhost:6379
resume:
  positionPolicy: saved
  preferredDevice: Kitchen
`)

	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.ListenAddr)
	assert.Equal(t, 3*time.Second, cfg.API.ShutdownTimeout)
	assert.Equal(t, 120, cfg.API.RateLimitRPM, "unset keys keep their defaults")
	assert.Equal(t, "sqlite", cfg.Persistence.Local)
	assert.Equal(t, filepath.Join(dir, "checkpoints.sqlite"), cfg.Persistence.Path)
	assert.Equal(t, "redis", cfg.Persistence.Mirror.Backend)
	assert.Equal(t, 2, cfg.Persistence.Mirror.PushRetries)
	assert.Equal(t, "resumer", cfg.Persistence.Mirror.Redis.Prefix)
	assert.Equal(t, "saved", cfg.Resume.PositionPolicy)
	assert.Equal(t, "Kitchen", cfg.Resume.PreferredDevice)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
api:
  listenAddr: 127.0.0.1:9000
resume:
  positionPolicy: saved
`)
	t.Setenv("RESUMER_LISTEN", ":7070")
	t.Setenv("RESUMER_RESUME_POSITION_POLICY", "start")
	t.Setenv("RESUMER_MIRROR_BACKEND", "github")
	t.Setenv("RESUMER_GITHUB_OWNER", "octo")
	t.Setenv("RESUMER_GITHUB_REPO", "state")
	t.Setenv("RESUMER_GITHUB_TOKEN", "ghp_secret")
	t.Setenv("RESUMER_LOAD_FALLBACK_LOCAL", "yes")
	t.Setenv("RESUMER_SPOTIFY_PAGE_SIZE", "not-a-number")

	l := NewLoader(path, "test")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.API.ListenAddr)
	assert.Equal(t, "start", cfg.Resume.PositionPolicy)
	assert.Equal(t, "github", cfg.Persistence.Mirror.Backend)
	assert.Equal(t, "ghp_secret", cfg.Persistence.Mirror.GitHub.Token)
	assert.True(t, cfg.Persistence.FallbackLocal)
	assert.Equal(t, 100, cfg.Spotify.PageSize, "invalid env value falls back")
	assert.Contains(t, l.ConsumedEnvKeys, "RESUMER_GITHUB_TOKEN")

	assert.Equal(t, "***", cfg.Redacted().Persistence.Mirror.GitHub.Token)
	assert.Equal(t, "ghp_secret", cfg.Persistence.Mirror.GitHub.Token, "Redacted must not mutate the receiver")
}

func TestLoad_StrictYAML(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantIs  error
	}{
		{name: "unknown key", content: "listen: :8080\n", wantIs: ErrUnknownConfigField},
		{name: "nested unknown key", content: "resume:\n  position: saved\n", wantIs: ErrUnknownConfigField},
		{name: "multiple documents", content: "logLevel: info\n---\nlogLevel: debug\n"},
		{name: "invalid value", content: "resume:\n  positionPolicy: middle\n", wantIs: ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(writeConfig(t, tt.content), "test").Load()
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	_, err := NewLoader(writeConfig(t, ""), "test").Load()
	require.NoError(t, err)
}

func TestLoad_RejectsNonYAMLExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	_, err := NewLoader(path, "test").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("RESUMER_TEST_INT", "42")
	t.Setenv("RESUMER_TEST_DUR", "1m30s")
	t.Setenv("RESUMER_TEST_BOOL", "NO")
	t.Setenv("RESUMER_TEST_FLOAT", "0.25")
	t.Setenv("RESUMER_TEST_EMPTY", "")

	assert.Equal(t, 42, ParseInt("RESUMER_TEST_INT", 1))
	assert.Equal(t, 90*time.Second, ParseDuration("RESUMER_TEST_DUR", time.Second))
	assert.False(t, ParseBool("RESUMER_TEST_BOOL", true))
	assert.InDelta(t, 0.25, ParseFloat("RESUMER_TEST_FLOAT", 1), 1e-9)
	assert.Equal(t, "fallback", ParseString("RESUMER_TEST_EMPTY", "fallback"))
	assert.Equal(t, "fallback", ParseString("RESUMER_TEST_UNSET", "fallback"))
}
