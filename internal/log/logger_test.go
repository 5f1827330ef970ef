// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestConfigureServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "svc", Version: "v1.2.3"})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("checkpoint")
	l.Info().Msg("hello")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "svc", entry["service"])
	assert.Equal(t, "v1.2.3", entry["version"])
	assert.Equal(t, "checkpoint", entry[FieldComponent])
}

func TestConfigureLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	t.Cleanup(func() { Configure(Config{}) })
	for _, tt := range tests {
		Configure(Config{Level: tt.level, Output: &bytes.Buffer{}})
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), "level %q", tt.level)
	}
}

func TestConfigureConsole(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Console: true})
	t.Cleanup(func() { Configure(Config{}) })

	logger := Base()
	logger.Info().Msg("human readable")
	assert.Contains(t, buf.String(), "human readable")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestMiddlewareLogsRoutePattern(t *testing.T) {
	buf := captureLogs(t)

	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/contexts/{uri}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contexts/spotify:playlist:p1", nil))

	entry := lastEntry(t, buf)
	assert.Equal(t, "/contexts/{uri}", entry[FieldRoute])
	assert.Equal(t, float64(http.StatusTeapot), entry[FieldStatus])
}
