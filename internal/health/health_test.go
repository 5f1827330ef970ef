// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/resumer/internal/mirror"
)

func TestManager_Health(t *testing.T) {
	tests := []struct {
		name           string
		checkers       []Checker
		verbose        bool
		expectedStatus Status
		expectChecks   bool
	}{
		{
			name:           "no checkers",
			expectedStatus: StatusHealthy,
		},
		{
			name:           "unhealthy checker ignored without verbose",
			checkers:       []Checker{&mockChecker{name: "dir", status: StatusUnhealthy}},
			expectedStatus: StatusHealthy,
		},
		{
			name: "verbose reports worst status",
			checkers: []Checker{
				&mockChecker{name: "dir", status: StatusHealthy},
				&mockChecker{name: "mirror", status: StatusDegraded},
			},
			verbose:        true,
			expectedStatus: StatusDegraded,
			expectChecks:   true,
		},
		{
			name: "unhealthy wins over degraded",
			checkers: []Checker{
				&mockChecker{name: "dir", status: StatusUnhealthy},
				&mockChecker{name: "mirror", status: StatusDegraded},
			},
			verbose:        true,
			expectedStatus: StatusUnhealthy,
			expectChecks:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1.0.0")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}

			resp := m.Health(context.Background(), tt.verbose)
			assert.Equal(t, tt.expectedStatus, resp.Status)
			assert.Equal(t, "v1.0.0", resp.Version)
			assert.Equal(t, tt.expectChecks, resp.Checks != nil)
		})
	}
}

func TestManager_HealthDetails(t *testing.T) {
	m := NewManager("dev")
	m.SetDetails(func() map[string]any { return map[string]any{"checkpoints": 3} })

	resp := m.Health(context.Background(), false)
	assert.Equal(t, 3, resp.Details["checkpoints"])
}

func TestManager_Ready(t *testing.T) {
	m := NewManager("v1.0.0")
	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Nil(t, resp.Checks)

	m.RegisterChecker(&mockChecker{name: "mirror", status: StatusDegraded, message: "redis"})
	resp = m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, "redis", resp.Checks["mirror"].Message)
}

func TestManager_ReadyWhileDraining(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "dir", status: StatusHealthy})
	m.SetDraining()

	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, "draining", resp.Checks["shutdown"].Message)
	assert.NotContains(t, resp.Checks, "dir")
}

func TestManager_ServeHealth(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "test", status: StatusUnhealthy})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	m.ServeHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)

	// Liveness stays 200 even when a component is unhealthy.
	req = httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil)
	w = httptest.NewRecorder()
	m.ServeHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp = HealthResponse{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Len(t, resp.Checks, 1)
}

func TestManager_ServeHealth_EncodingError(t *testing.T) {
	m := NewManager("v1.0.0")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := &brokenWriter{header: make(http.Header)}

	assert.NotPanics(t, func() { m.ServeHealth(w, req) })
}

func TestManager_ServeReady(t *testing.T) {
	tests := []struct {
		name           string
		checker        Checker
		expectedStatus int
		expectedReady  bool
	}{
		{"healthy", &mockChecker{name: "test", status: StatusHealthy}, http.StatusOK, true},
		{"degraded", &mockChecker{name: "test", status: StatusDegraded}, http.StatusOK, true},
		{"unhealthy", &mockChecker{name: "test", status: StatusUnhealthy}, http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v1.0.0")
			m.RegisterChecker(tt.checker)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()
			m.ServeReady(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var resp ReadinessResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.expectedReady, resp.Ready)
		})
	}
}

func TestManager_CheckTimeout(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&deadlineChecker{})

	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, "deadline set", resp.Checks["deadline"].Message)
}

func TestWritableDirChecker(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name           string
		setup          func() string
		expectedStatus Status
		expectedError  string
	}{
		{
			name:           "writable",
			setup:          func() string { return tempDir },
			expectedStatus: StatusHealthy,
		},
		{
			name:           "missing",
			setup:          func() string { return filepath.Join(tempDir, "missing") },
			expectedStatus: StatusDegraded,
		},
		{
			name: "regular file",
			setup: func() string {
				path := filepath.Join(tempDir, "file.txt")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
				return path
			},
			expectedStatus: StatusUnhealthy,
			expectedError:  "not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewWritableDirChecker("data_dir", tt.setup())
			assert.Equal(t, "data_dir", checker.Name())

			result := checker.Check(context.Background())
			assert.Equal(t, tt.expectedStatus, result.Status)
			if tt.expectedError != "" {
				assert.Contains(t, result.Error, tt.expectedError)
			}
		})
	}

	entries, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".write_test", "probe file must be removed")
	}
}

func TestMirrorChecker(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured", func(t *testing.T) {
		result := NewMirrorChecker(nil, "progress.json").Check(ctx)
		assert.Equal(t, StatusHealthy, result.Status)
	})

	t.Run("missing blob is healthy", func(t *testing.T) {
		result := NewMirrorChecker(mirror.NewMemoryMirror(), "progress.json").Check(ctx)
		assert.Equal(t, StatusHealthy, result.Status)
		assert.Equal(t, "memory", result.Message)
	})

	t.Run("fetch failure degrades", func(t *testing.T) {
		result := NewMirrorChecker(&failingMirror{}, "progress.json").Check(ctx)
		assert.Equal(t, StatusDegraded, result.Status)
		assert.Contains(t, result.Error, "unreachable")
	})

	t.Run("pinger is preferred", func(t *testing.T) {
		m := &pingingMirror{err: errors.New("ping refused")}
		result := NewMirrorChecker(m, "progress.json").Check(ctx)
		assert.Equal(t, StatusDegraded, result.Status)
		assert.Equal(t, "ping refused", result.Error)
		assert.Zero(t, m.fetches)
	})
}

type mockChecker struct {
	name    string
	status  Status
	message string
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{Status: m.status, Message: m.message}
}

type deadlineChecker struct{}

func (deadlineChecker) Name() string { return "deadline" }

func (deadlineChecker) Check(ctx context.Context) CheckResult {
	if _, ok := ctx.Deadline(); ok {
		return CheckResult{Status: StatusHealthy, Message: "deadline set"}
	}
	return CheckResult{Status: StatusUnhealthy, Message: "no deadline"}
}

type failingMirror struct{}

func (failingMirror) Name() string { return "failing" }

func (failingMirror) Fetch(context.Context, string) (mirror.Blob, error) {
	return mirror.Blob{}, errors.New("unreachable")
}

func (failingMirror) Put(context.Context, string, []byte, mirror.Revision) (mirror.Revision, error) {
	return "", errors.New("unreachable")
}

type pingingMirror struct {
	err     error
	fetches int
}

func (p *pingingMirror) Name() string { return "pinging" }

func (p *pingingMirror) Fetch(context.Context, string) (mirror.Blob, error) {
	p.fetches++
	return mirror.Blob{}, mirror.ErrNotFound
}

func (p *pingingMirror) Put(context.Context, string, []byte, mirror.Revision) (mirror.Revision, error) {
	return "", nil
}

func (p *pingingMirror) HealthCheck(context.Context) error { return p.err }

// brokenWriter is a ResponseWriter that always fails to write
type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header { return w.header }

func (w *brokenWriter) Write([]byte) (int, error) { return 0, assert.AnError }

func (w *brokenWriter) WriteHeader(int) {}
