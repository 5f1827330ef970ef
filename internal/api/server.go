// SPDX-License-Identifier: MIT

// Package api exposes the playback service over a small JSON HTTP surface.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/resumer/internal/api/middleware"
	"github.com/ManuGH/resumer/internal/health"
	"github.com/ManuGH/resumer/internal/playback"
)

// Config configures the HTTP surface.
type Config struct {
	Version string
	// RateLimitRPM is the per-IP request budget per minute; 0 disables limiting.
	RateLimitRPM int
	// TracingService names the tracer; empty disables request tracing.
	TracingService string
	// Health backs /healthz and /readyz. A manager without checkers is created when nil.
	Health *health.Manager
}

// Server routes HTTP requests to the playback service.
type Server struct {
	cfg     Config
	svc     *playback.Service
	clients ClientFactory
	router  chi.Router
}

// New creates the server and builds its router.
func New(cfg Config, svc *playback.Service, clients ClientFactory) *Server {
	if cfg.Health == nil {
		cfg.Health = health.NewManager(cfg.Version)
	}
	cfg.Health.SetDetails(func() map[string]any {
		return map[string]any{"checkpoints": svc.CheckpointCount()}
	})
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		clients: clients,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
		RateLimitRPM:          s.cfg.RateLimitRPM,
	})

	r.Get("/healthz", s.cfg.Health.ServeHealth)
	r.Get("/readyz", s.cfg.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/checkpoints", s.handleSaveCheckpoint)
		r.Get("/contexts", s.handleListContexts)
		r.With(middleware.ResumeRateLimit()).Post("/resume", s.handleResume)

		r.Route("/player", func(r chi.Router) {
			r.Post("/pause", s.handleControl(playback.CommandPause))
			r.Post("/play", s.handleControl(playback.CommandPlay))
			r.Get("/state", s.handlePlayerState)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return r
}
