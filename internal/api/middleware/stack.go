// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP ingress stack of the API server.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	xglog "github.com/ManuGH/resumer/internal/log"
)

// StackConfig selects the optional layers of the ingress stack.
type StackConfig struct {
	EnableSecurityHeaders bool
	EnableMetrics         bool
	// TracingService names the tracer; empty disables tracing.
	TracingService string
	EnableLogging  bool
	// RateLimitRPM is the per-IP request budget per minute; 0 disables limiting.
	RateLimitRPM int
}

// Chain returns the ingress middlewares outermost first. Recovery and request
// ids always run; the rest follow cfg.
func Chain(cfg StackConfig) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{Recoverer, RequestID}
	if cfg.EnableSecurityHeaders {
		chain = append(chain, SecurityHeaders)
	}
	if cfg.TracingService != "" {
		chain = append(chain, Tracing(cfg.TracingService))
	}
	if cfg.EnableMetrics {
		chain = append(chain, Metrics())
	}
	// Logging sits inside metrics and tracing so its latency covers the handler only.
	if cfg.EnableLogging {
		chain = append(chain, xglog.Middleware())
	}
	if cfg.RateLimitRPM > 0 {
		chain = append(chain, APIRateLimit(cfg.RateLimitRPM))
	}
	return chain
}

// NewRouter constructs a chi router with the ingress stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Chain(cfg)...)
	return r
}
