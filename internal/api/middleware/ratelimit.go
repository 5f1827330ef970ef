// SPDX-License-Identifier: MIT

package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
)

const resumeRequestsPerMinute = 10

// RateLimitConfig configures a sliding-window limiter.
type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	// KeyFunc buckets requests; nil buckets by client IP.
	KeyFunc func(r *http.Request) (string, error)
}

// RateLimit answers over-budget requests with a JSON 429 and a Retry-After of one window.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}
	retryAfter := strconv.Itoa(int(cfg.WindowSize.Seconds()))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
		}),
	)
}

// KeyByBearerToken buckets by a digest of the bearer token so users behind one
// NAT do not share a budget. Requests without a token fall back to the client IP.
func KeyByBearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok && strings.TrimSpace(token) != "" {
		sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
		return "tok:" + hex.EncodeToString(sum[:8]), nil
	}
	return httprate.KeyByIP(r)
}

// ResumeRateLimit caps resumes per user; each one fans out into several upstream calls.
func ResumeRateLimit() func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{
		RequestLimit: resumeRequestsPerMinute,
		WindowSize:   time.Minute,
		KeyFunc:      KeyByBearerToken,
	})
}

// APIRateLimit allows rpm requests per minute per client IP.
func APIRateLimit(rpm int) func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{
		RequestLimit: rpm,
		WindowSize:   time.Minute,
	})
}
