// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const unmatchedRoute = "unmatched"

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resumer_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"method", "path", "class"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumer_http_requests_total",
		Help: "Total HTTP requests by method, route and status class",
	}, []string{"method", "path", "class"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resumer_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resumer_http_response_size_bytes",
		Help:    "HTTP response body sizes",
		Buckets: prometheus.ExponentialBuckets(64, 4, 8),
	}, []string{"method", "path"})
)

// Metrics records request metrics labelled by chi route pattern.
// Unmatched paths share one label value to bound cardinality.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			path := routeLabel(r)
			class := statusClass(status)

			httpRequestDuration.WithLabelValues(r.Method, path, class).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(r.Method, path, class).Inc()
			if n := ww.BytesWritten(); n > 0 {
				httpResponseSize.WithLabelValues(r.Method, path).Observe(float64(n))
			}
		})
	}
}

// routeLabel is valid only after the router has matched the request.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return unmatchedRoute
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
