// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resumeOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumer_resume_outcomes_total",
		Help: "Resume requests by terminal outcome",
	}, []string{"outcome"})

	deviceActivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumer_device_activations_total",
		Help: "Device activation attempts after a no-active-device failure",
	}, []string{"result"}) // result=transferred|no_devices|failure

	progressEstimatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumer_progress_estimates_total",
		Help: "Progress estimates by result",
	}, []string{"result"}) // result=found|not_found|fetch_error

	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumer_upstream_requests_total",
		Help: "Requests against the playback/catalog API by operation and class",
	}, []string{"operation", "class"}) // class=ok|no_active_device|unauthorized|not_found|rate_limited|error
)

// RecordResumeOutcome increments the resume outcome counter.
func RecordResumeOutcome(outcome string) {
	resumeOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordDeviceActivation increments the device activation counter.
func RecordDeviceActivation(result string) {
	deviceActivationsTotal.WithLabelValues(result).Inc()
}

// RecordProgressEstimate increments the estimate counter.
func RecordProgressEstimate(result string) {
	progressEstimatesTotal.WithLabelValues(result).Inc()
}

// RecordUpstreamRequest increments the upstream request counter.
func RecordUpstreamRequest(operation, class string) {
	upstreamRequestsTotal.WithLabelValues(operation, class).Inc()
}
