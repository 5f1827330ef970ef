// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the resume engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkpointSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumer_checkpoint_saves_total",
		Help: "Checkpoint saves by outcome",
	}, []string{"outcome"}) // outcome=success|local_failure|rejected

	checkpointsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resumer_checkpoints_stored",
		Help: "Number of checkpoints currently held in memory",
	})

	localWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resumer_local_snapshot_write_seconds",
		Help:    "Duration of local snapshot writes",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"backend"})

	mirrorPushTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumer_mirror_push_total",
		Help: "Remote mirror pushes by result",
	}, []string{"result"}) // result=success|conflict|failure|disabled

	mirrorLoadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumer_store_load_total",
		Help: "Startup store loads by source and result",
	}, []string{"source", "result"}) // result=success|failure
)

// RecordCheckpointSave increments the save counter for the given outcome.
func RecordCheckpointSave(outcome string) {
	checkpointSavesTotal.WithLabelValues(outcome).Inc()
}

// SetCheckpointsStored records the current in-memory checkpoint count.
func SetCheckpointsStored(n int) {
	checkpointsStored.Set(float64(n))
}

// ObserveLocalWrite records the duration of one local snapshot write.
func ObserveLocalWrite(backend string, seconds float64) {
	localWriteDuration.WithLabelValues(backend).Observe(seconds)
}

// RecordMirrorPush increments the push counter for the given result.
func RecordMirrorPush(result string) {
	mirrorPushTotal.WithLabelValues(result).Inc()
}

// RecordStoreLoad increments the startup load counter.
func RecordStoreLoad(source, result string) {
	mirrorLoadTotal.WithLabelValues(source, result).Inc()
}
