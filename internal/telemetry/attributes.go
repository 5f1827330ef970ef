// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Checkpoint attributes
	CheckpointUserKey     = "checkpoint.user_id"
	CheckpointContextKey  = "checkpoint.context_uri"
	CheckpointItemKey     = "checkpoint.item_uri"
	CheckpointProgressKey = "checkpoint.progress_ms"

	// Resume attributes
	ResumeOutcomeKey    = "resume.outcome"
	ResumeDecisionKey   = "resume.decision"
	ResumePositionKey   = "resume.position_ms"
	ResumeDeviceKey     = "resume.device_id"
	ResumeActivationKey = "resume.device_activated"

	// Mirror attributes
	MirrorBackendKey = "mirror.backend"
	MirrorKeyKey     = "mirror.key"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// CheckpointAttributes creates checkpoint span attributes, skipping empty identifiers.
func CheckpointAttributes(userID, contextURI, itemURI string, progressMs int64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if userID != "" {
		attrs = append(attrs, attribute.String(CheckpointUserKey, userID))
	}
	if contextURI != "" {
		attrs = append(attrs, attribute.String(CheckpointContextKey, contextURI))
	}
	if itemURI != "" {
		attrs = append(attrs, attribute.String(CheckpointItemKey, itemURI))
	}
	if progressMs > 0 {
		attrs = append(attrs, attribute.Int64(CheckpointProgressKey, progressMs))
	}
	return attrs
}

// ResumeAttributes creates attributes describing a finished resume.
func ResumeAttributes(outcome, decision, deviceID string, positionMs int64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(ResumeOutcomeKey, outcome),
		attribute.String(ResumeDecisionKey, decision),
		attribute.Int64(ResumePositionKey, positionMs),
		attribute.Bool(ResumeActivationKey, deviceID != ""),
	}
	if deviceID != "" {
		attrs = append(attrs, attribute.String(ResumeDeviceKey, deviceID))
	}
	return attrs
}

// MirrorAttributes creates remote mirror span attributes.
func MirrorAttributes(backend, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(MirrorBackendKey, backend),
		attribute.String(MirrorKeyKey, key),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
