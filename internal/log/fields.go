// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOutcome   = "outcome"

	// Playback fields
	FieldContextURI = "context_uri"
	FieldItemURI    = "item_uri"
	FieldProgressMs = "progress_ms"
	FieldDeviceID   = "device_id"

	// Persistence fields
	FieldPath     = "path"
	FieldBackend  = "backend"
	FieldKey      = "key"
	FieldRevision = "revision"
	FieldAttempt  = "attempt"

	// HTTP fields
	FieldMethod   = "method"
	FieldRoute    = "route"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
)
