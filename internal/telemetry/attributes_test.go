// SPDX-License-Identifier: MIT
package telemetry

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestHTTPAttributes(t *testing.T) {
	attrs := HTTPAttributes("POST", "/api/v1/resume", "http://localhost:8080/api/v1/resume", 200)

	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}

	verifyAttribute(t, attrs, HTTPMethodKey, "POST")
	verifyAttribute(t, attrs, HTTPRouteKey, "/api/v1/resume")
	verifyAttribute(t, attrs, HTTPURLKey, "http://localhost:8080/api/v1/resume")
	verifyIntAttribute(t, attrs, HTTPStatusCodeKey, 200)
}

func TestCheckpointAttributes(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		contextURI string
		itemURI    string
		progress   int64
		wantLen    int
	}{
		{
			name:       "all fields",
			userID:     "alice",
			contextURI: "spotify:playlist:1",
			itemURI:    "spotify:track:9",
			progress:   1500,
			wantLen:    4,
		},
		{
			name:       "zero progress omitted",
			userID:     "alice",
			contextURI: "spotify:playlist:1",
			itemURI:    "spotify:track:9",
			wantLen:    3,
		},
		{
			name:    "empty fields",
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := CheckpointAttributes(tt.userID, tt.contextURI, tt.itemURI, tt.progress)

			if len(attrs) != tt.wantLen {
				t.Errorf("Expected %d attributes, got %d", tt.wantLen, len(attrs))
			}
			if tt.userID != "" {
				verifyAttribute(t, attrs, CheckpointUserKey, tt.userID)
			}
			if tt.contextURI != "" {
				verifyAttribute(t, attrs, CheckpointContextKey, tt.contextURI)
			}
			if tt.progress > 0 {
				verifyInt64Attribute(t, attrs, CheckpointProgressKey, tt.progress)
			}
		})
	}
}

func TestResumeAttributes(t *testing.T) {
	attrs := ResumeAttributes("resumed (device activated)", "resume_at_offset", "dev-1", 0)

	if len(attrs) != 5 {
		t.Fatalf("Expected 5 attributes, got %d", len(attrs))
	}
	verifyAttribute(t, attrs, ResumeOutcomeKey, "resumed (device activated)")
	verifyAttribute(t, attrs, ResumeDecisionKey, "resume_at_offset")
	verifyAttribute(t, attrs, ResumeDeviceKey, "dev-1")
	verifyInt64Attribute(t, attrs, ResumePositionKey, 0)
	verifyBoolAttribute(t, attrs, ResumeActivationKey, true)

	attrs = ResumeAttributes("started", "start_context", "", 0)
	if len(attrs) != 4 {
		t.Fatalf("Expected 4 attributes, got %d", len(attrs))
	}
	verifyBoolAttribute(t, attrs, ResumeActivationKey, false)
}

func TestMirrorAttributes(t *testing.T) {
	attrs := MirrorAttributes("redis", "progress.json")

	verifyAttribute(t, attrs, MirrorBackendKey, "redis")
	verifyAttribute(t, attrs, MirrorKeyKey, "progress.json")
}

func TestErrorAttributes(t *testing.T) {
	err := errors.New("test error")
	attrs := ErrorAttributes(err, "no_active_device")

	if len(attrs) != 2 {
		t.Fatalf("Expected 2 attributes, got %d", len(attrs))
	}

	verifyBoolAttribute(t, attrs, ErrorKey, true)
	verifyAttribute(t, attrs, ErrorTypeKey, "no_active_device")
}

// Helper functions for attribute verification

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, expectedValue string) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsString() != expectedValue {
				t.Errorf("Expected %s=%s, got %s", key, expectedValue, attr.Value.AsString())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int) {
	t.Helper()
	verifyInt64Attribute(t, attrs, key, int64(expectedValue))
}

func verifyInt64Attribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue int64) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsInt64() != expectedValue {
				t.Errorf("Expected %s=%d, got %d", key, expectedValue, attr.Value.AsInt64())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}

func verifyBoolAttribute(t *testing.T, attrs []attribute.KeyValue, key string, expectedValue bool) {
	t.Helper()
	for _, attr := range attrs {
		if string(attr.Key) == key {
			if attr.Value.AsBool() != expectedValue {
				t.Errorf("Expected %s=%t, got %t", key, expectedValue, attr.Value.AsBool())
			}
			return
		}
	}
	t.Errorf("Attribute %s not found", key)
}
