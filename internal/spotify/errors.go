// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package spotify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ManuGH/resumer/internal/player"
)

// APIError is a rich error type that wraps the player sentinel errors with context.
type APIError struct {
	Sentinel  error
	Operation string
	Status    int
	Reason    string
	Message   string
	Err       error // Nested lower-level error (e.g. net.Error)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("spotify: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Reason)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Sentinel
}

// errorBody is the regular error object of the Web API.
type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

const reasonNoActiveDevice = "NO_ACTIVE_DEVICE"

// classify maps a non-2xx response to a player sentinel.
func classify(status int, reason, message string) error {
	switch {
	case status == http.StatusUnauthorized:
		return player.ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return player.ErrRateLimited
	case reason == reasonNoActiveDevice,
		status == http.StatusNotFound && strings.Contains(strings.ToLower(message), "no active device"):
		return player.ErrNoActiveDevice
	case status == http.StatusNotFound:
		return player.ErrNotFound
	default:
		return player.ErrUpstream
	}
}

// metricClass is the label used by the upstream request counter.
func metricClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, player.ErrNoActiveDevice):
		return "no_active_device"
	case errors.Is(err, player.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, player.ErrNotFound):
		return "not_found"
	case errors.Is(err, player.ErrRateLimited):
		return "rate_limited"
	default:
		return "error"
	}
}
