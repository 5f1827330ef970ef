// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/resumer/internal/checkpoint"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/playback"
	"github.com/ManuGH/resumer/internal/player"
	"github.com/ManuGH/resumer/internal/resume"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errBadRequest   = errors.New("bad request")
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStatus writes the {"status": ...} success envelope.
func writeStatus(w http.ResponseWriter, status string) {
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// writeError maps err onto a status code and writes the {"error": ...} envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)

	logger := xglog.WithComponentFromContext(r.Context(), "api")
	evt := logger.Warn()
	if code >= http.StatusInternalServerError {
		evt = logger.Error()
	}
	evt.Err(err).
		Str(xglog.FieldEvent, "api.request_failed").
		Int(xglog.FieldStatus, code).
		Msg(msg)

	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFor classifies err. The message never echoes upstream response bodies.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errMissingToken):
		return http.StatusUnauthorized, "missing bearer token"
	case errors.Is(err, player.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, playback.ErrNothingPlaying):
		return http.StatusConflict, "nothing playing"
	case errors.Is(err, checkpoint.ErrPersist):
		return http.StatusInternalServerError, "checkpoint saved but not persisted"
	case errors.Is(err, checkpoint.ErrInvalid):
		return http.StatusUnprocessableEntity, "invalid checkpoint"
	case errors.Is(err, resume.ErrNoDevices):
		return http.StatusConflict, "no devices available"
	case errors.Is(err, player.ErrNoActiveDevice):
		return http.StatusConflict, "no active device"
	case errors.Is(err, player.ErrRateLimited):
		return http.StatusTooManyRequests, "upstream rate limited"
	default:
		return http.StatusBadGateway, "upstream request failed"
	}
}
