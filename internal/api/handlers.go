// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ManuGH/resumer/internal/checkpoint"
	"github.com/ManuGH/resumer/internal/playback"
	"github.com/ManuGH/resumer/internal/resume"
)

const maxBodyBytes = 16 << 10

type saveResponse struct {
	Status     string                `json:"status"`
	Checkpoint checkpoint.Checkpoint `json:"checkpoint"`
}

type contextsResponse struct {
	Contexts []playback.ContextProgress `json:"contexts"`
}

type resumeRequest struct {
	ContextURI string `json:"context_uri"`
}

type resumeResponse struct {
	Status   string `json:"status"`
	Decision string `json:"decision,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
}

type stateResponse struct {
	IsPlaying bool `json:"is_playing"`
}

// handleSaveCheckpoint records the current playback position.
// POST /api/v1/checkpoints
func (s *Server) handleSaveCheckpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := s.svc.SaveCurrentPosition(r.Context(), clientFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Status: "saved", Checkpoint: cp})
}

// handleListContexts lists the user's contexts with their progress.
// GET /api/v1/contexts
func (s *Server) handleListContexts(w http.ResponseWriter, r *http.Request) {
	contexts, err := s.svc.ListContexts(r.Context(), clientFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if contexts == nil {
		contexts = []playback.ContextProgress{}
	}
	writeJSON(w, http.StatusOK, contextsResponse{Contexts: contexts})
}

// handleResume resumes or starts a context.
// POST /api/v1/resume
func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.ContextURI = strings.TrimSpace(req.ContextURI)
	if req.ContextURI == "" {
		writeError(w, r, fmt.Errorf("%w: context_uri is required", errBadRequest))
		return
	}

	res, err := s.svc.Resume(r.Context(), clientFromContext(r.Context()), req.ContextURI)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Outcome == resume.OutcomeError {
		writeError(w, r, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, resumeResponse{
		Status:   string(res.Outcome),
		Decision: res.Decision.Kind.String(),
		DeviceID: res.DeviceID,
	})
}

// handleControl returns a handler issuing cmd.
// POST /api/v1/player/pause, POST /api/v1/player/play
func (s *Server) handleControl(cmd playback.Command) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Control(r.Context(), clientFromContext(r.Context()), cmd); err != nil {
			writeError(w, r, err)
			return
		}
		writeStatus(w, cmd.Status())
	}
}

// handlePlayerState reports whether playback is active.
// GET /api/v1/player/state
func (s *Server) handlePlayerState(w http.ResponseWriter, r *http.Request) {
	playing, err := s.svc.IsPlaying(r.Context(), clientFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{IsPlaying: playing})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", errBadRequest)
	}
	return nil
}
