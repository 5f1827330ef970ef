// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package checkpoint holds the authoritative in-memory map of the last known playback
// position per (user, context) pair.
package checkpoint

import (
	"errors"
	"time"
)

var (
	ErrInvalid = errors.New("checkpoint: invalid")
	ErrPersist = errors.New("checkpoint: durable write failed")
)

// Checkpoint is the last known playback position of one user within one context.
type Checkpoint struct {
	UserID     string    `json:"user_id"`
	ContextURI string    `json:"context_uri"`
	ItemURI    string    `json:"item_uri"`
	ProgressMs int64     `json:"progress_ms"`
	Artist     string    `json:"artist,omitempty"`
	Album      string    `json:"album,omitempty"`
	Title      string    `json:"title,omitempty"`
	SavedAt    time.Time `json:"saved_at"`
}

// Validate checks the identifying fields and the position.
func (c Checkpoint) Validate() error {
	switch {
	case c.UserID == "":
		return errors.Join(ErrInvalid, errors.New("user id is empty"))
	case c.ContextURI == "":
		return errors.Join(ErrInvalid, errors.New("context uri is empty"))
	case c.ItemURI == "":
		return errors.Join(ErrInvalid, errors.New("item uri is empty"))
	case c.ProgressMs < 0:
		return errors.Join(ErrInvalid, errors.New("progress must not be negative"))
	}
	return nil
}

// Snapshot maps userID -> contextURI -> Checkpoint. It is the unit of persistence.
type Snapshot map[string]map[string]Checkpoint

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for user, contexts := range s {
		inner := make(map[string]Checkpoint, len(contexts))
		for uri, cp := range contexts {
			inner[uri] = cp
		}
		out[user] = inner
	}
	return out
}

// Len returns the total number of checkpoints across all users.
func (s Snapshot) Len() int {
	n := 0
	for _, contexts := range s {
		n += len(contexts)
	}
	return n
}

// normalize fills identifying fields that older artifacts may have left implicit
// in the map keys and drops entries that cannot be valid.
func (s Snapshot) normalize() Snapshot {
	out := make(Snapshot, len(s))
	for user, contexts := range s {
		if user == "" {
			continue
		}
		inner := make(map[string]Checkpoint, len(contexts))
		for uri, cp := range contexts {
			if uri == "" || cp.ItemURI == "" {
				continue
			}
			cp.UserID = user
			cp.ContextURI = uri
			if cp.ProgressMs < 0 {
				cp.ProgressMs = 0
			}
			inner[uri] = cp
		}
		if len(inner) > 0 {
			out[user] = inner
		}
	}
	return out
}
