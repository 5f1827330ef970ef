// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package persistence writes the checkpoint store to a local durable artifact,
// mirrors it to a remote versioned blob store and loads it back at startup.
package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ManuGH/resumer/internal/checkpoint"
)

// Encode serializes a snapshot as indented JSON. Map keys are emitted in sorted
// order, so identical snapshots always produce identical bytes.
func Encode(snap checkpoint.Snapshot) ([]byte, error) {
	if snap == nil {
		snap = checkpoint.Snapshot{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses a snapshot. Blank input decodes to an empty snapshot.
func Decode(data []byte) (checkpoint.Snapshot, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return checkpoint.Snapshot{}, nil
	}
	var snap checkpoint.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap == nil {
		snap = checkpoint.Snapshot{}
	}
	return snap, nil
}
