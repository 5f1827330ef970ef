// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ManuGH/resumer/internal/checkpoint"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/google/renameio/v2"
)

// Local is a durable local artifact holding the whole store. Write must replace
// the artifact atomically so readers never observe a partial snapshot.
type Local interface {
	Write(ctx context.Context, snap checkpoint.Snapshot) error
	Load(ctx context.Context) (checkpoint.Snapshot, error)
	Backend() string
	Location() string
}

// FileSnapshot stores the snapshot as a JSON file.
type FileSnapshot struct {
	path string
}

// NewFileSnapshot returns a file-backed local artifact at path.
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: filepath.Clean(path)}
}

func (f *FileSnapshot) Backend() string  { return "file" }
func (f *FileSnapshot) Location() string { return f.path }

// Write replaces the file with full durability guarantees using renameio:
// temp file in the same directory, fsync, atomic rename.
func (f *FileSnapshot) Write(ctx context.Context, snap checkpoint.Snapshot) error {
	logger := xglog.FromContext(ctx)

	data, err := Encode(snap)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o750); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(f.path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending snapshot file: %w", err)
	}
	defer func() {
		// renameio removes the temp file if it was not committed
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending snapshot file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write snapshot data: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace snapshot file: %w", err)
	}
	return nil
}

// Load reads the file. A missing file yields fs.ErrNotExist.
func (f *FileSnapshot) Load(_ context.Context) (checkpoint.Snapshot, error) {
	// #nosec G304 -- the snapshot path comes from operator configuration
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("snapshot %s: %w", f.path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(data)
}
