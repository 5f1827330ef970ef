// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/resumer/internal/checkpoint"
)

const schemaVersion = 1

// Snapshot stores the checkpoint map in a table. Write replaces all rows inside
// one transaction, so a concurrent reader sees either the old or the new snapshot.
type Snapshot struct {
	DB   *sql.DB
	path string
}

// NewSnapshot opens (and migrates) the database at dbPath.
func NewSnapshot(dbPath string) (*Snapshot, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	db, err := Open(dbPath, DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &Snapshot{DB: db, path: dbPath}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("checkpoint snapshot: migration failed: %w", err)
	}
	return s, nil
}

func (s *Snapshot) Backend() string  { return "sqlite" }
func (s *Snapshot) Location() string { return s.path }

func (s *Snapshot) migrate() error {
	var currentVersion int
	if err := s.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		user_id TEXT NOT NULL,
		context_uri TEXT NOT NULL,
		item_uri TEXT NOT NULL,
		progress_ms INTEGER NOT NULL,
		artist TEXT NOT NULL DEFAULT '',
		album TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		saved_at TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (user_id, context_uri)
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Write replaces every row with the content of snap.
func (s *Snapshot) Write(ctx context.Context, snap checkpoint.Snapshot) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM checkpoints"); err != nil {
		return fmt.Errorf("clear checkpoints: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO checkpoints (user_id, context_uri, item_uri, progress_ms, artist, album, title, saved_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for user, contexts := range snap {
		for uri, cp := range contexts {
			savedAt := ""
			if !cp.SavedAt.IsZero() {
				savedAt = cp.SavedAt.UTC().Format(time.RFC3339Nano)
			}
			if _, err := stmt.ExecContext(ctx, user, uri, cp.ItemURI, cp.ProgressMs, cp.Artist, cp.Album, cp.Title, savedAt); err != nil {
				return fmt.Errorf("insert checkpoint %s/%s: %w", user, uri, err)
			}
		}
	}
	return tx.Commit()
}

// Load reads every row back into a snapshot.
func (s *Snapshot) Load(ctx context.Context) (checkpoint.Snapshot, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT user_id, context_uri, item_uri, progress_ms, artist, album, title, saved_at
	FROM checkpoints`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := checkpoint.Snapshot{}
	for rows.Next() {
		var cp checkpoint.Checkpoint
		var savedAt string
		if err := rows.Scan(&cp.UserID, &cp.ContextURI, &cp.ItemURI, &cp.ProgressMs, &cp.Artist, &cp.Album, &cp.Title, &savedAt); err != nil {
			return nil, err
		}
		if savedAt != "" {
			t, err := time.Parse(time.RFC3339Nano, savedAt)
			if err != nil {
				return nil, fmt.Errorf("checkpoint %s/%s: saved_at: %w", cp.UserID, cp.ContextURI, err)
			}
			cp.SavedAt = t
		}
		if snap[cp.UserID] == nil {
			snap[cp.UserID] = map[string]checkpoint.Checkpoint{}
		}
		snap[cp.UserID][cp.ContextURI] = cp
	}
	return snap, rows.Err()
}

// Close closes the database.
func (s *Snapshot) Close() error {
	return s.DB.Close()
}
