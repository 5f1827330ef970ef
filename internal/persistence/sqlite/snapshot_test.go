// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/resumer/internal/checkpoint"
)

func TestSnapshot_WriteLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "state", "checkpoints.sqlite")

	s, err := NewSnapshot(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, "sqlite", s.Backend())
	assert.Equal(t, dbPath, s.Location())

	saved := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	want := checkpoint.Snapshot{
		"alice": {
			"ctx:a": {UserID: "alice", ContextURI: "ctx:a", ItemURI: "item:2", ProgressMs: 5000, Title: "Two", Artist: "Band", Album: "LP", SavedAt: saved},
			"ctx:b": {UserID: "alice", ContextURI: "ctx:b", ItemURI: "item:9", ProgressMs: 0},
		},
		"bob": {
			"ctx:a": {UserID: "bob", ContextURI: "ctx:a", ItemURI: "item:1", ProgressMs: 1},
		},
	}
	require.NoError(t, s.Write(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_WriteReplacesAllRows(t *testing.T) {
	ctx := context.Background()
	s, err := NewSnapshot(filepath.Join(t.TempDir(), "checkpoints.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Write(ctx, checkpoint.Snapshot{
		"alice": {"ctx:a": {UserID: "alice", ContextURI: "ctx:a", ItemURI: "item:1"}},
	}))
	require.NoError(t, s.Write(ctx, checkpoint.Snapshot{
		"bob": {"ctx:b": {UserID: "bob", ContextURI: "ctx:b", ItemURI: "item:2", ProgressMs: 7}},
	}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(7), got["bob"]["ctx:b"].ProgressMs)
}

func TestSnapshot_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "checkpoints.sqlite")

	s, err := NewSnapshot(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, checkpoint.Snapshot{
		"alice": {"ctx:a": {UserID: "alice", ContextURI: "ctx:a", ItemURI: "item:1", ProgressMs: 42}},
	}))
	require.NoError(t, s.Close())

	s2, err := NewSnapshot(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })

	got, err := s2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got["alice"]["ctx:a"].ProgressMs)
}

func TestSnapshot_EmptyLoad(t *testing.T) {
	s, err := NewSnapshot(filepath.Join(t.TempDir(), "checkpoints.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestSnapshot_LoadRejectsBadTimestamp(t *testing.T) {
	ctx := context.Background()
	s, err := NewSnapshot(filepath.Join(t.TempDir(), "checkpoints.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO checkpoints (user_id, context_uri, item_uri, progress_ms, artist, album, title, saved_at)
	VALUES ('alice', 'ctx:a', 'item:1', 10, '', '', '', 'yesterday')`)
	require.NoError(t, err)

	_, err = s.Load(ctx)
	assert.ErrorContains(t, err, "alice/ctx:a: saved_at")
}
