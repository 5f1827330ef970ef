// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package checkpoint

import (
	"context"
	"fmt"
	"sync"

	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/metrics"
)

// Persister receives a full snapshot after every save.
// It returns an error only when the local durable write failed.
type Persister interface {
	Persist(ctx context.Context, snap Snapshot) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, snap Snapshot) error

// Persist calls f.
func (f PersisterFunc) Persist(ctx context.Context, snap Snapshot) error { return f(ctx, snap) }

// Store is the process-wide checkpoint map (thread-safe).
type Store struct {
	mu   sync.RWMutex
	data Snapshot

	// persistMu orders durable writes so a later save never gets overwritten
	// on disk by an earlier snapshot.
	persistMu sync.Mutex
	persister Persister
}

// NewStore creates an empty store. A nil persister keeps the store memory-only.
func NewStore(p Persister) *Store {
	return &Store{
		data:      make(Snapshot),
		persister: p,
	}
}

// Get returns the checkpoint for the pair, if any.
func (s *Store) Get(userID, contextURI string) (Checkpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.data[userID][contextURI]
	return cp, ok
}

// ForUser returns a copy of all checkpoints of one user keyed by context URI.
func (s *Store) ForUser(userID string) map[string]Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Checkpoint, len(s.data[userID]))
	for uri, cp := range s.data[userID] {
		out[uri] = cp
	}
	return out
}

// Save upserts cp unconditionally and then synchronously hands a snapshot to the
// persister. The in-memory write stands even when persisting fails.
func (s *Store) Save(ctx context.Context, cp Checkpoint) error {
	if err := cp.Validate(); err != nil {
		metrics.RecordCheckpointSave("rejected")
		return err
	}

	s.mu.Lock()
	contexts, ok := s.data[cp.UserID]
	if !ok {
		contexts = make(map[string]Checkpoint)
		s.data[cp.UserID] = contexts
	}
	contexts[cp.ContextURI] = cp
	total := s.data.Len()
	s.mu.Unlock()

	metrics.SetCheckpointsStored(total)

	if xglog.UserIDFromContext(ctx) == "" {
		ctx = xglog.ContextWithUserID(ctx, cp.UserID)
	}
	logger := xglog.WithComponentFromContext(ctx, "checkpoint")
	logger.Debug().
		Str(xglog.FieldEvent, "checkpoint.saved").
		Str(xglog.FieldContextURI, cp.ContextURI).
		Str(xglog.FieldItemURI, cp.ItemURI).
		Int64(xglog.FieldProgressMs, cp.ProgressMs).
		Msg("checkpoint stored in memory")

	if s.persister == nil {
		metrics.RecordCheckpointSave("success")
		return nil
	}

	// The durable write outlives a disconnected caller; the memory write already happened.
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if err := s.persister.Persist(context.WithoutCancel(ctx), s.Snapshot()); err != nil {
		metrics.RecordCheckpointSave("local_failure")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	metrics.RecordCheckpointSave("success")
	return nil
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Replace swaps the whole content, used once at startup after loading.
func (s *Store) Replace(snap Snapshot) {
	next := snap.normalize()
	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	metrics.SetCheckpointsStored(next.Len())
}

// Len returns the number of stored checkpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Len()
}
