// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mirror

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// MemoryMirror is an in-process Mirror. Revisions are monotonically increasing
// counters so that rewriting identical content still advances the revision.
type MemoryMirror struct {
	mu    sync.Mutex
	blobs map[string]Blob
	seq   int
}

// NewMemoryMirror creates an empty in-memory mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{blobs: make(map[string]Blob)}
}

func (m *MemoryMirror) Name() string { return "memory" }

func (m *MemoryMirror) Fetch(_ context.Context, key string) (Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return Blob{}, ErrNotFound
	}
	return Blob{Content: append([]byte(nil), b.Content...), Revision: b.Revision}, nil
}

func (m *MemoryMirror) Put(_ context.Context, key string, content []byte, expected Revision) (Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.blobs[key]
	switch {
	case !exists && expected != "":
		return "", fmt.Errorf("%w: blob %q does not exist", ErrConflict, key)
	case exists && cur.Revision != expected:
		return "", fmt.Errorf("%w: have %s, expected %q", ErrConflict, cur.Revision, expected)
	}
	m.seq++
	rev := Revision(strconv.Itoa(m.seq))
	m.blobs[key] = Blob{Content: append([]byte(nil), content...), Revision: rev}
	return rev, nil
}
