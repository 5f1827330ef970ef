// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mirror implements versioned remote blob stores used as the durable
// source of truth for checkpoint snapshots across process restarts.
package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	// ErrNotFound means the blob does not exist yet.
	ErrNotFound = errors.New("mirror: blob not found")
	// ErrConflict means the expected revision no longer matches the remote one.
	ErrConflict = errors.New("mirror: revision conflict")
)

// Revision is an opaque token identifying one version of a blob.
// The zero value means "no prior revision".
type Revision string

// Blob is the content of a remote object together with its revision.
type Blob struct {
	Content  []byte
	Revision Revision
}

// Mirror is a versioned blob store with optimistic concurrency.
type Mirror interface {
	// Fetch returns ErrNotFound when the key has never been written.
	Fetch(ctx context.Context, key string) (Blob, error)
	// Put writes content when the remote revision equals expected. An empty
	// expected revision creates the blob and conflicts if it already exists.
	Put(ctx context.Context, key string, content []byte, expected Revision) (Revision, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// ContentRevision derives a revision token from the content hash.
func ContentRevision(content []byte) Revision {
	sum := sha256.Sum256(content)
	return Revision(hex.EncodeToString(sum[:]))
}
