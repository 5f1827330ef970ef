// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/resumer/internal/checkpoint"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/metrics"
	"github.com/ManuGH/resumer/internal/mirror"
	"github.com/ManuGH/resumer/internal/telemetry"
)

// DefaultKey is the blob key of the snapshot in the remote mirror.
const DefaultKey = "progress.json"

// SyncConfig tunes the remote push.
type SyncConfig struct {
	Key string
	// PushRetries is the number of extra attempts after a failed push.
	// Zero keeps the single-attempt behaviour. Conflicts are never retried.
	PushRetries    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Syncer writes every snapshot to the local artifact and then mirrors it remotely.
// It implements checkpoint.Persister.
type Syncer struct {
	local  Local
	remote mirror.Mirror
	cfg    SyncConfig
	logger zerolog.Logger
}

// NewSyncer creates a syncer. remote may be nil to disable mirroring.
func NewSyncer(local Local, remote mirror.Mirror, cfg SyncConfig) *Syncer {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.PushRetries < 0 {
		cfg.PushRetries = 0
	}
	return &Syncer{
		local:  local,
		remote: remote,
		cfg:    cfg,
		logger: xglog.WithComponent("persistence"),
	}
}

// Persist writes locally first, then pushes. Only the local error is returned;
// a failed push leaves the local artifact as the most recent durable copy.
func (s *Syncer) Persist(ctx context.Context, snap checkpoint.Snapshot) error {
	if err := s.WriteLocal(ctx, snap); err != nil {
		return err
	}
	if err := s.PushRemote(ctx, snap); err != nil {
		logger := xglog.WithContext(ctx, s.logger)
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "mirror.push_failed").
			Msg("remote mirror push failed; local snapshot is ahead")
	}
	return nil
}

// WriteLocal replaces the local artifact with snap.
func (s *Syncer) WriteLocal(ctx context.Context, snap checkpoint.Snapshot) error {
	if s.local == nil {
		return nil
	}
	start := time.Now()
	err := s.local.Write(ctx, snap)
	metrics.ObserveLocalWrite(s.local.Backend(), time.Since(start).Seconds())
	if err != nil {
		logger := xglog.WithContext(ctx, s.logger)
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "snapshot.write_failed").
			Str(xglog.FieldBackend, s.local.Backend()).
			Str(xglog.FieldPath, s.local.Location()).
			Msg("local snapshot write failed")
		return fmt.Errorf("write local snapshot: %w", err)
	}
	return nil
}

// PushRemote mirrors snap using optimistic concurrency: fetch the current
// revision (missing blob means none), then put with that revision.
func (s *Syncer) PushRemote(ctx context.Context, snap checkpoint.Snapshot) (err error) {
	if s.remote == nil {
		metrics.RecordMirrorPush("disabled")
		return nil
	}

	ctx, span := telemetry.Tracer("persistence").Start(ctx, "mirror.Push",
		trace.WithAttributes(telemetry.MirrorAttributes(s.remote.Name(), s.cfg.Key)...))
	defer func() {
		if err != nil {
			errType := "failure"
			if errors.Is(err, mirror.ErrConflict) {
				errType = "conflict"
			}
			span.RecordError(err)
			span.SetAttributes(telemetry.ErrorAttributes(err, errType)...)
			span.SetStatus(codes.Error, errType)
		}
		span.End()
	}()

	data, err := Encode(snap)
	if err != nil {
		metrics.RecordMirrorPush("failure")
		return err
	}

	logger := xglog.WithContext(ctx, s.logger)
	attempt := 0
	op := func() (mirror.Revision, error) {
		attempt++
		rev, err := s.pushOnce(ctx, data)
		if errors.Is(err, mirror.ErrConflict) {
			return "", backoff.Permanent(err)
		}
		return rev, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.InitialBackoff
	eb.MaxInterval = s.cfg.MaxBackoff

	rev, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(uint(s.cfg.PushRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug().
				Err(err).
				Int(xglog.FieldAttempt, attempt).
				Dur("retry_in", next).
				Msg("mirror push attempt failed, retrying")
		}),
	)
	if err != nil {
		if errors.Is(err, mirror.ErrConflict) {
			metrics.RecordMirrorPush("conflict")
		} else {
			metrics.RecordMirrorPush("failure")
		}
		return fmt.Errorf("push %s to %s mirror: %w", s.cfg.Key, s.remote.Name(), err)
	}

	metrics.RecordMirrorPush("success")
	logger.Debug().
		Str(xglog.FieldEvent, "mirror.pushed").
		Str(xglog.FieldBackend, s.remote.Name()).
		Str(xglog.FieldKey, s.cfg.Key).
		Str(xglog.FieldRevision, string(rev)).
		Int(xglog.FieldAttempt, attempt).
		Msg("snapshot mirrored")
	return nil
}

func (s *Syncer) pushOnce(ctx context.Context, data []byte) (mirror.Revision, error) {
	var expected mirror.Revision
	blob, err := s.remote.Fetch(ctx, s.cfg.Key)
	switch {
	case err == nil:
		expected = blob.Revision
	case errors.Is(err, mirror.ErrNotFound):
	default:
		return "", fmt.Errorf("fetch revision: %w", err)
	}
	return s.remote.Put(ctx, s.cfg.Key, data, expected)
}
