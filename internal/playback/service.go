// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playback exposes the user-facing operations: save the current position,
// list contexts with progress, resume, pause/play and the is-playing query.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/resumer/internal/checkpoint"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/player"
	"github.com/ManuGH/resumer/internal/progress"
	"github.com/ManuGH/resumer/internal/resume"
	"github.com/ManuGH/resumer/internal/telemetry"
)

// ErrNothingPlaying is returned by SaveCurrentPosition when there is no playback
// inside a context to checkpoint.
var ErrNothingPlaying = errors.New("playback: nothing playing")

// DefaultListConcurrency bounds parallel progress estimation in ListContexts.
const DefaultListConcurrency = 4

// ContextProgress is one entry of ListContexts. ProgressPct is nil when no
// progress is available, which is different from zero.
type ContextProgress struct {
	ID          string `json:"id"`
	URI         string `json:"uri"`
	Name        string `json:"name"`
	ProgressPct *int   `json:"progress_pct"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	Title       string `json:"title,omitempty"`
}

// Options tunes a Service.
type Options struct {
	PageSize        int
	ListConcurrency int
	Policy          resume.Policy
	Now             func() time.Time
}

// Service wires the checkpoint store, estimator and orchestrator to a player session.
type Service struct {
	store        *checkpoint.Store
	orchestrator *resume.Orchestrator
	pageSize     int
	concurrency  int
	policy       atomic.Pointer[resume.Policy]
	now          func() time.Time
}

// NewService creates the service.
func NewService(store *checkpoint.Store, opts Options) *Service {
	if opts.ListConcurrency <= 0 {
		opts.ListConcurrency = DefaultListConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Service{
		store:        store,
		orchestrator: resume.New(store),
		pageSize:     opts.PageSize,
		concurrency:  opts.ListConcurrency,
		now:          opts.Now,
	}
	s.SetPolicy(opts.Policy)
	return s
}

// SetPolicy replaces the resume policy used by subsequent resumes.
func (s *Service) SetPolicy(p resume.Policy) {
	s.policy.Store(&p)
}

// Policy returns the current resume policy.
func (s *Service) Policy() resume.Policy {
	return *s.policy.Load()
}

// SaveCurrentPosition checkpoints whatever the user is playing. The returned
// checkpoint is stored even when the error wraps checkpoint.ErrPersist.
func (s *Service) SaveCurrentPosition(ctx context.Context, client player.Client) (checkpoint.Checkpoint, error) {
	ctx, span := telemetry.Tracer("resumer/playback").Start(ctx, "playback.SaveCurrentPosition")
	defer span.End()

	userID, err := client.CurrentUserID(ctx)
	if err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("identify user: %w", err)
	}
	ctx = xglog.ContextWithUserID(ctx, userID)

	st, err := client.CurrentPlaybackState(ctx)
	if err != nil {
		return checkpoint.Checkpoint{}, fmt.Errorf("read playback state: %w", err)
	}
	if st == nil || st.ContextURI == "" || st.ItemURI == "" {
		return checkpoint.Checkpoint{}, ErrNothingPlaying
	}

	cp := checkpoint.Checkpoint{
		UserID:     userID,
		ContextURI: st.ContextURI,
		ItemURI:    st.ItemURI,
		ProgressMs: max(st.ProgressMs, 0),
		Artist:     st.Artist,
		Album:      st.Album,
		Title:      st.Title,
		SavedAt:    s.now().UTC(),
	}
	span.SetAttributes(telemetry.CheckpointAttributes(cp.UserID, cp.ContextURI, cp.ItemURI, cp.ProgressMs)...)
	return cp, s.store.Save(ctx, cp)
}

// ListContexts returns every context of the user with its progress. Per-context
// catalog failures degrade that entry and never fail the listing.
func (s *Service) ListContexts(ctx context.Context, client player.Client) ([]ContextProgress, error) {
	userID, err := client.CurrentUserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("identify user: %w", err)
	}
	ctx = xglog.ContextWithUserID(ctx, userID)

	contexts, err := client.ListContexts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}

	saved := s.store.ForUser(userID)
	estimator := progress.New(client, s.pageSize)
	out := make([]ContextProgress, len(contexts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range contexts {
		g.Go(func() error {
			out[i] = s.describe(gctx, client, estimator, c, saved)
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	return out, nil
}

func (s *Service) describe(ctx context.Context, catalog player.Catalog, est *progress.Estimator, c player.Context, saved map[string]checkpoint.Checkpoint) ContextProgress {
	entry := ContextProgress{ID: c.ID, URI: c.URI, Name: c.Name}

	if cp, ok := saved[c.URI]; ok {
		if res := est.Estimate(ctx, c.URI, cp); res.Found {
			pct := res.Percent
			entry.ProgressPct = &pct
		}
		entry.Artist, entry.Album, entry.Title = cp.Artist, cp.Album, cp.Title
		return entry
	}

	first, err := catalog.FirstItem(ctx, c.URI)
	if err != nil {
		logger := xglog.WithComponentFromContext(ctx, "playback")
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "playback.first_item_failed").
			Str(xglog.FieldContextURI, c.URI).
			Msg("could not fetch first item metadata")
		return entry
	}
	if first != nil {
		entry.Artist, entry.Album, entry.Title = first.Artist, first.Album, first.Title
	}
	return entry
}

// Resume continues contextURI for the session's user.
func (s *Service) Resume(ctx context.Context, client player.Client, contextURI string) (resume.Result, error) {
	userID, err := client.CurrentUserID(ctx)
	if err != nil {
		return resume.Result{}, fmt.Errorf("identify user: %w", err)
	}
	ctx = xglog.ContextWithUserID(ctx, userID)
	return s.orchestrator.Resume(ctx, client, userID, contextURI, s.Policy()), nil
}

// CheckpointCount returns the number of stored checkpoints across all users.
func (s *Service) CheckpointCount() int {
	return s.store.Len()
}

// IsPlaying reports whether playback is active.
func (s *Service) IsPlaying(ctx context.Context, client player.Client) (bool, error) {
	st, err := client.CurrentPlaybackState(ctx)
	if err != nil {
		return false, err
	}
	return st != nil && st.IsPlaying, nil
}
