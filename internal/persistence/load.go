// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package persistence

import (
	"context"

	"github.com/ManuGH/resumer/internal/checkpoint"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/metrics"
	"github.com/ManuGH/resumer/internal/mirror"
)

// Loader is one place a snapshot can be loaded from at startup.
type Loader interface {
	Load(ctx context.Context) (checkpoint.Snapshot, error)
	Backend() string
}

type mirrorSource struct {
	m   mirror.Mirror
	key string
}

// MirrorSource adapts a remote mirror to a Loader.
func MirrorSource(m mirror.Mirror, key string) Loader {
	if key == "" {
		key = DefaultKey
	}
	return &mirrorSource{m: m, key: key}
}

func (s *mirrorSource) Backend() string { return "mirror:" + s.m.Name() }

func (s *mirrorSource) Load(ctx context.Context) (checkpoint.Snapshot, error) {
	blob, err := s.m.Fetch(ctx, s.key)
	if err != nil {
		return nil, err
	}
	return Decode(blob.Content)
}

// LoadAll returns the first snapshot any source yields. Every failure (network,
// malformed payload, missing resource) is logged and the next source is tried;
// when all fail the result is an empty snapshot. It never returns an error.
func LoadAll(ctx context.Context, sources ...Loader) checkpoint.Snapshot {
	logger := xglog.WithComponentFromContext(ctx, "persistence")
	for _, src := range sources {
		if src == nil {
			continue
		}
		snap, err := src.Load(ctx)
		if err != nil {
			metrics.RecordStoreLoad(src.Backend(), "failure")
			logger.Warn().
				Err(err).
				Str(xglog.FieldEvent, "store.load_failed").
				Str(xglog.FieldBackend, src.Backend()).
				Msg("could not load checkpoints")
			continue
		}
		metrics.RecordStoreLoad(src.Backend(), "success")
		logger.Info().
			Str(xglog.FieldEvent, "store.loaded").
			Str(xglog.FieldBackend, src.Backend()).
			Int("checkpoints", snap.Len()).
			Msg("checkpoints loaded")
		return snap
	}
	logger.Warn().
		Str(xglog.FieldEvent, "store.load_empty").
		Msg("starting with an empty checkpoint store")
	return checkpoint.Snapshot{}
}
