// SPDX-License-Identifier: MIT

// Package daemon assembles the service graph from configuration and owns its lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/resumer/internal/api"
	"github.com/ManuGH/resumer/internal/checkpoint"
	"github.com/ManuGH/resumer/internal/config"
	"github.com/ManuGH/resumer/internal/health"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/mirror"
	"github.com/ManuGH/resumer/internal/persistence"
	"github.com/ManuGH/resumer/internal/persistence/sqlite"
	"github.com/ManuGH/resumer/internal/playback"
	"github.com/ManuGH/resumer/internal/player"
	"github.com/ManuGH/resumer/internal/resume"
	"github.com/ManuGH/resumer/internal/spotify"
	"github.com/ManuGH/resumer/internal/telemetry"
)

const serviceName = "resumer"

// Runtime is the assembled service graph of one process.
type Runtime struct {
	Config  config.AppConfig
	Store   *checkpoint.Store
	Service *playback.Service
	Syncer  *persistence.Syncer
	Local   persistence.Local
	Mirror  mirror.Mirror
	Handler http.Handler
	Health  *health.Manager

	telemetry *telemetry.Provider
	logger    zerolog.Logger
}

// OpenLocal opens the configured local snapshot artifact.
func OpenLocal(cfg config.AppConfig) (persistence.Local, error) {
	path := config.LocalPath(cfg)
	switch cfg.Persistence.Local {
	case "", "file":
		return persistence.NewFileSnapshot(path), nil
	case "sqlite":
		s, err := sqlite.NewSnapshot(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite snapshot: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown local backend: %s (supported: file, sqlite)", cfg.Persistence.Local)
	}
}

// OpenMirror opens the configured remote mirror. It returns nil, nil when mirroring is disabled.
func OpenMirror(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (mirror.Mirror, error) {
	mc := cfg.Persistence.Mirror
	return mirror.Open(ctx, mirror.Config{
		Backend: mc.Backend,
		Redis: mirror.RedisConfig{
			Addr:     mc.Redis.Addr,
			Password: mc.Redis.Password,
			DB:       mc.Redis.DB,
			Prefix:   mc.Redis.Prefix,
		},
		GitHub: mirror.GitHubConfig{
			Owner:   mc.GitHub.Owner,
			Repo:    mc.GitHub.Repo,
			Branch:  mc.GitHub.Branch,
			Dir:     mc.GitHub.Dir,
			Token:   mc.GitHub.Token,
			Timeout: mc.GitHub.Timeout,
		},
	}, logger)
}

// SyncConfig maps the mirror settings onto the syncer.
func SyncConfig(cfg config.AppConfig) persistence.SyncConfig {
	mc := cfg.Persistence.Mirror
	return persistence.SyncConfig{
		Key:            mc.Key,
		PushRetries:    mc.PushRetries,
		InitialBackoff: mc.InitialBackoff,
		MaxBackoff:     mc.MaxBackoff,
	}
}

// HealthFor registers the readiness checks of rt: the directory of the local
// artifact must be writable and the mirror, when configured, reachable.
func HealthFor(rt *Runtime) *health.Manager {
	hm := health.NewManager(rt.Config.Version)
	hm.RegisterChecker(health.NewWritableDirChecker("local_dir", filepath.Dir(rt.Local.Location())))
	if rt.Mirror != nil {
		key := rt.Config.Persistence.Mirror.Key
		if key == "" {
			key = persistence.DefaultKey
		}
		hm.RegisterChecker(health.NewMirrorChecker(rt.Mirror, key))
	}
	return hm
}

// PolicyFor builds the resume policy of the resume section.
func PolicyFor(cfg config.AppConfig) (resume.Policy, error) {
	return resume.NewPolicy(cfg.Resume.PositionPolicy, cfg.Resume.PreferredDevice)
}

// Build loads checkpoints and assembles the service graph. The caller must Close the runtime.
func Build(ctx context.Context, cfg config.AppConfig, clients api.ClientFactory) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg, logger: xglog.WithComponent("daemon")}
	defer func() {
		if err != nil {
			_ = rt.Close(context.WithoutCancel(ctx))
		}
	}()

	rt.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	if rt.Local, err = OpenLocal(cfg); err != nil {
		return nil, err
	}
	if rt.Mirror, err = OpenMirror(ctx, cfg, xglog.WithComponent("mirror")); err != nil {
		return nil, fmt.Errorf("open mirror: %w", err)
	}

	var sources []persistence.Loader
	if rt.Mirror != nil {
		sources = append(sources, persistence.MirrorSource(rt.Mirror, cfg.Persistence.Mirror.Key))
	}
	if cfg.Persistence.FallbackLocal {
		sources = append(sources, rt.Local)
	}
	snap := persistence.LoadAll(ctx, sources...)

	policy, err := PolicyFor(cfg)
	if err != nil {
		return nil, err
	}

	rt.Syncer = persistence.NewSyncer(rt.Local, rt.Mirror, SyncConfig(cfg))
	rt.Store = checkpoint.NewStore(rt.Syncer)
	rt.Store.Replace(snap)
	rt.Service = playback.NewService(rt.Store, playback.Options{
		PageSize:        cfg.Spotify.PageSize,
		ListConcurrency: cfg.Resume.ListConcurrency,
		Policy:          policy,
	})

	if clients == nil {
		clients = SpotifyClients(cfg)
	}
	tracing := ""
	if rt.telemetry.Enabled() {
		tracing = serviceName
	}
	rt.Health = HealthFor(rt)
	rt.Handler = api.New(api.Config{
		Version:        cfg.Version,
		RateLimitRPM:   cfg.API.RateLimitRPM,
		TracingService: tracing,
		Health:         rt.Health,
	}, rt.Service, clients).Handler()

	rt.logger.Info().
		Str(xglog.FieldEvent, "daemon.built").
		Str(xglog.FieldBackend, rt.Local.Backend()).
		Str(xglog.FieldPath, rt.Local.Location()).
		Str("mirror", mirrorName(rt.Mirror)).
		Int("checkpoints", rt.Store.Len()).
		Msg("runtime assembled")
	return rt, nil
}

// SpotifyClients returns a client factory for the Spotify Web API.
func SpotifyClients(cfg config.AppConfig) api.ClientFactory {
	f := spotify.NewFactory(spotify.Options{
		BaseURL:        cfg.Spotify.BaseURL,
		Timeout:        cfg.Spotify.Timeout,
		RateLimit:      rate.Limit(cfg.Spotify.RateLimit),
		RateLimitBurst: cfg.Spotify.RateLimitBurst,
		UserAgent:      serviceName + "/" + cfg.Version,
	})
	return api.ClientFactoryFunc(func(token string) player.Client {
		return f.ForToken(token)
	})
}

// Close releases the local artifact, the mirror connection and the tracer provider.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if c, ok := rt.Local.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := rt.Mirror.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if rt.telemetry != nil {
		errs = append(errs, rt.telemetry.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

func mirrorName(m mirror.Mirror) string {
	if m == nil {
		return "none"
	}
	return m.Name()
}
