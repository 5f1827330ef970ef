// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/resumer/internal/config"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/playback"
)

// App owns the long-lived runtime lifecycle (config watcher, reload wiring)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	svc          *playback.Service
	reloadSignal os.Signal
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, cfgHolder *config.Holder, svc *playback.Service) *App {
	return &App{
		logger:       logger,
		manager:      manager,
		cfgHolder:    cfgHolder,
		svc:          svc,
		reloadSignal: syscall.SIGHUP,
	}
}

// New assembles the runtime for the holder's current configuration and returns
// the app that serves it. Runtime resources are released by the manager on shutdown.
func New(ctx context.Context, holder *config.Holder) (*App, error) {
	rt, err := Build(ctx, holder.Get(), nil)
	if err != nil {
		return nil, err
	}
	logger := xglog.WithComponent("daemon")
	mgr, err := NewManager(rt.Config.API, Deps{Logger: logger, APIHandler: rt.Handler, Health: rt.Health})
	if err != nil {
		_ = rt.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	mgr.RegisterShutdownHook("runtime", rt.Close)
	return NewApp(logger, mgr, holder, rt.Service), nil
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if a.cfgHolder != nil {
		if err := a.cfgHolder.StartWatcher(ctx); err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
	}

	// Resume policy is the only section applied without a restart.
	if a.cfgHolder != nil && a.svc != nil {
		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)

		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyPolicy(cfg)
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")

					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(xglog.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		if err := a.manager.Start(ctx); err != nil {
			return fmt.Errorf("daemon: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) applyPolicy(cfg config.AppConfig) {
	policy, err := PolicyFor(cfg)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "resume.policy_rejected").
			Msg("keeping previous resume policy")
		return
	}
	a.svc.SetPolicy(policy)
	a.logger.Info().
		Str(xglog.FieldEvent, "resume.policy_applied").
		Str("position_policy", cfg.Resume.PositionPolicy).
		Str("preferred_device", cfg.Resume.PreferredDevice).
		Msg("resume policy updated")
}
