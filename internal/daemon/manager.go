// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/resumer/internal/config"
	"github.com/ManuGH/resumer/internal/health"
	xglog "github.com/ManuGH/resumer/internal/log"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	idleTimeout            = 120 * time.Second
)

// ShutdownHook releases a resource during graceful shutdown.
type ShutdownHook func(ctx context.Context) error

// Manager runs the HTTP listener of the service and tears the process down in order:
// readiness drains, in-flight requests finish, then hooks run last-registered first.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
	RegisterShutdownHook(name string, hook ShutdownHook)
	// Addr is the bound address, nil before Start.
	Addr() net.Addr
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Logger     zerolog.Logger
	APIHandler http.Handler
	// Health, when set, reports not-ready as soon as shutdown begins.
	Health *health.Manager
}

// Validate reports the first missing dependency.
func (d Deps) Validate() error {
	switch {
	case d.Logger.GetLevel() == zerolog.Disabled:
		return ErrMissingLogger
	case d.APIHandler == nil:
		return ErrMissingAPIHandler
	}
	return nil
}

type namedHook struct {
	name string
	fn   ShutdownHook
}

type manager struct {
	cfg    config.APIConfig
	deps   Deps
	logger zerolog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	hooks    []namedHook
	started  bool
	stopping bool
}

// NewManager validates deps and applies the default shutdown budget.
func NewManager(cfg config.APIConfig, deps Deps) (Manager, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return &manager{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With().Str(xglog.FieldComponent, "manager").Logger(),
	}, nil
}

// Start binds the listener, serves, and blocks until ctx ends or the server fails.
// A bind failure still runs the registered hooks so the runtime gets closed.
func (m *manager) Start(ctx context.Context) error {
	if ctx == nil {
		return errors.New("daemon: nil start context")
	}

	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	serveErr, err := m.listen()
	if err != nil {
		return errors.Join(fmt.Errorf("listen on %s: %w", m.cfg.ListenAddr, err), m.boundedShutdown(ctx))
	}

	select {
	case err := <-serveErr:
		m.logger.Error().Err(err).Str(xglog.FieldEvent, "api.server_failed").Msg("API server failed, shutting down")
		if shutdownErr := m.boundedShutdown(ctx); shutdownErr != nil {
			return errors.Join(err, shutdownErr)
		}
		return err
	case <-ctx.Done():
		m.logger.Info().Str(xglog.FieldEvent, "daemon.stopping").Msg("shutdown requested")
		return m.boundedShutdown(ctx)
	}
}

// boundedShutdown detaches from ctx so shutdown completes after cancellation.
func (m *manager) boundedShutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()
	return m.Shutdown(shutdownCtx)
}

func (m *manager) listen() (<-chan error, error) {
	ln, err := net.Listen("tcp", m.cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Handler:           m.deps.APIHandler,
		ReadTimeout:       m.cfg.ReadTimeout,
		ReadHeaderTimeout: m.cfg.ReadTimeout / 2,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	m.mu.Lock()
	m.listener = ln
	m.server = srv
	m.mu.Unlock()

	m.logger.Info().
		Str(xglog.FieldEvent, "api.listening").
		Str("addr", ln.Addr().String()).
		Dur("read_timeout", m.cfg.ReadTimeout).
		Dur("write_timeout", m.cfg.WriteTimeout).
		Msg("API server listening")

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("serve: %w", err)
		}
	}()
	return serveErr, nil
}

func (m *manager) Addr() net.Addr {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Shutdown is idempotent. Hooks see ctx bounded by the shutdown timeout.
func (m *manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return errors.New("daemon: nil shutdown context")
	}

	m.mu.Lock()
	switch {
	case m.stopping:
		m.mu.Unlock()
		return nil
	case !m.started:
		m.mu.Unlock()
		return ErrManagerNotStarted
	}
	m.stopping = true
	srv := m.server
	hooks := append([]namedHook(nil), m.hooks...)
	m.mu.Unlock()

	if m.deps.Health != nil {
		m.deps.Health.SetDraining()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	// In-flight saves finish before the hooks close the local artifact.
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("API server shutdown: %w", err))
		}
	}

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		err := h.fn(ctx)
		ev := m.logger.Debug()
		if err != nil {
			ev = m.logger.Error().Err(err)
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
		ev.Str(xglog.FieldEvent, "daemon.hook").
			Str("hook", h.name).
			Dur("duration", time.Since(start)).
			Msg("shutdown hook finished")
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	m.logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("daemon stopped cleanly")
	return nil
}

func (m *manager) RegisterShutdownHook(name string, hook ShutdownHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, fn: hook})
}
