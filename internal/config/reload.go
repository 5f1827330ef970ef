// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/resumer/internal/log"
)

const defaultDebounce = 500 * time.Millisecond

// Holder serves the current configuration and swaps it on reload.
// Reloads are all-or-nothing: an invalid file keeps the previous configuration.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig

	loader   *Loader
	logger   zerolog.Logger
	debounce time.Duration

	listenersMu sync.Mutex
	listeners   []chan AppConfig
}

// NewHolder creates a holder serving initial until the first reload.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: defaultDebounce,
	}
}

// Get returns the current configuration.
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// RegisterListener subscribes ch to reloads. Delivery never blocks: a listener
// that has not consumed the previous config gets it replaced by the newer one,
// so a buffer of one is enough.
func (h *Holder) RegisterListener(ch chan AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

// Reload loads and validates the file, swaps it in and notifies listeners.
func (h *Holder) Reload(_ context.Context) error {
	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("configuration reload rejected")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	h.notifyListeners(next)

	ev := h.logger.Info().Str(xglog.FieldEvent, "config.reloaded")
	if prev.Resume != next.Resume {
		ev = ev.Str("position_policy", next.Resume.PositionPolicy).Str("preferred_device", next.Resume.PreferredDevice)
	}
	ev.Msg("configuration reloaded")

	if sections := RestartRequired(prev, next); len(sections) > 0 {
		h.logger.Warn().
			Str(xglog.FieldEvent, "config.restart_required").
			Strs("sections", sections).
			Msg("changed settings apply after a restart")
	}
	return nil
}

func (h *Holder) notifyListeners(cfg AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
			continue
		default:
		}
		// Drop the stale pending config, then retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(xglog.FieldEvent, "config.listener_skip").Msg("listener not ready, reload not delivered")
		}
	}
}

// RestartRequired names the sections that differ between prev and next and
// are only read at startup. Only the resume section applies live.
func RestartRequired(prev, next AppConfig) []string {
	var sections []string
	if prev.LogLevel != next.LogLevel || prev.LogService != next.LogService {
		sections = append(sections, "log")
	}
	if prev.API != next.API {
		sections = append(sections, "api")
	}
	if prev.Persistence != next.Persistence {
		sections = append(sections, "persistence")
	}
	if prev.Spotify != next.Spotify {
		sections = append(sections, "spotify")
	}
	if prev.Telemetry != next.Telemetry {
		sections = append(sections, "telemetry")
	}
	return sections
}

// StartWatcher reloads on changes to the config file until ctx ends.
// Without a config file (env-only configuration) it does nothing.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.ConfigPath()
	if path == "" {
		h.logger.Info().Str(xglog.FieldEvent, "config.watcher_disabled").Msg("no config file, watcher disabled")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace the file via rename, which drops a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().Str(xglog.FieldEvent, "config.watcher_started").Str(xglog.FieldPath, path).Msg("watching config file")
	go h.watch(ctx, watcher, filepath.Clean(path))
	return nil
}

func (h *Holder) watch(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(h.debounce, func() {
				// Failures are logged by Reload.
				_ = h.Reload(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}
