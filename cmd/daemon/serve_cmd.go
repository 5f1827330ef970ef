// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/resumer/internal/config"
	"github.com/ManuGH/resumer/internal/daemon"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/version"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}

	// Safe defaults until the configuration is loaded.
	xglog.Configure(xglog.Config{Level: "info", Service: "resumer", Version: version.Version})
	logger := xglog.WithComponent("daemon")

	loader, cfg, err := loadConfig(opts)
	if err != nil {
		logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.load_failed").
			Str("config_path", resolveConfigPath(opts.configPath)).
			Msg("failed to load configuration")
		return err
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: cfg.Version})
	logger = xglog.WithComponent("daemon")

	source := "env"
	if loader.ConfigPath() != "" {
		source = "file"
	}
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("source", source).
		Str(xglog.FieldPath, loader.ConfigPath()).
		Str("version", version.Version).
		Str("commit", version.Commit).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := daemon.New(ctx, config.NewHolder(cfg, loader))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.exit_error").Msg("daemon stopped with error")
		return err
	}
	logger.Info().Str(xglog.FieldEvent, "daemon.exit").Msg("daemon stopped")
	return nil
}
