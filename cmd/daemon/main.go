// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ManuGH/resumer/internal/config"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/version"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "resumer",
		Short: "Playback checkpoint and resume service",
		Long: `resumer records the playback position of a user inside a context and
resumes it later, activating an output device when none is active.

Configuration precedence: environment (RESUMER_*) > config file > defaults.
Without a subcommand the HTTP service is started.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Maintenance commands log readable warnings to stderr; serve reconfigures.
			xglog.Configure(xglog.Config{Level: "warn", Output: cmd.ErrOrStderr(), Console: true, Version: version.Version})
			return loadDotEnv(opts.envFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML); defaults to $RESUMER_DATA/config.yaml when present")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration; missing files are ignored")

	root.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newCheckpointsCmd(opts),
	)
	return root
}

// loadDotEnv loads path into the process environment without overriding
// variables that are already set.
func loadDotEnv(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath returns the explicit path, or $RESUMER_DATA/config.yaml
// when that file exists, or "" for an environment-only configuration.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(os.Getenv(config.EnvPrefix + "DATA"))
	if dataDir == "" {
		return ""
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

func loadConfig(opts *rootOptions) (*config.Loader, config.AppConfig, error) {
	loader := config.NewLoader(resolveConfigPath(opts.configPath), version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, cfg, err
	}
	return loader, cfg, nil
}
