// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/ManuGH/resumer/internal/checkpoint"
	"github.com/ManuGH/resumer/internal/config"
	"github.com/ManuGH/resumer/internal/daemon"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/persistence"
	"github.com/ManuGH/resumer/internal/persistence/sqlite"
)

func newCheckpointsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Maintain the local checkpoint artifact",
	}

	var outPath string
	export := &cobra.Command{
		Use:   "export",
		Short: "Print the local snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			snap, err := loadLocal(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			data, err := persistence.Encode(snap)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := renameio.WriteFile(outPath, data, 0o600); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d checkpoints to %s\n", snap.Len(), outPath)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	export.Flags().StringVarP(&outPath, "out", "o", "", "write to this file instead of stdout")

	push := &cobra.Command{
		Use:   "push",
		Short: "Push the local snapshot to the remote mirror once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runPush(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	var mode string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the integrity of the local artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			return runVerify(cmd.Context(), cmd.OutOrStdout(), cfg, mode)
		},
	}
	verify.Flags().StringVar(&mode, "mode", "quick", "sqlite verification mode: quick or full")

	cmd.AddCommand(export, push, verify)
	return cmd
}

// loadLocal reads the local artifact. A missing artifact is an empty snapshot.
func loadLocal(ctx context.Context, cfg config.AppConfig) (checkpoint.Snapshot, error) {
	local, err := daemon.OpenLocal(cfg)
	if err != nil {
		return nil, err
	}
	defer closeLocal(local)

	snap, err := local.Load(ctx)
	if errors.Is(err, fs.ErrNotExist) {
		return checkpoint.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", local.Location(), err)
	}
	return snap, nil
}

func runPush(ctx context.Context, out io.Writer, cfg config.AppConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	remote, err := daemon.OpenMirror(ctx, cfg, xglog.WithComponent("mirror"))
	if err != nil {
		return fmt.Errorf("open mirror: %w", err)
	}
	if remote == nil {
		return errors.New("no mirror configured (persistence.mirror.backend is none)")
	}
	if c, ok := remote.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}

	local, err := daemon.OpenLocal(cfg)
	if err != nil {
		return err
	}
	defer closeLocal(local)

	snap, err := local.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", local.Location(), err)
	}

	syncer := persistence.NewSyncer(local, remote, daemon.SyncConfig(cfg))
	if err := syncer.PushRemote(ctx, snap); err != nil {
		return fmt.Errorf("push to %s: %w", remote.Name(), err)
	}
	_, _ = fmt.Fprintf(out, "pushed %d checkpoints to %s\n", snap.Len(), remote.Name())
	return nil
}

func runVerify(ctx context.Context, out io.Writer, cfg config.AppConfig, mode string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	path := config.LocalPath(cfg)

	verifyMode, err := sqlite.ParseVerifyMode(mode)
	if err != nil {
		return err
	}

	var issues []string
	if cfg.Persistence.Local == "sqlite" {
		found, err := sqlite.VerifyIntegrity(ctx, path, verifyMode)
		if err != nil {
			return fmt.Errorf("verify %s: %w", path, err)
		}
		issues = append(issues, found...)
	}

	snap, err := loadLocal(ctx, cfg)
	if err != nil {
		return err
	}
	issues = append(issues, snapshotIssues(snap)...)

	if len(issues) > 0 {
		for _, issue := range issues {
			_, _ = fmt.Fprintf(out, "  - %s\n", issue)
		}
		return fmt.Errorf("%s: %d integrity issues", path, len(issues))
	}
	_, _ = fmt.Fprintf(out, "%s ok (%d checkpoints)\n", path, snap.Len())
	return nil
}

// snapshotIssues reports entries the store would drop or misfile on load.
// Identifying fields left empty inside an entry are filled from its keys and are fine.
func snapshotIssues(snap checkpoint.Snapshot) []string {
	var issues []string
	for userID, byContext := range snap {
		for contextURI, cp := range byContext {
			switch {
			case userID == "" || contextURI == "":
				issues = append(issues, fmt.Sprintf("%q %q: empty key", userID, contextURI))
			case cp.ItemURI == "":
				issues = append(issues, fmt.Sprintf("%s %s: item uri is empty", userID, contextURI))
			case cp.ProgressMs < 0:
				issues = append(issues, fmt.Sprintf("%s %s: negative progress", userID, contextURI))
			case (cp.UserID != "" && cp.UserID != userID) || (cp.ContextURI != "" && cp.ContextURI != contextURI):
				issues = append(issues, fmt.Sprintf("%s %s: stored under the wrong key", userID, contextURI))
			}
		}
	}
	sort.Strings(issues)
	return issues
}

func closeLocal(local persistence.Local) {
	if c, ok := local.(io.Closer); ok {
		_ = c.Close()
	}
}
