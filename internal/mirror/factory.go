// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mirror

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Config selects and configures a mirror backend.
type Config struct {
	Backend string // none|memory|redis|github
	Redis   RedisConfig
	GitHub  GitHubConfig
}

// Open creates a mirror for the configured backend. It returns nil, nil for "none".
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (Mirror, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryMirror(), nil
	case "redis":
		m, err := NewRedisMirror(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "github":
		if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
			return nil, fmt.Errorf("github mirror requires owner and repo")
		}
		return NewGitHubMirror(ctx, cfg.GitHub, logger), nil
	default:
		return nil, fmt.Errorf("unknown mirror backend: %s (supported: none, memory, redis, github)", cfg.Backend)
	}
}
