// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// GitHubConfig locates the snapshot file inside a repository.
type GitHubConfig struct {
	Owner         string
	Repo          string
	Branch        string // empty uses the default branch
	Dir           string // directory inside the repository, may be empty
	Token         string
	CommitMessage string
	Timeout       time.Duration
}

// GitHubMirror stores blobs as files through the repository contents API.
// The blob SHA returned by GitHub is the revision token.
type GitHubMirror struct {
	gh     *gh.Client
	cfg    GitHubConfig
	logger zerolog.Logger
}

// NewGitHubMirror builds a mirror authenticated with a static token.
func NewGitHubMirror(ctx context.Context, cfg GitHubConfig, logger zerolog.Logger) *GitHubMirror {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(ctx, ts)
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	tc.Timeout = cfg.Timeout
	return newGitHubMirror(gh.NewClient(tc), cfg, logger)
}

func newGitHubMirror(client *gh.Client, cfg GitHubConfig, logger zerolog.Logger) *GitHubMirror {
	if cfg.CommitMessage == "" {
		cfg.CommitMessage = "Update playback checkpoints"
	}
	return &GitHubMirror{gh: client, cfg: cfg, logger: logger}
}

func (m *GitHubMirror) Name() string { return "github" }

func (m *GitHubMirror) filePath(key string) string {
	if m.cfg.Dir == "" {
		return key
	}
	return path.Join(m.cfg.Dir, key)
}

func (m *GitHubMirror) Fetch(ctx context.Context, key string) (Blob, error) {
	opts := &gh.RepositoryContentGetOptions{Ref: m.cfg.Branch}
	file, _, _, err := m.gh.Repositories.GetContents(ctx, m.cfg.Owner, m.cfg.Repo, m.filePath(key), opts)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return Blob{}, ErrNotFound
		}
		return Blob{}, fmt.Errorf("github get contents %s: %w", key, err)
	}
	if file == nil {
		return Blob{}, fmt.Errorf("github get contents %s: path is a directory", key)
	}
	content, err := file.GetContent()
	if err != nil {
		return Blob{}, fmt.Errorf("github decode contents %s: %w", key, err)
	}
	return Blob{Content: []byte(content), Revision: Revision(file.GetSHA())}, nil
}

func (m *GitHubMirror) Put(ctx context.Context, key string, content []byte, expected Revision) (Revision, error) {
	opts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(m.cfg.CommitMessage),
		Content: content,
	}
	if m.cfg.Branch != "" {
		opts.Branch = gh.Ptr(m.cfg.Branch)
	}

	var (
		resp *gh.RepositoryContentResponse
		err  error
	)
	if expected == "" {
		resp, _, err = m.gh.Repositories.CreateFile(ctx, m.cfg.Owner, m.cfg.Repo, m.filePath(key), opts)
	} else {
		opts.SHA = gh.Ptr(string(expected))
		resp, _, err = m.gh.Repositories.UpdateFile(ctx, m.cfg.Owner, m.cfg.Repo, m.filePath(key), opts)
	}
	if err != nil {
		switch statusCode(err) {
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return "", fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return "", fmt.Errorf("github put contents %s: %w", key, err)
	}
	if resp == nil || resp.Content == nil {
		return "", nil
	}
	return Revision(resp.Content.GetSHA()), nil
}

func statusCode(err error) int {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}
