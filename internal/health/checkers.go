// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/resumer/internal/mirror"
)

// WritableDirChecker verifies that the directory holding the local artifact
// exists and accepts new files. Without it checkpoints cannot be made durable.
type WritableDirChecker struct {
	name string
	path string
}

// NewWritableDirChecker creates a checker for dir.
func NewWritableDirChecker(name, dir string) *WritableDirChecker {
	return &WritableDirChecker{name: name, path: dir}
}

func (c *WritableDirChecker) Name() string { return c.name }

func (c *WritableDirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			// The first save creates it.
			return CheckResult{Status: StatusDegraded, Message: "directory does not exist yet"}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "path is not a directory"}
	}

	probe, err := os.CreateTemp(c.path, ".write_test-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: fmt.Sprintf("directory is not writable: %v", err)}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(filepath.Clean(name))

	return CheckResult{Status: StatusHealthy, Message: "writable"}
}

// pinger is implemented by mirrors that can probe their connection cheaply.
type pinger interface {
	HealthCheck(ctx context.Context) error
}

// MirrorChecker probes the remote mirror. An unreachable mirror only degrades
// the service: saves still land in the local artifact.
type MirrorChecker struct {
	m   mirror.Mirror
	key string
}

// NewMirrorChecker creates a checker for m.
func NewMirrorChecker(m mirror.Mirror, key string) *MirrorChecker {
	return &MirrorChecker{m: m, key: key}
}

func (c *MirrorChecker) Name() string { return "mirror" }

func (c *MirrorChecker) Check(ctx context.Context) CheckResult {
	if c.m == nil {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}

	var err error
	if p, ok := c.m.(pinger); ok {
		err = p.HealthCheck(ctx)
	} else {
		_, err = c.m.Fetch(ctx, c.key)
		if errors.Is(err, mirror.ErrNotFound) {
			err = nil
		}
	}
	if err != nil {
		return CheckResult{Status: StatusDegraded, Message: c.m.Name(), Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: c.m.Name()}
}
