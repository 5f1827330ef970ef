// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"fmt"
	"strings"

	"github.com/ManuGH/resumer/internal/checkpoint"
	"github.com/ManuGH/resumer/internal/player"
)

// PositionPolicy decides where inside the saved item playback restarts.
type PositionPolicy string

const (
	// PositionStart restarts the saved item from zero. Robust against stale elapsed times.
	PositionStart PositionPolicy = "start"
	// PositionSaved restarts at the exact saved progress.
	PositionSaved PositionPolicy = "saved"
)

// ParsePositionPolicy accepts "start" or "saved" (case-insensitive). Empty selects PositionStart.
func ParsePositionPolicy(s string) (PositionPolicy, error) {
	switch PositionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PositionStart:
		return PositionStart, nil
	case PositionSaved:
		return PositionSaved, nil
	default:
		return "", fmt.Errorf("unknown position policy %q (supported: start, saved)", s)
	}
}

// PositionFor returns the offset to resume cp at.
func (p PositionPolicy) PositionFor(cp checkpoint.Checkpoint) int64 {
	if p == PositionSaved && cp.ProgressMs > 0 {
		return cp.ProgressMs
	}
	return 0
}

// DeviceSelector picks the device to activate from a non-empty list.
type DeviceSelector interface {
	Select(devices []player.Device) player.Device
}

// FirstDevice selects the first listed device.
type FirstDevice struct{}

func (FirstDevice) Select(devices []player.Device) player.Device {
	return devices[0]
}

// PreferredDevice selects the device whose name or ID matches Name
// (case-insensitive) and falls back to the first listed device.
type PreferredDevice struct {
	Name string
}

func (p PreferredDevice) Select(devices []player.Device) player.Device {
	if p.Name != "" {
		for _, d := range devices {
			if strings.EqualFold(d.Name, p.Name) || d.ID == p.Name {
				return d
			}
		}
	}
	return devices[0]
}

// Policy bundles the pluggable decisions of one resume.
type Policy struct {
	Position PositionPolicy
	Devices  DeviceSelector
}

// DefaultPolicy restarts the saved item from zero on the first listed device.
func DefaultPolicy() Policy {
	return Policy{Position: PositionStart, Devices: FirstDevice{}}
}

// NewPolicy builds a policy from its configured form.
func NewPolicy(position, preferredDevice string) (Policy, error) {
	pos, err := ParsePositionPolicy(position)
	if err != nil {
		return Policy{}, err
	}
	p := Policy{Position: pos, Devices: FirstDevice{}}
	if preferredDevice != "" {
		p.Devices = PreferredDevice{Name: preferredDevice}
	}
	return p, nil
}

func (p Policy) withDefaults() Policy {
	if p.Position == "" {
		p.Position = PositionStart
	}
	if p.Devices == nil {
		p.Devices = FirstDevice{}
	}
	return p
}
