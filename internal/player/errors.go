// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import "errors"

var (
	// Sentinel errors for errors.Is checks at the collaborator boundary.
	ErrNoActiveDevice = errors.New("player: no active device")
	ErrUnauthorized   = errors.New("player: unauthorized")
	ErrNotFound       = errors.New("player: resource not found")
	ErrRateLimited    = errors.New("player: rate limited")
	ErrUpstream       = errors.New("player: upstream failure")
)

// IsNoActiveDevice reports whether err is the recoverable "no active output device" condition.
func IsNoActiveDevice(err error) bool {
	return errors.Is(err, ErrNoActiveDevice)
}
