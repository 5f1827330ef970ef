// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"fmt"

	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/player"
)

// Command is a playback control action.
type Command int

const (
	CommandPause Command = iota + 1
	// CommandPlay continues the current playback on the active device.
	CommandPlay
)

func (c Command) String() string {
	switch c {
	case CommandPause:
		return "pause"
	case CommandPlay:
		return "play"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Status is the success status reported for the command.
func (c Command) Status() string {
	switch c {
	case CommandPause:
		return "paused"
	case CommandPlay:
		return "playing"
	default:
		return ""
	}
}

// Control applies cmd through the controller.
func (s *Service) Control(ctx context.Context, ctrl player.Controller, cmd Command) error {
	var err error
	switch cmd {
	case CommandPause:
		err = ctrl.Pause(ctx)
	case CommandPlay:
		err = ctrl.ResumeCurrent(ctx)
	default:
		return fmt.Errorf("playback: unknown command %d", int(cmd))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	logger := xglog.WithComponentFromContext(ctx, "playback")
	logger.Debug().
		Str(xglog.FieldEvent, "playback.control").
		Str("command", cmd.String()).
		Msg("playback command applied")
	return nil
}
