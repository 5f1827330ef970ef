// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resume drives the playback-control capability to continue a context where
// the user left it, activating an output device once when none is active.
package resume

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/resumer/internal/checkpoint"
	xglog "github.com/ManuGH/resumer/internal/log"
	"github.com/ManuGH/resumer/internal/metrics"
	"github.com/ManuGH/resumer/internal/player"
	"github.com/ManuGH/resumer/internal/telemetry"
)

// ErrNoDevices is reported when device activation finds nothing to transfer to.
var ErrNoDevices = errors.New("resume: no devices available")

// Outcome is the terminal result label of a resume.
type Outcome string

const (
	OutcomeStarted          Outcome = "started"
	OutcomeResumed          Outcome = "resumed"
	OutcomeResumedActivated Outcome = "resumed (device activated)"
	OutcomeError            Outcome = "error"
)

// DecisionKind distinguishes the two ways of resuming.
type DecisionKind int

const (
	// StartContext plays the context from its beginning.
	StartContext DecisionKind = iota
	// ResumeAtOffset plays the saved item at a position.
	ResumeAtOffset
)

func (k DecisionKind) String() string {
	switch k {
	case ResumeAtOffset:
		return "resume_at_offset"
	case StartContext:
		return "start_context"
	default:
		return fmt.Sprintf("decision(%d)", int(k))
	}
}

// Decision is the transient plan of one resume. It is never persisted.
type Decision struct {
	Kind       DecisionKind
	ContextURI string
	ItemURI    string
	PositionMs int64
}

// Result describes how a resume ended. Err is set only for OutcomeError.
type Result struct {
	Outcome  Outcome
	Decision Decision
	// DeviceID is the device playback was transferred to, if activation happened.
	DeviceID string
	Err      error
}

// CheckpointReader is the read side of the checkpoint store.
type CheckpointReader interface {
	Get(userID, contextURI string) (checkpoint.Checkpoint, bool)
}

// Decide maps a checkpoint lookup to a decision.
func Decide(contextURI string, cp checkpoint.Checkpoint, found bool, position PositionPolicy) Decision {
	if !found {
		return Decision{Kind: StartContext, ContextURI: contextURI}
	}
	return Decision{
		Kind:       ResumeAtOffset,
		ContextURI: contextURI,
		ItemURI:    cp.ItemURI,
		PositionMs: position.PositionFor(cp),
	}
}

// Orchestrator runs the resume protocol against a playback controller.
type Orchestrator struct {
	store CheckpointReader
}

// New creates an orchestrator reading checkpoints from store.
func New(store CheckpointReader) *Orchestrator {
	return &Orchestrator{store: store}
}

type state int

const (
	stateIdle state = iota
	stateFallback
	stateAttempt
	stateActivate
	stateRetry
	stateDone
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateFallback:
		return "fallback"
	case stateAttempt:
		return "attempt_resume"
	case stateActivate:
		return "activate_device"
	case stateRetry:
		return "retry_resume"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// run carries the mutable state of a single Resume call.
type run struct {
	ctx        context.Context
	ctrl       player.Controller
	policy     Policy
	userID     string
	contextURI string
	logger     zerolog.Logger
	result     Result
}

// Resume continues contextURI for userID. Every path ends after at most one
// device activation and one retry; there is no backoff.
func (o *Orchestrator) Resume(ctx context.Context, ctrl player.Controller, userID, contextURI string, policy Policy) Result {
	if xglog.UserIDFromContext(ctx) == "" {
		ctx = xglog.ContextWithUserID(ctx, userID)
	}
	ctx, span := telemetry.Tracer("resumer/resume").Start(ctx, "resume.Resume")
	defer span.End()
	span.SetAttributes(telemetry.CheckpointAttributes(userID, contextURI, "", 0)...)

	r := &run{
		ctx:        ctx,
		ctrl:       ctrl,
		policy:     policy.withDefaults(),
		userID:     userID,
		contextURI: contextURI,
		logger:     xglog.WithComponentFromContext(ctx, "resume"),
	}

	for st := stateIdle; st != stateDone; {
		next := o.step(r, st)
		r.logger.Debug().
			Str(xglog.FieldEvent, "resume.transition").
			Str("from", st.String()).
			Str("to", next.String()).
			Msg("resume state transition")
		st = next
	}

	res := r.result
	metrics.RecordResumeOutcome(string(res.Outcome))
	span.SetAttributes(telemetry.ResumeAttributes(string(res.Outcome), res.Decision.Kind.String(), res.DeviceID, res.Decision.PositionMs)...)

	var ev *zerolog.Event
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		ev = r.logger.Warn().Err(res.Err)
	} else {
		ev = r.logger.Info()
	}
	ev.Str(xglog.FieldEvent, "resume.finished").
		Str(xglog.FieldOutcome, string(res.Outcome)).
		Str(xglog.FieldContextURI, contextURI).
		Str("decision", res.Decision.Kind.String()).
		Msg("resume finished")
	return res
}

func (o *Orchestrator) step(r *run, st state) state {
	switch st {
	case stateIdle:
		cp, found := o.store.Get(r.userID, r.contextURI)
		r.result.Decision = Decide(r.contextURI, cp, found, r.policy.Position)
		if r.result.Decision.Kind == StartContext {
			return stateFallback
		}
		return stateAttempt

	case stateFallback:
		if err := r.ctrl.StartContext(r.ctx, r.contextURI); err != nil {
			return r.fail(fmt.Errorf("start context: %w", err))
		}
		r.result.Outcome = OutcomeStarted
		return stateDone

	case stateAttempt:
		err := r.startAtOffset()
		switch {
		case err == nil:
			r.result.Outcome = OutcomeResumed
			return stateDone
		case player.IsNoActiveDevice(err):
			r.logger.Info().
				Str(xglog.FieldEvent, "resume.no_active_device").
				Str(xglog.FieldContextURI, r.contextURI).
				Msg("no active device, activating one")
			return stateActivate
		default:
			return r.fail(fmt.Errorf("resume at offset: %w", err))
		}

	case stateActivate:
		devices, err := r.ctrl.ListDevices(r.ctx)
		if err != nil {
			metrics.RecordDeviceActivation("failure")
			return r.fail(fmt.Errorf("list devices: %w", err))
		}
		if len(devices) == 0 {
			metrics.RecordDeviceActivation("no_devices")
			return r.fail(ErrNoDevices)
		}
		target := r.policy.Devices.Select(devices)
		if err := r.ctrl.TransferTo(r.ctx, target.ID, true); err != nil {
			metrics.RecordDeviceActivation("failure")
			return r.fail(fmt.Errorf("transfer to %s: %w", target.ID, err))
		}
		metrics.RecordDeviceActivation("transferred")
		r.result.DeviceID = target.ID
		r.logger.Info().
			Str(xglog.FieldEvent, "resume.device_activated").
			Str(xglog.FieldDeviceID, target.ID).
			Str("device_name", target.Name).
			Msg("playback transferred")
		return stateRetry

	case stateRetry:
		if err := r.startAtOffset(); err != nil {
			return r.fail(fmt.Errorf("resume after device activation: %w", err))
		}
		r.result.Outcome = OutcomeResumedActivated
		return stateDone
	}
	return r.fail(fmt.Errorf("resume: unexpected state %s", st))
}

func (r *run) startAtOffset() error {
	d := r.result.Decision
	return r.ctrl.StartAtOffset(r.ctx, d.ContextURI, d.ItemURI, d.PositionMs)
}

func (r *run) fail(err error) state {
	r.result.Outcome = OutcomeError
	r.result.Err = err
	return stateDone
}
