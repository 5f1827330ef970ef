// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package log provides structured logging utilities.
package log

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
)

func withValue(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringFromContext(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// ContextWithRequestID stores the request correlation id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// ContextWithUserID stores the playback user resolved from the bearer token.
func ContextWithUserID(ctx context.Context, id string) context.Context {
	return withValue(ctx, userIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string { return stringFromContext(ctx, requestIDKey) }
func UserIDFromContext(ctx context.Context) string    { return stringFromContext(ctx, userIDKey) }

// WithContext adds request_id, user_id and, for a valid span, trace_id and
// span_id to logger. Without any of them logger is returned unchanged.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	if ctx == nil {
		return logger
	}
	rid := RequestIDFromContext(ctx)
	uid := UserIDFromContext(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if rid == "" && uid == "" && !sc.IsValid() {
		return logger
	}

	b := logger.With()
	if rid != "" {
		b = b.Str(FieldRequestID, rid)
	}
	if uid != "" {
		b = b.Str(FieldUserID, uid)
	}
	if sc.IsValid() {
		b = b.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	return b.Logger()
}

// WithComponentFromContext is WithContext over the component logger.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}

// FromContext returns the logger attached with zerolog's WithContext, or the
// base logger enriched from ctx.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		l := Base()
		return &l
	}
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	l := WithContext(ctx, Base())
	return &l
}
