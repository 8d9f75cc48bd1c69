// Package tracing wires OpenTelemetry spans around the highlighting pipeline
// and carries a per-request ID through contexts.
package tracing

import (
	"context"

	"github.com/google/uuid"

	"github.com/zjrosen/shine/internal/log"
)

// NewRequestID returns a random request ID.
func NewRequestID() string {
	return uuid.NewString()
}

// RequestIDFromContext returns the request ID stored in ctx, or "". The ID
// shares its context key with the log package, so log.DebugCtx and friends
// tag entries with it.
func RequestIDFromContext(ctx context.Context) string {
	return log.RequestID(ctx)
}

// ContextWithRequestID stores id in ctx. An empty id returns ctx unchanged.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return log.WithRequestID(ctx, id)
}

// EnsureRequestID returns ctx carrying a request ID, generating one if
// absent, along with the ID.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := RequestIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := NewRequestID()
	return ContextWithRequestID(ctx, id), id
}
