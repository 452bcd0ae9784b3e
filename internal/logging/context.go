package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

const (
	// FieldComponent is the structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldUnit is the supervised unit name.
	FieldUnit = "unit"
	// FieldInvocationID ties together every line emitted by one CLI run.
	FieldInvocationID = "invocation_id"
)

type invocationKey struct{}

// WithInvocationID returns a context carrying id.
func WithInvocationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, invocationKey{}, id)
}

// NewInvocation attaches a freshly generated invocation id to ctx.
func NewInvocation(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithInvocationID(ctx, id), id
}

// InvocationIDFromContext reports the invocation id stored in ctx.
func InvocationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(invocationKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	id, ok := InvocationIDFromContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(String(FieldInvocationID, id))
}
