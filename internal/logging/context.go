package logging

import (
	"context"
	"log/slog"
)

// Shared structured-log field names.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldCorrelationID = "correlation_id"
	FieldStatus        = "status"
	FieldAttempt       = "attempt"
)

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID stores a request correlation id on the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation id, or "" when unset.
func CorrelationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithContext returns a logger enriched with fields carried on the context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		logger = logger.With(String(FieldCorrelationID, id))
	}
	return logger
}
