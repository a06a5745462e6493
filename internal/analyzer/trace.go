package analyzer

import (
	"context"

	"github.com/google/uuid"
)

// Log field names shared by every analyzer log line.
const (
	FieldTraceID    = "trace_id"
	FieldOperation  = "operation"
	FieldServiceID  = "service_id"
	FieldDurationMs = "duration_ms"
)

type traceIDKey struct{}

// WithTraceID returns a context carrying traceID for log correlation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace ID stored by WithTraceID, or "" when
// none is set.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// resolveTraceID returns the context's trace ID, generating a UUID if not present.
func resolveTraceID(ctx context.Context) string {
	if id := TraceIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.New().String()
}
