package tracing

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/indranet/internal/shared/id"
)

// Header carries the trace id on requests and responses
const Header = "X-Trace-ID"

const maxTraceIDLen = 128

// TraceID identifies one inbound request across log lines
type TraceID string

// New allocates a fresh trace id
func New() TraceID {
	return TraceID(id.NewRequestID())
}

// Context keys for trace propagation
type contextKey string

const traceIDKey contextKey = "trace_id"

// WithTraceID returns ctx carrying traceID
func WithTraceID(ctx context.Context, traceID TraceID) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		return traceID
	}
	return ""
}

// Field returns the trace id as a log field, or a no-op field when ctx has none
func Field(ctx context.Context) zap.Field {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		return zap.Skip()
	}
	return zap.String("trace_id", string(traceID))
}

// Valid reports whether an inbound id is safe to echo and log: 1 to 128
// visible ASCII characters
func Valid(raw string) bool {
	if raw == "" || len(raw) > maxTraceIDLen {
		return false
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] <= ' ' || raw[i] > '~' {
			return false
		}
	}
	return true
}
