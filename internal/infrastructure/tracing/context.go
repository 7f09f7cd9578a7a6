package tracing

import (
	"context"

	"github.com/callwise/backend/internal/shared/id"
)

// Context keys for request-scoped propagation. The active span rides the
// request's context.Context, so each logical task carries its own scope and
// the reference survives goroutine handoff as part of the captured
// continuation state. Never a process-wide variable.
type contextKey string

const (
	activeSpanKey    contextKey = "active_span"
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
)

// ContextWithSpan returns a context carrying span as the active span.
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, activeSpanKey, span)
}

// SpanFromContext returns the active span for ctx. The second return is
// false outside any traced scope; that is not an error condition.
func SpanFromContext(ctx context.Context) (*Span, bool) {
	span, ok := ctx.Value(activeSpanKey).(*Span)
	return span, ok && span != nil
}

// TraceIDFromContext returns the active trace ID, empty when none.
func TraceIDFromContext(ctx context.Context) id.TraceID {
	if span, ok := SpanFromContext(ctx); ok {
		return span.TraceID()
	}
	return ""
}

// SpanIDFromContext returns the active span ID, empty when none.
func SpanIDFromContext(ctx context.Context) id.SpanID {
	if span, ok := SpanFromContext(ctx); ok {
		return span.SpanID()
	}
	return ""
}

// ContextWithCorrelation attaches the request's correlation and request
// identifiers. Set once at request entry, read by the traced logger and the
// response-header hooks.
func ContextWithCorrelation(ctx context.Context, corrID id.CorrelationID, reqID id.RequestID) context.Context {
	ctx = context.WithValue(ctx, correlationIDKey, corrID)
	return context.WithValue(ctx, requestIDKey, reqID)
}

// CorrelationFromContext returns the correlation ID for ctx, empty when the
// request entry hook never ran.
func CorrelationFromContext(ctx context.Context) id.CorrelationID {
	corrID, _ := ctx.Value(correlationIDKey).(id.CorrelationID)
	return corrID
}

// RequestIDFromContext returns the request ID for ctx, empty when absent.
func RequestIDFromContext(ctx context.Context) id.RequestID {
	reqID, _ := ctx.Value(requestIDKey).(id.RequestID)
	return reqID
}
