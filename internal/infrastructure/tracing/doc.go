/*
Package tracing provides the request-scoped distributed tracing core.

# Overview

Every inbound request (HTTP route or gRPC procedure) gets a root span;
nested operations open child spans that inherit the trace ID and link to
their parent automatically through the context. Completed spans are handed
to a pluggable Exporter exactly once.

# Propagation

The active span rides context.Context. It is request-local by construction:
concurrent requests never observe each other's active span, and the
reference survives goroutine handoff because it travels with the context,
not with the worker.

# Usage

	// Create tracer
	tracer := tracing.New("backend", logger, queue)

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// gRPC interceptors
	server := grpc.NewServer(
		grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)),
		grpc.StreamInterceptor(tracing.GRPCStreamInterceptor(tracer)),
	)

	// Wrap a business operation
	err := tracer.TraceCallFlow(ctx, "onboarding", callID, func(ctx context.Context, span *tracing.Span) error {
		return runOnboarding(ctx)
	})

	// Manual span lifecycle (instrumentation hooks)
	ctx, span := tracer.StartSpan(ctx, "operation")
	defer span.End()

# Error handling

Errors from traced bodies are recorded on the span and returned to the
caller unchanged. Tracing-infrastructure failures (exporter down, queue
full) degrade trace completeness only; they are logged and counted, and
never reach the request path. After Shutdown all tracing calls return inert
no-op spans.

# Attribute naming

Dot-namespaced lowercase keys (call.id, ai.provider, http.method, user.id)
plus the bare operation_type discriminator.

# Slow operations

At End, a span whose duration exceeds the configured threshold (default
1000ms, overridable per span) gets slow_operation=true and a warning log
before export.
*/
package tracing
