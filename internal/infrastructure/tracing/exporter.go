package tracing

import "context"

// Exporter receives completed spans. Implementations take ownership of the
// span at Export time and must not mutate it. Export failures stay inside
// the tracing subsystem: they are logged and counted, never surfaced to the
// operation that produced the span.
//
// The production implementation is a bounded fire-and-forget queue in the
// export package; tests plug in an in-memory capture.
type Exporter interface {
	// Export ships one completed span. Must not block request handling.
	Export(span *Span) error

	// Shutdown flushes buffered spans and releases resources.
	Shutdown(ctx context.Context) error
}
