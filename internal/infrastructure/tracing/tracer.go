package tracing

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/callwise/backend/internal/infrastructure/monitoring"
	"github.com/callwise/backend/internal/shared/id"
	"go.uber.org/zap"
)

// Attribute keys follow one convention: dot-namespaced lowercase keys, plus
// the bare operation_type discriminator.
const (
	AttrOperationType = "operation_type"
	AttrCallID        = "call.id"
	AttrAIProvider    = "ai.provider"
	AttrAIOperation   = "ai.operation"
	AttrAIModel       = "ai.model"
	AttrUserID        = "user.id"
	AttrHTTPMethod    = "http.method"
	AttrHTTPRoute     = "http.route"
	AttrHTTPStatus    = "http.status_code"
	AttrRPCSystem     = "rpc.system"
	AttrRPCProcedure  = "rpc.procedure"
	AttrCorrelationID = "correlation.id"
	AttrRequestID     = "request.id"
)

// operation_type values stamped by the domain helpers.
const (
	OperationTypeCallFlow = "call_flow"
	OperationTypeAIML     = "ai_ml"
	OperationTypeDatabase = "database"
)

// DefaultSlowThreshold flags operations slower than this unless overridden
// via configuration or a per-span start option.
const DefaultSlowThreshold = 1000 * time.Millisecond

// Tracer is the tracing service facade: span creation, domain helpers, slow
// operation detection, health and metrics self-reporting.
type Tracer struct {
	service  string
	logger   *zap.Logger
	exporter Exporter
	metrics  *monitoring.Metrics

	slowThreshold time.Duration
	initialized   bool
	disabled      bool

	shutdown     atomic.Bool
	shutdownOnce sync.Once

	spanCount      atomic.Int64
	errorCount     atomic.Int64
	slowCount      atomic.Int64
	exportedCount  atomic.Int64
	exportFailures atomic.Int64
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithSlowThreshold overrides the default slow-operation threshold.
func WithSlowThreshold(d time.Duration) Option {
	return func(t *Tracer) { t.slowThreshold = d }
}

// WithMetrics wires prometheus span metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(t *Tracer) { t.metrics = m }
}

// WithInitFailure marks the tracer unhealthy because its exporter could not
// be initialized. The tracer still works; only trace completeness degrades.
func WithInitFailure(err error) Option {
	return func(t *Tracer) {
		t.initialized = false
		t.logger.Warn("tracer running without exporter", zap.Error(err))
	}
}

// WithDisabled makes the tracer hand out inert spans from the start.
func WithDisabled() Option {
	return func(t *Tracer) { t.disabled = true }
}

// New creates a tracer. A nil exporter is allowed: spans complete normally
// but are not shipped anywhere.
func New(service string, logger *zap.Logger, exporter Exporter, opts ...Option) *Tracer {
	t := &Tracer{
		service:       service,
		logger:        logger,
		exporter:      exporter,
		slowThreshold: DefaultSlowThreshold,
		initialized:   true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Service returns the service name spans are attributed to.
func (t *Tracer) Service() string { return t.service }

// StartOption configures a single span at creation.
type StartOption func(*startConfig)

type startConfig struct {
	parent        *Span
	attrs         map[string]interface{}
	slowThreshold time.Duration
}

// WithParent sets an explicit parent instead of the context's active span.
func WithParent(parent *Span) StartOption {
	return func(c *startConfig) { c.parent = parent }
}

// WithAttributes sets initial attributes on the new span.
func WithAttributes(attrs map[string]interface{}) StartOption {
	return func(c *startConfig) { c.attrs = attrs }
}

// WithSpanSlowThreshold overrides the slow threshold for this span only.
func WithSpanSlowThreshold(d time.Duration) StartOption {
	return func(c *startConfig) { c.slowThreshold = d }
}

// StartSpan opens a span and returns a context carrying it as the active
// span. Without an explicit parent the context's active span is used; with
// no active span the new span becomes a trace root with a fresh trace ID.
//
// This is the low-level primitive for instrumentation hooks needing manual
// lifecycle control; application code should prefer the Trace* wrappers.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...StartOption) (context.Context, *Span) {
	if t.disabled || t.shutdown.Load() {
		span := newNoopSpan(name)
		return ContextWithSpan(ctx, span), span
	}

	cfg := startConfig{slowThreshold: t.slowThreshold}
	for _, opt := range opts {
		opt(&cfg)
	}

	parent := cfg.parent
	if parent == nil {
		if active, ok := SpanFromContext(ctx); ok && !active.noop {
			parent = active
		}
	}

	var traceID id.TraceID
	var parentID id.SpanID
	if parent != nil {
		traceID = parent.TraceID()
		parentID = parent.SpanID()
	} else {
		traceID = id.NewTraceID()
	}

	attrs := make(map[string]interface{}, len(cfg.attrs))
	for k, v := range cfg.attrs {
		attrs[k] = v
	}

	span := &Span{
		traceID:       traceID,
		spanID:        id.NewSpanID(),
		parentID:      parentID,
		name:          name,
		startTime:     time.Now(),
		slowThreshold: cfg.slowThreshold,
		attrs:         attrs,
		onEnd:         t.onSpanEnd,
	}

	t.spanCount.Add(1)
	if t.metrics != nil {
		t.metrics.RecordSpanStart()
	}

	return ContextWithSpan(ctx, span), span
}

func newNoopSpan(name string) *Span {
	return &Span{
		name:      name,
		startTime: time.Now(),
		attrs:     make(map[string]interface{}),
		noop:      true,
	}
}

// onSpanEnd runs once per span, at End. Slow detection happens here, against
// the measured duration, then the span is handed to the exporter.
func (t *Tracer) onSpanEnd(s *Span) {
	status := s.Status()
	if status == StatusError {
		t.errorCount.Add(1)
	}

	slow := s.IsSlow()
	if slow {
		t.slowCount.Add(1)
		t.logger.Warn("slow operation detected",
			zap.String("trace_id", s.TraceID().String()),
			zap.String("span_id", s.SpanID().String()),
			zap.String("operation", s.Name()),
			zap.Duration("duration", s.Duration()),
			zap.Duration("threshold", s.slowThreshold),
		)
	}

	if t.metrics != nil {
		t.metrics.RecordSpanComplete(status.String(), s.Duration(), slow)
	}

	if t.exporter == nil || t.shutdown.Load() {
		return
	}
	if err := t.exporter.Export(s); err != nil {
		t.exportFailures.Add(1)
		t.logger.Warn("span export failed",
			zap.String("trace_id", s.TraceID().String()),
			zap.String("span_id", s.SpanID().String()),
			zap.Error(err),
		)
		if t.metrics != nil {
			t.metrics.RecordExportFailure()
		}
		return
	}
	t.exportedCount.Add(1)
}

// TraceFunction wraps body in a span named name. The body's error, if any,
// is recorded on the span and returned unchanged; tracing never swallows or
// replaces application errors. The span ends on every exit path, including
// panics and context cancellation.
func (t *Tracer) TraceFunction(ctx context.Context, name string, body func(context.Context, *Span) error) error {
	ctx, span := t.StartSpan(ctx, name)
	defer span.End()

	if err := body(ctx, span); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// TraceFunctionResult is TraceFunction for bodies that return a value.
func TraceFunctionResult[T any](t *Tracer, ctx context.Context, name string, body func(context.Context, *Span) (T, error)) (T, error) {
	ctx, span := t.StartSpan(ctx, name)
	defer span.End()

	result, err := body(ctx, span)
	if err != nil {
		span.RecordError(err)
	}
	return result, err
}

// TraceCallFlow traces one step of a business call flow.
func (t *Tracer) TraceCallFlow(ctx context.Context, workflow, callID string, body func(context.Context, *Span) error) error {
	ctx, span := t.StartSpan(ctx, "flow."+workflow, WithAttributes(map[string]interface{}{
		AttrCallID:        callID,
		AttrOperationType: OperationTypeCallFlow,
	}))
	defer span.End()

	if err := body(ctx, span); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// TraceAIOperation traces an outbound AI-model call.
func (t *Tracer) TraceAIOperation(ctx context.Context, provider, operation, model string, body func(context.Context, *Span) error) error {
	ctx, span := t.StartSpan(ctx, "ai."+provider, WithAttributes(map[string]interface{}{
		AttrAIProvider:    provider,
		AttrAIOperation:   operation,
		AttrAIModel:       model,
		AttrOperationType: OperationTypeAIML,
	}))
	defer span.End()

	if err := body(ctx, span); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// TraceDBOperation traces a persistence-layer operation.
func (t *Tracer) TraceDBOperation(ctx context.Context, operation string, body func(context.Context, *Span) error) error {
	ctx, span := t.StartSpan(ctx, "db."+operation, WithAttributes(map[string]interface{}{
		AttrOperationType: OperationTypeDatabase,
	}))
	defer span.End()

	if err := body(ctx, span); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Healthy reports false only when the exporter failed to initialize or the
// tracer has been shut down.
func (t *Tracer) Healthy() bool {
	return t.initialized && !t.shutdown.Load()
}

// Snapshot is a read-only view of tracer counters.
type Snapshot struct {
	Initialized    bool   `json:"initialized"`
	ServiceName    string `json:"service_name"`
	SpanCount      int64  `json:"span_count"`
	ErrorCount     int64  `json:"error_count"`
	SlowCount      int64  `json:"slow_count"`
	ExportedCount  int64  `json:"exported_count"`
	DroppedCount   int64  `json:"dropped_count"`
	ExportFailures int64  `json:"export_failures"`
}

// dropCounter is implemented by queueing exporters that shed load.
type dropCounter interface {
	Dropped() int64
}

// Metrics returns a point-in-time snapshot. Never fails.
func (t *Tracer) Metrics() Snapshot {
	snap := Snapshot{
		Initialized:    t.initialized && !t.shutdown.Load(),
		ServiceName:    t.service,
		SpanCount:      t.spanCount.Load(),
		ErrorCount:     t.errorCount.Load(),
		SlowCount:      t.slowCount.Load(),
		ExportedCount:  t.exportedCount.Load(),
		ExportFailures: t.exportFailures.Load(),
	}
	if dc, ok := t.exporter.(dropCounter); ok {
		snap.DroppedCount = dc.Dropped()
	}
	return snap
}

// Shutdown flushes buffered spans and stops the tracer. Tracing calls after
// shutdown degrade to inert no-op spans and never crash the caller.
func (t *Tracer) Shutdown(ctx context.Context) error {
	var err error
	t.shutdownOnce.Do(func() {
		t.shutdown.Store(true)
		if t.exporter != nil {
			err = t.exporter.Shutdown(ctx)
		}
		t.logger.Info("tracer shut down",
			zap.Int64("spans_started", t.spanCount.Load()),
			zap.Int64("spans_exported", t.exportedCount.Load()),
		)
	})
	return err
}
