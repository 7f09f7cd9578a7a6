package export

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/callwise/backend/internal/infrastructure/monitoring"
	"github.com/callwise/backend/internal/infrastructure/tracing"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Queue decouples span completion from span shipping: Export is a
// non-blocking submit into a bounded channel drained by one worker. When the
// channel is full the newest span is dropped and counted; the queue never
// grows unboundedly and a slow collector never blocks request handling.
type Queue struct {
	sink    tracing.Exporter
	logger  *zap.Logger
	metrics *monitoring.Metrics

	spans chan *tracing.Span
	done  chan struct{}

	// Throttles drop/failure warnings so a dead collector cannot flood logs.
	warnLimiter *rate.Limiter

	mu     sync.RWMutex
	closed bool

	dropped  atomic.Int64
	exported atomic.Int64
	failures atomic.Int64
}

// NewQueue creates a queue of the given capacity in front of sink and starts
// its worker. metrics may be nil.
func NewQueue(sink tracing.Exporter, size int, logger *zap.Logger, metrics *monitoring.Metrics) *Queue {
	q := &Queue{
		sink:        sink,
		logger:      logger,
		metrics:     metrics,
		spans:       make(chan *tracing.Span, size),
		done:        make(chan struct{}),
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}

	go q.drain()

	return q
}

// Export submits a completed span. Never blocks: a full queue drops the span
// and records the drop. Always returns nil; shedding is policy, not failure.
func (q *Queue) Export(span *tracing.Span) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.recordDrop(span)
		return nil
	}

	select {
	case q.spans <- span:
	default:
		q.recordDrop(span)
	}
	return nil
}

func (q *Queue) recordDrop(span *tracing.Span) {
	q.dropped.Add(1)
	if q.metrics != nil {
		q.metrics.RecordSpanDropped()
	}
	if q.warnLimiter.Allow() {
		q.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", span.TraceID().String()),
			zap.String("span_id", span.SpanID().String()),
		)
	}
}

func (q *Queue) drain() {
	defer close(q.done)
	for span := range q.spans {
		if err := q.sink.Export(span); err != nil {
			q.failures.Add(1)
			if q.metrics != nil {
				q.metrics.RecordExportFailure()
			}
			if q.warnLimiter.Allow() {
				q.logger.Warn("span export failed",
					zap.String("trace_id", span.TraceID().String()),
					zap.String("span_id", span.SpanID().String()),
					zap.Error(err),
				)
			}
			continue
		}
		q.exported.Add(1)
	}
}

// Shutdown stops accepting spans, drains what is buffered, then shuts down
// the sink. Returns ctx.Err when draining outlives the deadline.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.spans)
	q.mu.Unlock()

	select {
	case <-q.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return q.sink.Shutdown(ctx)
}

// Dropped returns the number of spans shed under load.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Exported returns the number of spans successfully shipped by the sink.
func (q *Queue) Exported() int64 { return q.exported.Load() }

// Failures returns the number of failed sink export attempts.
func (q *Queue) Failures() int64 { return q.failures.Load() }
