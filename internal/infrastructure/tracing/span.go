package tracing

import (
	"sync"
	"time"

	"github.com/callwise/backend/internal/shared/id"
)

// Status is the terminal disposition of a span.
type Status int

const (
	StatusUnset Status = iota
	StatusOk
	StatusError
)

// String returns the collector-facing status name.
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unset"
	}
}

// ErrorInfo captures the failure recorded on a span.
type ErrorInfo struct {
	Message    string
	RecordedAt time.Time
}

// AttrSlowOperation is set on spans whose duration exceeded the slow
// threshold. Computed at End, never at creation.
const AttrSlowOperation = "slow_operation"

// Span is a single timed, named unit of traced work.
//
// A span is open between creation and End. Attribute writes race-free with
// completion: writes after End are silently ignored. The creating operation
// owns the span until End hands it to the exporter, which must treat it as
// immutable.
type Span struct {
	traceID  id.TraceID
	spanID   id.SpanID
	parentID id.SpanID
	name     string

	startTime     time.Time
	slowThreshold time.Duration
	noop          bool
	onEnd         func(*Span)

	mu      sync.Mutex
	endTime time.Time
	ended   bool
	attrs   map[string]interface{}
	status  Status
	errInfo *ErrorInfo
}

// TraceID returns the trace this span belongs to.
func (s *Span) TraceID() id.TraceID { return s.traceID }

// SpanID returns the span's own identifier.
func (s *Span) SpanID() id.SpanID { return s.spanID }

// ParentID returns the parent span's identifier, empty for a trace root.
func (s *Span) ParentID() id.SpanID { return s.parentID }

// Name returns the operation name.
func (s *Span) Name() string { return s.name }

// StartTime returns when the span was opened.
func (s *Span) StartTime() time.Time { return s.startTime }

// EndTime returns when the span completed, zero while still open.
func (s *Span) EndTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endTime
}

// Duration returns endTime-startTime, zero while the span is open.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		return 0
	}
	return s.endTime.Sub(s.startTime)
}

// Status returns the span's current status.
func (s *Span) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Ended reports whether the span has completed.
func (s *Span) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// ErrorInfo returns the recorded failure, nil when none.
func (s *Span) ErrorInfo() *ErrorInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errInfo
}

// Attribute returns a single attribute value.
func (s *Span) Attribute(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.attrs[key]
	return v, ok
}

// Attributes returns a copy of the span's attributes.
func (s *Span) Attributes() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]interface{}, len(s.attrs))
	for k, v := range s.attrs {
		out[k] = v
	}
	return out
}

// SetAttribute sets a single attribute, overwriting on collision.
// Writes after completion are ignored.
func (s *Span) SetAttribute(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.attrs[key] = value
}

// SetAttributes merges attrs into the span's attribute set; last write wins
// on key collision. Writes after completion are ignored, never a panic:
// attributes may be set concurrently with completion on an error path.
func (s *Span) SetAttributes(attrs map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	for k, v := range attrs {
		s.attrs[k] = v
	}
}

// RecordError marks the span failed and stores the error message.
// The last call wins when invoked more than once.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.status = StatusError
	s.errInfo = &ErrorInfo{
		Message:    err.Error(),
		RecordedAt: time.Now(),
	}
}

// End completes the span: endTime is stamped once, an Unset status becomes
// Ok, slow operations are flagged, and the span is handed to the exporter.
// Completion is terminal; a second End is a no-op.
func (s *Span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.endTime = time.Now()
	if s.endTime.Before(s.startTime) {
		s.endTime = s.startTime
	}
	if s.status == StatusUnset {
		s.status = StatusOk
	}
	if s.slowThreshold > 0 && s.endTime.Sub(s.startTime) > s.slowThreshold {
		s.attrs[AttrSlowOperation] = true
	}
	onEnd := s.onEnd
	s.mu.Unlock()

	if onEnd != nil {
		onEnd(s)
	}
}

// IsSlow reports whether the span was flagged as a slow operation.
func (s *Span) IsSlow() bool {
	v, ok := s.Attribute(AttrSlowOperation)
	if !ok {
		return false
	}
	slow, _ := v.(bool)
	return slow
}

// IsNoop reports whether this is an inert span, as handed out after Shutdown
// or when tracing is disabled. Inert spans satisfy the full Span contract but
// are never exported.
func (s *Span) IsNoop() bool { return s.noop }
