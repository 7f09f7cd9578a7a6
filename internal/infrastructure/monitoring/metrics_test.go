package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSpanLifecycleMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordSpanStart()
	m.RecordSpanStart()
	m.RecordSpanComplete("ok", 10*time.Millisecond, false)
	m.RecordSpanComplete("error", 2*time.Second, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SpansStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpansCompleted.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpansCompleted.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpansSlow))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalSpans)
	assert.Equal(t, int64(1), snap.SlowSpans)
	assert.Equal(t, int64(1), snap.TotalErrors)
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/health", "200", 5*time.Millisecond)
	m.RecordHTTPRequest("GET", "/health", "500", 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/health", "200")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
}

func TestDropAndFailureCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordSpanDropped()
	m.RecordExportFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpansDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExportFailures))
}
