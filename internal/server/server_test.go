package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/callwise/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Tracing.Exporter = config.ExporterNone

	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = srv.Close(context.Background())
	})
	return srv
}

func get(srv *Server, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := get(srv, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])

	t.Run("unhealthy after shutdown", func(t *testing.T) {
		require.NoError(t, srv.Close(context.Background()))

		w := get(srv, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestResponseHeadersOnEveryRoute(t *testing.T) {
	srv := newTestServer(t)

	t.Run("correlation id echoed", func(t *testing.T) {
		w := get(srv, "/health", map[string]string{"x-correlation-id": "corr-123"})
		assert.Equal(t, "corr-123", w.Header().Get("x-correlation-id"))
	})

	t.Run("ids generated when missing", func(t *testing.T) {
		w := get(srv, "/health", nil)
		assert.NotEmpty(t, w.Header().Get("x-correlation-id"))
		assert.NotEmpty(t, w.Header().Get("x-request-id"))
	})
}

func TestTracingMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	// The request to the metrics endpoint itself is traced, so span_count
	// reflects at least the prior health request.
	get(srv, "/health", nil)
	w := get(srv, "/metrics/tracing", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tracing struct {
			Initialized bool   `json:"initialized"`
			ServiceName string `json:"service_name"`
			SpanCount   int64  `json:"span_count"`
		} `json:"tracing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.True(t, body.Tracing.Initialized)
	assert.Equal(t, "callwise-backend", body.Tracing.ServiceName)
	assert.GreaterOrEqual(t, body.Tracing.SpanCount, int64(1))
}

func TestPrometheusEndpoint(t *testing.T) {
	srv := newTestServer(t)

	get(srv, "/health", nil)
	w := get(srv, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "backend_tracing_spans_started_total")
}

func TestUnreachableCollectorDoesNotAffectRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Tracing.Exporter = config.ExporterHTTP
	cfg.Tracing.HTTPEndpoint = "http://localhost:1/unreachable"

	srv, err := NewServer(cfg)
	require.NoError(t, err, "an unreachable collector must not prevent startup")
	defer func() { _ = srv.Close(context.Background()) }()

	// Requests still succeed; only trace completeness degrades.
	w := get(srv, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
