package export

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPExporter(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies [][]byte
		status = http.StatusOK
	)
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, body)
		code := status
		mu.Unlock()

		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(code)
	}))
	defer collector.Close()

	exporter := NewHTTP(collector.URL, "http-test")
	_, span := buildSpans(t)

	t.Run("posts OTLP JSON payload", func(t *testing.T) {
		require.NoError(t, exporter.Export(span))

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, bodies, 1)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(bodies[0], &payload))
		assert.Contains(t, payload, "resourceSpans")
	})

	t.Run("collector rejection surfaces as error", func(t *testing.T) {
		mu.Lock()
		status = http.StatusBadRequest
		mu.Unlock()

		err := exporter.Export(span)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collector rejected span")
	})

	t.Run("shutdown is safe", func(t *testing.T) {
		assert.NoError(t, exporter.Shutdown(t.Context()))
	})
}
