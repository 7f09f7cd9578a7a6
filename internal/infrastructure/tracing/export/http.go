package export

import (
	"context"
	"fmt"
	"time"

	"github.com/callwise/backend/internal/infrastructure/tracing"
	"github.com/go-resty/resty/v2"
	"google.golang.org/protobuf/encoding/protojson"
)

// HTTPExporter ships spans as OTLP/JSON over HTTP POST, for collectors that
// only expose the HTTP ingest port.
type HTTPExporter struct {
	client   *resty.Client
	endpoint string
	service  string
}

// NewHTTP creates an exporter posting to the given collector URL.
func NewHTTP(endpoint, service string) *HTTPExporter {
	client := resty.New().
		SetTimeout(exportTimeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	return &HTTPExporter{
		client:   client,
		endpoint: endpoint,
		service:  service,
	}
}

// Export posts one span to the collector.
func (e *HTTPExporter) Export(span *tracing.Span) error {
	payload, err := protojson.Marshal(Request(span, e.service))
	if err != nil {
		return fmt.Errorf("failed to encode span: %w", err)
	}

	resp, err := e.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(e.endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("collector rejected span: %s", resp.Status())
	}
	return nil
}

// Shutdown is a no-op; the HTTP client holds no persistent resources.
func (e *HTTPExporter) Shutdown(ctx context.Context) error {
	return nil
}
