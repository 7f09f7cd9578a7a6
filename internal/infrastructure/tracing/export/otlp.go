package export

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/callwise/backend/internal/infrastructure/tracing"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const exportTimeout = 5 * time.Second

// OTLPExporter ships spans to an OTLP collector over gRPC. The connection is
// shared process-wide; gRPC handles concurrent calls, and the queue in front
// of this exporter serializes shipping anyway.
type OTLPExporter struct {
	service string
	conn    *grpc.ClientConn
	client  collectortrace.TraceServiceClient
}

// NewOTLP creates an exporter targeting the given collector endpoint.
func NewOTLP(endpoint, service string) (*OTLPExporter, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial collector %s: %w", endpoint, err)
	}

	return &OTLPExporter{
		service: service,
		conn:    conn,
		client:  collectortrace.NewTraceServiceClient(conn),
	}, nil
}

// Export ships one span. No response payload is expected beyond the ack.
func (e *OTLPExporter) Export(span *tracing.Span) error {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	_, err := e.client.Export(ctx, Request(span, e.service))
	return err
}

// Shutdown closes the collector connection.
func (e *OTLPExporter) Shutdown(ctx context.Context) error {
	return e.conn.Close()
}

// Request converts a completed span into the collector's wire format.
func Request(span *tracing.Span, service string) *collectortrace.ExportTraceServiceRequest {
	return &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{
					Attributes: []*commonpb.KeyValue{
						keyValue("service.name", service),
					},
				},
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Spans: []*tracepb.Span{protoSpan(span)},
					},
				},
			},
		},
	}
}

func protoSpan(span *tracing.Span) *tracepb.Span {
	p := &tracepb.Span{
		TraceId:           hexBytes(span.TraceID().String()),
		SpanId:            hexBytes(span.SpanID().String()),
		Name:              span.Name(),
		Kind:              tracepb.Span_SPAN_KIND_INTERNAL,
		StartTimeUnixNano: uint64(span.StartTime().UnixNano()),
		EndTimeUnixNano:   uint64(span.EndTime().UnixNano()),
		Status:            protoStatus(span),
	}

	if parent := span.ParentID(); parent != "" {
		p.ParentSpanId = hexBytes(parent.String())
	}

	for k, v := range span.Attributes() {
		p.Attributes = append(p.Attributes, keyValue(k, v))
	}

	return p
}

func protoStatus(span *tracing.Span) *tracepb.Status {
	switch span.Status() {
	case tracing.StatusError:
		st := &tracepb.Status{Code: tracepb.Status_STATUS_CODE_ERROR}
		if info := span.ErrorInfo(); info != nil {
			st.Message = info.Message
		}
		return st
	case tracing.StatusOk:
		return &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK}
	default:
		return &tracepb.Status{Code: tracepb.Status_STATUS_CODE_UNSET}
	}
}

func hexBytes(s string) []byte {
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return decoded
}

func keyValue(key string, value interface{}) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: key, Value: anyValue(value)}
}

func anyValue(value interface{}) *commonpb.AnyValue {
	switch v := value.(type) {
	case string:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v}}
	case bool:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: v}}
	case int:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: int64(v)}}
	case int32:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: int64(v)}}
	case int64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: v}}
	case float32:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: float64(v)}}
	case float64:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: v}}
	default:
		return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: fmt.Sprint(v)}}
	}
}
