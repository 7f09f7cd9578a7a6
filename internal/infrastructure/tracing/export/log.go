package export

import (
	"context"

	"github.com/callwise/backend/internal/infrastructure/tracing"
	"go.uber.org/zap"
)

// LogExporter writes completed spans to the structured log. The default
// exporter: useful in development and as a safe fallback when no collector
// is deployed.
type LogExporter struct {
	logger *zap.Logger
}

// NewLog creates a log-backed exporter.
func NewLog(logger *zap.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// Export logs one completed span.
func (e *LogExporter) Export(span *tracing.Span) error {
	fields := []zap.Field{
		zap.String("trace_id", span.TraceID().String()),
		zap.String("span_id", span.SpanID().String()),
		zap.String("operation", span.Name()),
		zap.Duration("duration", span.Duration()),
		zap.Any("attributes", span.Attributes()),
	}

	if parent := span.ParentID(); parent != "" {
		fields = append(fields, zap.String("parent_id", parent.String()))
	}

	if info := span.ErrorInfo(); info != nil {
		fields = append(fields, zap.String("error", info.Message))
		e.logger.Error("span completed with error", fields...)
		return nil
	}

	e.logger.Info("span completed", fields...)
	return nil
}

// Shutdown is a no-op for the log exporter.
func (e *LogExporter) Shutdown(ctx context.Context) error {
	return nil
}
