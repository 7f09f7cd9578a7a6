// Package logging provides structured logging using uber/zap.
//
// Two modes: production (JSON output for machine parsing) and development
// (colored console output). WithTrace stamps trace identifiers from the
// active span onto a logger, so every log line inside a traced scope can be
// joined back to its trace.
package logging

import (
	"context"

	"github.com/callwise/backend/internal/infrastructure/config"
	"github.com/callwise/backend/internal/infrastructure/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a logger from config.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// NewDefault creates a production logger, falling back to a no-op logger if
// construction fails.
func NewDefault() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// WithTrace returns a logger stamped with the trace, span, correlation and
// request identifiers carried by ctx. Identifiers that are absent are simply
// omitted; logging never fails for lack of a span.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 4)

	if span, ok := tracing.SpanFromContext(ctx); ok && !span.IsNoop() {
		fields = append(fields,
			zap.String("trace_id", span.TraceID().String()),
			zap.String("span_id", span.SpanID().String()),
		)
	}
	if corrID := tracing.CorrelationFromContext(ctx); corrID != "" {
		fields = append(fields, zap.String("correlation_id", corrID.String()))
	}
	if reqID := tracing.RequestIDFromContext(ctx); reqID != "" {
		fields = append(fields, zap.String("request_id", reqID.String()))
	}

	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
