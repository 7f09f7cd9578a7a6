package logging

import (
	"context"
	"testing"

	"github.com/callwise/backend/internal/infrastructure/config"
	"github.com/callwise/backend/internal/infrastructure/tracing"
	"github.com/callwise/backend/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Run("production mode", func(t *testing.T) {
		logger, err := New(config.LogConfig{Level: "info"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("development mode", func(t *testing.T) {
		logger, err := New(config.LogConfig{Level: "debug", Development: true})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("bad level falls back to info", func(t *testing.T) {
		logger, err := New(config.LogConfig{Level: "chatty"})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zap.InfoLevel))
		assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	})
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return zap.New(core), logs
}

func TestWithTrace(t *testing.T) {
	tracer := tracing.New("log-test", zap.NewNop(), nil)

	t.Run("stamps trace identifiers inside a span scope", func(t *testing.T) {
		logger, logs := observedLogger()

		ctx, span := tracer.StartSpan(context.Background(), "op")
		ctx = tracing.ContextWithCorrelation(ctx, id.CorrelationID("corr_x"), id.RequestID("req_y"))

		WithTrace(ctx, logger).Info("inside span")
		span.End()

		entries := logs.All()
		require.Len(t, entries, 1)

		fields := entries[0].ContextMap()
		assert.Equal(t, span.TraceID().String(), fields["trace_id"])
		assert.Equal(t, span.SpanID().String(), fields["span_id"])
		assert.Equal(t, "corr_x", fields["correlation_id"])
		assert.Equal(t, "req_y", fields["request_id"])
	})

	t.Run("plain emission outside any span", func(t *testing.T) {
		logger, logs := observedLogger()

		assert.NotPanics(t, func() {
			WithTrace(context.Background(), logger).Info("no span")
		})

		entries := logs.All()
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0].ContextMap(), "trace_id")
	})
}
