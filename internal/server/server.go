package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/callwise/backend/internal/infrastructure/config"
	"github.com/callwise/backend/internal/infrastructure/logging"
	"github.com/callwise/backend/internal/infrastructure/monitoring"
	"github.com/callwise/backend/internal/infrastructure/tracing"
	"github.com/callwise/backend/internal/infrastructure/tracing/export"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and the tracing subsystem it hosts.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	http     *http.Server
	tracer   *tracing.Tracer
	metrics  *monitoring.Metrics
	registry *prometheus.Registry
}

// NewServer assembles config, logging, metrics, exporter and tracer into a
// runnable server.
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	tracer := buildTracer(cfg, logger, metrics)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(monitoring.Middleware(metrics))
	router.Use(tracing.HTTPMiddleware(tracer))

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   router,
		tracer:   tracer,
		metrics:  metrics,
		registry: registry,
	}

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.GET("/metrics/tracing", s.handleTracingMetrics)

	return s, nil
}

// buildTracer wires the configured exporter behind a bounded queue. Exporter
// construction failure degrades to an unexported tracer, never a dead server.
func buildTracer(cfg *config.Config, logger *zap.Logger, metrics *monitoring.Metrics) *tracing.Tracer {
	opts := []tracing.Option{
		tracing.WithMetrics(metrics),
		tracing.WithSlowThreshold(time.Duration(cfg.Tracing.SlowThresholdMs) * time.Millisecond),
	}
	if !cfg.Tracing.Enabled {
		opts = append(opts, tracing.WithDisabled())
	}

	var sink tracing.Exporter
	switch cfg.Tracing.Exporter {
	case config.ExporterOTLP:
		otlp, err := export.NewOTLP(cfg.Tracing.OTLPEndpoint, cfg.Server.Name)
		if err != nil {
			opts = append(opts, tracing.WithInitFailure(err))
		} else {
			sink = otlp
		}
	case config.ExporterHTTP:
		sink = export.NewHTTP(cfg.Tracing.HTTPEndpoint, cfg.Server.Name)
	case config.ExporterLog:
		sink = export.NewLog(logger)
	case config.ExporterNone:
		// Spans complete and count, nothing ships.
	}

	var exporter tracing.Exporter
	if sink != nil {
		exporter = export.NewQueue(sink, cfg.Tracing.BufferSize, logger, metrics)
	}

	return tracing.New(cfg.Server.Name, logger, exporter, opts...)
}

// Tracer exposes the tracing service for the RPC layer and business code.
func (s *Server) Tracer() *tracing.Tracer {
	return s.tracer
}

// Router exposes the gin engine for registering application routes.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	healthy := s.tracer.Healthy()
	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":  "running",
		"service": s.cfg.Server.Name,
		"tracing": gin.H{
			"healthy": healthy,
		},
	})
}

func (s *Server) handleTracingMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tracing": s.tracer.Metrics(),
		"http":    s.metrics.Snapshot(),
	})
}

// Run starts the server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.logger.Info("starting server",
		zap.String("addr", addr),
		zap.String("service", s.cfg.Server.Name),
		zap.String("trace_exporter", s.cfg.Tracing.Exporter),
	)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close drains in-flight requests, flushes the tracer and releases resources.
func (s *Server) Close(ctx context.Context) error {
	var errs []error

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	// Sync can fail on stderr sinks; nothing actionable.
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
