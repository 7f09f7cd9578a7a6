package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Exporter kinds accepted by TracingConfig.Exporter.
const (
	ExporterLog  = "log"
	ExporterOTLP = "otlp"
	ExporterHTTP = "http"
	ExporterNone = "none"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Tracing TracingConfig
	Logging LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name string `envconfig:"SERVICE_NAME" default:"callwise-backend"`
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// TracingConfig holds tracing subsystem configuration.
type TracingConfig struct {
	Enabled bool `envconfig:"TRACE_ENABLED" default:"true"`

	// Spans whose duration exceeds this threshold are flagged slow_operation.
	SlowThresholdMs int `envconfig:"TRACE_SLOW_THRESHOLD_MS" default:"1000"`

	// Export queue capacity. Spans completing while the queue is full are
	// dropped, never buffered unboundedly.
	BufferSize int `envconfig:"TRACE_BUFFER_SIZE" default:"1000"`

	// Exporter selects where finished spans go: log, otlp, http, none.
	Exporter     string `envconfig:"TRACE_EXPORTER" default:"log"`
	OTLPEndpoint string `envconfig:"TRACE_OTLP_ENDPOINT" default:"localhost:4317"`
	HTTPEndpoint string `envconfig:"TRACE_HTTP_ENDPOINT" default:"http://localhost:4318/v1/traces"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	switch c.Tracing.Exporter {
	case ExporterLog, ExporterOTLP, ExporterHTTP, ExporterNone:
	default:
		return fmt.Errorf("unknown trace exporter: %s", c.Tracing.Exporter)
	}
	if c.Tracing.BufferSize <= 0 {
		return fmt.Errorf("trace buffer size must be positive, got %d", c.Tracing.BufferSize)
	}
	if c.Tracing.SlowThresholdMs < 0 {
		return fmt.Errorf("slow threshold must not be negative, got %d", c.Tracing.SlowThresholdMs)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "callwise-backend",
			Port: "8000",
			Host: "0.0.0.0",
		},
		Tracing: TracingConfig{
			Enabled:         true,
			SlowThresholdMs: 1000,
			BufferSize:      1000,
			Exporter:        ExporterLog,
			OTLPEndpoint:    "localhost:4317",
			HTTPEndpoint:    "http://localhost:4318/v1/traces",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}
