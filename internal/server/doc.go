// Package server assembles the backend: configuration, logging, metrics,
// the tracing service with its exporter pipeline, and the gin router with
// health and metrics endpoints. The RPC layer pulls its interceptors from
// the server's Tracer.
package server
