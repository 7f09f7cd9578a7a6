// Package monitoring provides Prometheus metrics for the backend.
//
// Metrics are registered on a caller-owned registry and exposed through the
// standard /metrics endpoint, plus a mutex-guarded snapshot for the JSON
// health surface. The tracing service feeds span lifecycle counters here;
// the gin middleware records HTTP request vectors.
package monitoring
