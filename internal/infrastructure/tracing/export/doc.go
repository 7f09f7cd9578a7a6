/*
Package export ships completed spans to an external trace collector.

The tracing service hands each span to an Exporter exactly once, at End.
Production wiring puts the bounded Queue in front of one of the concrete
exporters:

  - LogExporter: structured log output (default, no collector needed)
  - OTLPExporter: OTLP over gRPC to a collector's 4317 port
  - HTTPExporter: OTLP/JSON over HTTP POST to a collector's 4318 port

Export is fire-and-forget. A slow or unavailable collector costs dropped
spans, never blocked request handling: the queue sheds the newest span when
full and throttles its own warning logs.
*/
package export
