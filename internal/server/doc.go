// Package server holds the state shared by the MCP tools and the optional
// HTTP listener that exposes Prometheus metrics and health checks.
//
// ServerContext lazily creates one Gmail client per account and carries the
// report configuration, the thread cache and the metrics recorder.
//
// MetricsServer serves /metrics, /healthz, /readyz and /healthz/detailed on
// a dedicated address.
package server
