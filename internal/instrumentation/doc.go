// Package instrumentation provides OpenTelemetry metrics and tracing for
// gmailplayground.
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// Report Metrics:
//   - threads_processed_total: Counter of Gmail threads processed
//   - lines_matched_total: Counter of body lines matching the report pattern
//   - sheet_rows_written_total: Counter of rows written to Google Sheets
//   - cache_lookups_total: Counter of thread cache lookups by result (hit, miss)
//   - report_runs_total: Counter of report runs by mode and status
//   - report_run_duration_seconds: Histogram of report run durations
//
// MCP Tool Metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for report runs, MCP tool invocations (tool.<name>) and
// Google API calls (google.<service>.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: false)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: gmailplayground)
//
// A nil *Metrics records nothing, so callers that run without instrumentation
// can pass nil.
package instrumentation
