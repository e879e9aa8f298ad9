// Package report_tools exposes the failure report and the thread cache as
// MCP tools.
//
// Available tools:
//   - gmail_failure_report: query threads, match lines and return the table
//   - gmail_cache_stats: describe the local thread cache
package report_tools
