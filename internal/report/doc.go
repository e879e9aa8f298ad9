// Package report turns Gmail threads into failure reports.
//
// Plain-text message bodies are split into lines, lines matching a pattern
// are collected per message part and converted into table rows:
//
//	Date | Subject | Testcase | Message ID | Thread ID
//
// and, aggregated by testcase:
//
//	Testcase | Frequency of failures | Latest failure
//
// A Runner prints the rows as a table (PRINT mode) and additionally writes
// both tables to Google Sheets (GSHEET mode).
package report
