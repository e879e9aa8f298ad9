// Package cmd implements the command-line interface for gmailplayground.
//
// This package provides the following commands:
//   - report: Print (--print) or export (--gsheet) message lines matching a pattern
//   - auth: Authorize Gmail and Google Sheets access in the browser
//   - cache: Show statistics of or purge the local thread cache
//   - serve: Start the MCP server to provide the report to AI assistants
//   - generate-docs: Generate markdown documentation for the MCP tools
//   - version: Display version information
//
// The report command is the default command when no subcommand is specified.
package cmd
