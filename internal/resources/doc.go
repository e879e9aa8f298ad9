// Package resources provides MCP resources for the report server.
// Resources are read-only data that MCP clients can fetch: the effective
// report configuration and the profile of the authorized Gmail account.
package resources
