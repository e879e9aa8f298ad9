// Package google_tools provides MCP tools for Google OAuth state.
//
// The MCP server never runs an interactive OAuth flow itself. Tokens are
// created with the auth command of the CLI; google_auth_status tells an AI
// assistant whether an account is ready and which command authorizes it.
package google_tools
