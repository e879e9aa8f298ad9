package google_tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/server"
	"github.com/teemow/gmailplayground/internal/tools/common"
)

const toolAuthStatus = "google_auth_status"

// RegisterGoogleTools registers the Google OAuth tools with the MCP server
func RegisterGoogleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	authStatusTool := mcp.NewTool(toolAuthStatus,
		mcp.WithDescription("Check whether Gmail and Google Sheets tokens are cached for an account"),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
	)

	s.AddTool(authStatusTool, common.InstrumentedToolHandler(toolAuthStatus, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAuthStatus(ctx, request)
		}))

	return nil
}

func handleAuthStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(request.GetArguments())

	gmailReady := google.HasTokenForAccount(account)
	sheetsAccount := account + google.SheetsAccountSuffix
	sheetsReady := google.HasTokenForAccount(sheetsAccount)

	var b strings.Builder
	fmt.Fprintf(&b, "Gmail (%s): %s\n", account, tokenState(gmailReady))
	fmt.Fprintf(&b, "Google Sheets (%s): %s\n", sheetsAccount, tokenState(sheetsReady))
	if !gmailReady {
		b.WriteString("\n")
		b.WriteString(google.GetAuthenticationErrorMessage(account))
		b.WriteString("\n")
	}
	if !sheetsReady {
		b.WriteString("\nA separate Sheets token is only needed when --gsheet-client-secret differs from the Gmail client secret.\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func tokenState(ok bool) string {
	if ok {
		return "authorized"
	}
	return "not authorized"
}
