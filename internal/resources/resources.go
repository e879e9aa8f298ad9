package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/server"
)

const (
	// URIReportConfig is the resource holding the effective report settings.
	URIReportConfig = "config://report"
	// URIProfile is the resource holding the Gmail profile of the default account.
	URIProfile = "user://profile"

	mimeJSON = "application/json"
)

// RegisterResources registers the report resources with the MCP server.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	configResource := mcp.NewResource(
		URIReportConfig,
		"Report Configuration",
		mcp.WithResourceDescription("Default query, pattern, skipped line prefixes and limits used by gmail_failure_report"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(configResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleReportConfig(ctx, request, sc)
	})

	profileResource := mcp.NewResource(
		URIProfile,
		"Current User Profile",
		mcp.WithResourceDescription("Gmail profile of the default account"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUserProfile(ctx, request, sc)
	})

	return nil
}

func handleReportConfig(_ context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	cfg := sc.Config()
	data := map[string]interface{}{
		"query":                    cfg.Query,
		"regex":                    cfg.Regex,
		"skip_lines_starting_with": cfg.SkipPrefixes,
		"limit":                    cfg.Limit,
		"line_separator":           cfg.LineSeparator,
		"mime_type":                cfg.MimeType,
		"cache_enabled":            sc.Cache() != nil,
	}
	return jsonContents(request.Params.URI, data)
}

func handleUserProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	client, err := sc.GmailClient()
	if err != nil {
		return nil, fmt.Errorf("no Gmail client available for account %s: %w", google.DefaultAccount, err)
	}

	profile, err := client.GetProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	data := map[string]interface{}{
		"account":       client.Account(),
		"email":         profile.EmailAddress,
		"historyId":     profile.HistoryId,
		"messagesTotal": profile.MessagesTotal,
		"threadsTotal":  profile.ThreadsTotal,
	}
	return jsonContents(request.Params.URI, data)
}

func jsonContents(uri string, data map[string]interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(jsonData),
		},
	}, nil
}
