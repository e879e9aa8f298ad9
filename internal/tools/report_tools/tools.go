package report_tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/output"
	"github.com/teemow/gmailplayground/internal/report"
	"github.com/teemow/gmailplayground/internal/server"
	"github.com/teemow/gmailplayground/internal/tools/common"
)

const (
	toolFailureReport = "gmail_failure_report"
	toolCacheStats    = "gmail_cache_stats"
)

// RegisterReportTools registers the report tools with the MCP server
func RegisterReportTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	cfg := sc.Config()

	failureReportTool := mcp.NewTool(toolFailureReport,
		mcp.WithDescription("Match lines of Gmail messages against a regular expression and return them as a table. "+
			"By default lists failing YARN testcases from the daily unit test report mails."),
		mcp.WithString("account",
			mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
		),
		mcp.WithString("query",
			mcp.Description(fmt.Sprintf("Gmail search query (default: %s)", cfg.Query)),
		),
		mcp.WithString("regex",
			mcp.Description(fmt.Sprintf("Pattern matched at the start of each body line (default: %s)", cfg.Regex)),
		),
		mcp.WithString("skip_prefixes",
			mcp.Description("Line prefix or array of line prefixes that are never reported (default: configured prefixes)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of threads to process, 0 for no limit (default: %d)", cfg.Limit)),
		),
		mcp.WithBoolean("aggregated",
			mcp.Description("Return failure frequency and latest failure per testcase instead of one row per line"),
		),
	)
	s.AddTool(failureReportTool, common.InstrumentedToolHandler(toolFailureReport, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFailureReport(ctx, request, sc)
		}))

	cacheStatsTool := mcp.NewTool(toolCacheStats,
		mcp.WithDescription("Show how many Gmail threads are cached locally and when they were fetched"),
	)
	s.AddTool(cacheStatsTool, common.InstrumentedToolHandler(toolCacheStats, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCacheStats(ctx, sc)
		}))

	return nil
}

func handleFailureReport(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	cfg := sc.Config()

	account := common.GetAccountFromArgs(args)
	limit := common.GetIntArg(args, "limit", cfg.Limit)
	if limit < 0 {
		return mcp.NewToolResultError("limit must not be negative"), nil
	}
	aggregated := common.GetBoolArg(args, "aggregated", false)
	skipPrefixes, err := common.GetStringListArg(args, "skip_prefixes", cfg.SkipPrefixes)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, err := sc.GmailClientForAccount(account)
	if err != nil {
		if errors.Is(err, google.ErrNoToken) {
			return mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create Gmail client for account %s: %v", account, err)), nil
	}

	runner, err := report.NewRunner(report.Config{
		Mode:        report.ModePrint,
		Query:       common.GetStringArg(args, "query", cfg.Query),
		Limit:       limit,
		SanityCheck: true,
		Filter: report.Filter{
			Pattern:       common.GetStringArg(args, "regex", cfg.Regex),
			SkipPrefixes:  skipPrefixes,
			LineSeparator: cfg.LineSeparator,
			MimeType:      cfg.MimeType,
		},
		Quiet: true,
	}, client, nil, report.WithMetrics(sc.Metrics()))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid report options: %v", err)), nil
	}

	res, err := runner.Run(ctx)
	switch {
	case err == nil:
	case google.IsUnauthorized(err):
		return mcp.NewToolResultError(google.GetAuthenticationErrorMessage(account)), nil
	case google.IsForbidden(err):
		return mcp.NewToolResultError(fmt.Sprintf("Gmail access denied for account %s, the token may lack the read-only scope: %v", account, err)), nil
	case google.IsNotFound(err):
		return mcp.NewToolResultError(fmt.Sprintf("A listed thread disappeared from account %s before it could be fetched, retry the report: %v", account, err)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to run report: %v", err)), nil
	}

	var b strings.Builder
	if aggregated {
		fmt.Fprintf(&b, "Processed %d threads, %d distinct testcases:\n", res.Threads, len(res.AggregatedRows))
		b.WriteString(output.Render(report.AggregatedHeader, res.AggregatedRows))
	} else {
		fmt.Fprintf(&b, "Processed %d threads, %d matching lines:\n", res.Threads, len(res.Rows))
		b.WriteString(output.Render(report.Header, res.Rows))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func handleCacheStats(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	store := sc.Cache()
	if store == nil {
		return mcp.NewToolResultText("Thread cache is disabled."), nil
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read cache stats: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cache: %s\n", stats.Path)
	fmt.Fprintf(&b, "Cached threads: %d\n", stats.Threads)
	if stats.Threads > 0 {
		fmt.Fprintf(&b, "Oldest fetch: %s\n", stats.OldestFetch.Format(report.DateLayout))
		fmt.Fprintf(&b, "Newest fetch: %s\n", stats.NewestFetch.Format(report.DateLayout))
	}
	return mcp.NewToolResultText(b.String()), nil
}
