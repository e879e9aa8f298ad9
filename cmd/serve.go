package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/gmailplayground/internal/cache"
	"github.com/teemow/gmailplayground/internal/config"
	"github.com/teemow/gmailplayground/internal/gmail"
	"github.com/teemow/gmailplayground/internal/instrumentation"
	"github.com/teemow/gmailplayground/internal/resources"
	"github.com/teemow/gmailplayground/internal/server"
	"github.com/teemow/gmailplayground/internal/tools/google_tools"
	"github.com/teemow/gmailplayground/internal/tools/report_tools"
)

const metricsStartTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		metricsAddr string
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server on standard input/output.

Available tools:
  - gmail_failure_report: run the report and return the (aggregated) table
  - gmail_cache_stats: describe the local thread cache
  - google_auth_status: check which Google tokens are cached

Resources: config://report (effective report settings) and user://profile.

With --metrics-addr (or METRICS_ADDR) Prometheus metrics and health checks are
served on a separate HTTP listener; instrumentation is enabled implicitly.
Logs go to stderr and the log file, stdout carries the MCP protocol.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationStderrLogs: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr == "" {
				metricsAddr = os.Getenv("METRICS_ADDR")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, metricsAddr, noCache)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address of the Prometheus metrics listener, e.g. :9090 (disabled when empty)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not read or write the local thread cache")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, metricsAddr string, noCache bool) error {
	provider, shutdownInstrumentation, err := newInstrumentation(ctx, metricsAddr != "")
	if err != nil {
		return err
	}
	defer shutdownInstrumentation()

	secret, err := clientSecretPath()
	if err != nil {
		return err
	}

	store, err := openCache(cfg, noCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	metrics := provider.Metrics()
	serverContext, err := server.NewServerContext(ctx, cfg, func(ctx context.Context, account string) (*gmail.Client, error) {
		return newGmailClient(ctx, cfg, secret, account, store, metrics)
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	serverContext.SetMetrics(metrics)
	if store != nil {
		serverContext.SetCache(store)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			slog.Warn("error during server context shutdown", slog.Any("error", err))
		}
	}()

	var health *server.HealthChecker
	if metricsAddr != "" {
		health = newHealthChecker(serverContext, store)
		health.SetReady(false)
		metricsServer, err := startMetricsServer(metricsAddr, provider, health)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Warn("error during metrics server shutdown", slog.Any("error", err))
			}
		}()
	}

	mcpSrv := newMCPServer()
	if err := registerTools(mcpSrv, serverContext); err != nil {
		return err
	}
	if health != nil {
		health.SetReady(true)
	}

	return runStdioServer(ctx, mcpSrv)
}

// registerTools registers all MCP tools and resources with the server.
func registerTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := report_tools.RegisterReportTools(s, sc); err != nil {
		return fmt.Errorf("failed to register report tools: %w", err)
	}
	if err := google_tools.RegisterGoogleTools(s, sc); err != nil {
		return fmt.Errorf("failed to register Google tools: %w", err)
	}
	if err := resources.RegisterResources(s, sc); err != nil {
		return fmt.Errorf("failed to register resources: %w", err)
	}
	return nil
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("gmailplayground", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
}

// newHealthChecker adds a cache check when the thread cache is enabled.
func newHealthChecker(sc *server.ServerContext, store *cache.Store) *server.HealthChecker {
	health := server.NewHealthChecker(sc)
	if store != nil {
		health.AddCheck("cache", func(ctx context.Context) error {
			_, err := store.Stats(ctx)
			return err
		})
	}
	return health
}

func startMetricsServer(addr string, provider *instrumentation.Provider, health *server.HealthChecker) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		HealthChecker:           health,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	ready := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-ready:
		slog.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping MCP server")
		return nil
	}
}
