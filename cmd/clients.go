package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/teemow/gmailplayground/internal/cache"
	"github.com/teemow/gmailplayground/internal/config"
	"github.com/teemow/gmailplayground/internal/drive"
	"github.com/teemow/gmailplayground/internal/gmail"
	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/instrumentation"
	"github.com/teemow/gmailplayground/internal/sheets"
)

const instrumentationShutdownTimeout = 10 * time.Second

// cacheDir returns the configured cache directory or the default one.
func cacheDir(cfg *config.Config) string {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir
	}
	return google.CacheDir()
}

// openCache opens the thread cache unless it is disabled.
func openCache(cfg *config.Config, disabled bool) (*cache.Store, error) {
	if disabled || !cfg.Cache.Enabled {
		slog.Debug("thread cache disabled")
		return nil, nil
	}
	store, err := cache.NewStore(cacheDir(cfg))
	if err != nil {
		return nil, err
	}
	slog.Debug("opened thread cache", slog.String("path", store.Path()))
	return store, nil
}

// newGmailClient creates an authorized Gmail client for account.
func newGmailClient(ctx context.Context, cfg *config.Config, secretFile, account string, store *cache.Store, metrics *instrumentation.Metrics) (*gmail.Client, error) {
	httpClient, err := google.GetHTTPClient(ctx, secretFile, account, google.GmailScopes...)
	if err != nil {
		return nil, err
	}

	limiter := google.NewRateLimiterWithConfig(google.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.Burst,
	})
	opts := []gmail.Option{
		gmail.WithAccount(account),
		gmail.WithRateLimiter(limiter),
		gmail.WithMetrics(metrics),
	}
	if store != nil {
		opts = append(opts, gmail.WithCache(store))
	}
	return gmail.NewClient(ctx, httpClient, opts...)
}

// gsheetAccount returns the token cache account for the Sheets client secret.
// The Gmail token is reused when both secrets are the same file.
func gsheetAccount(account, gmailSecret, gsheetSecret string) string {
	if sameFile(gmailSecret, gsheetSecret) {
		return account
	}
	return account + google.SheetsAccountSuffix
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}

// newSheetWriters creates the writers for the worksheet and its aggregated
// counterpart. Both share one Drive lookup and one Sheets rate limiter.
func newSheetWriters(ctx context.Context, opts sheets.Options, account string, metrics *instrumentation.Metrics) (*sheets.Writer, *sheets.Writer, error) {
	httpClient, err := google.GetHTTPClient(ctx, opts.ClientSecret, account, google.SheetsScopes...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to authorize Google Sheets access: %w", err)
	}

	driveClient, err := drive.NewClient(ctx, httpClient,
		drive.WithRateLimiter(google.NewRateLimiter(google.ServiceDrive)),
		drive.WithMetrics(metrics))
	if err != nil {
		return nil, nil, err
	}

	limiter := google.NewRateLimiter(google.ServiceSheets)
	normal, err := sheets.NewWriter(ctx, httpClient, opts, driveClient,
		sheets.WithRateLimiter(limiter), sheets.WithMetrics(metrics))
	if err != nil {
		return nil, nil, err
	}
	aggregated, err := sheets.NewWriter(ctx, httpClient, opts.Aggregated(), driveClient,
		sheets.WithRateLimiter(limiter), sheets.WithMetrics(metrics))
	if err != nil {
		return nil, nil, err
	}
	return normal, aggregated, nil
}

// newInstrumentation creates the OpenTelemetry provider from the environment.
// The returned shutdown function flushes pending telemetry.
func newInstrumentation(ctx context.Context, forceEnable bool) (*instrumentation.Provider, func(), error) {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if forceEnable {
		instrConfig.Enabled = true
	}

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), instrumentationShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("error during instrumentation shutdown", slog.Any("error", err))
		}
	}
	return provider, shutdown, nil
}
