package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/gmailplayground/internal/cache"
	"github.com/teemow/gmailplayground/internal/config"
	"github.com/teemow/gmailplayground/internal/gmail"
	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/instrumentation"
	"github.com/teemow/gmailplayground/internal/logging"
)

// ErrShutdown is returned once the server context has been shut down.
var ErrShutdown = errors.New("server is shutting down")

// GmailClientFactory creates a Gmail client for an account.
type GmailClientFactory func(ctx context.Context, account string) (*gmail.Client, error)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx          context.Context
	cancel       context.CancelFunc
	cfg          *config.Config
	newClient    GmailClientFactory
	gmailClients map[string]*gmail.Client
	cache        *cache.Store
	metrics      *instrumentation.Metrics
	mu           sync.RWMutex
	shutdown     bool
}

// NewServerContext creates a new server context. Gmail clients are created
// on first use through newClient.
func NewServerContext(ctx context.Context, cfg *config.Config, newClient GmailClientFactory) (*ServerContext, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if newClient == nil {
		return nil, fmt.Errorf("gmail client factory is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		cfg:          cfg,
		newClient:    newClient,
		gmailClients: make(map[string]*gmail.Client),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the report configuration.
func (sc *ServerContext) Config() *config.Config {
	return sc.cfg
}

// GmailClientForAccount returns the Gmail client for an account, creating
// and caching it on first use.
func (sc *ServerContext) GmailClientForAccount(account string) (*gmail.Client, error) {
	if account == "" {
		account = google.DefaultAccount
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if client, ok := sc.gmailClients[account]; ok {
		return client, nil
	}

	logger := logging.WithAccount(slog.Default(), account)
	client, err := sc.newClient(sc.ctx, account)
	if err != nil {
		logger.Warn("failed to create Gmail client", logging.Err(err))
		return nil, err
	}
	logger.Debug("created Gmail client")
	sc.gmailClients[account] = client
	return client, nil
}

// GmailClient returns the Gmail client for the default account
func (sc *ServerContext) GmailClient() (*gmail.Client, error) {
	return sc.GmailClientForAccount(google.DefaultAccount)
}

// SetCache sets the thread cache.
func (sc *ServerContext) SetCache(store *cache.Store) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache = store
}

// Cache returns the thread cache or nil when caching is disabled.
func (sc *ServerContext) Cache() *cache.Store {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.cache
}

// SetMetrics sets the metrics recorder used by tools.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder; a nil recorder is a no-op.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Calling it again is a no-op.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
