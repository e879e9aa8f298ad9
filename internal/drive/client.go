package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/instrumentation"
)

const (
	// SpreadsheetMimeType is the MIME type for Google Sheets spreadsheets
	SpreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

	fileFields = "files(id, name, mimeType, modifiedTime, webViewLink, owners(emailAddress))"
)

// ErrSpreadsheetNotFound is returned when no spreadsheet has the requested name.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service
	caller  google.Caller
}

type clientOptions struct {
	endpoint string
	limiter  *google.RateLimiter
	metrics  *instrumentation.Metrics
}

// Option configures a Client.
type Option func(*clientOptions)

// WithEndpoint overrides the Drive API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

// WithRateLimiter throttles API calls.
func WithRateLimiter(limiter *google.RateLimiter) Option {
	return func(o *clientOptions) { o.limiter = limiter }
}

// WithMetrics records API metrics.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = metrics }
}

// NewClient creates a Drive client on top of an authorized HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	driveService, err := drive.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{
		service: driveService,
		caller: google.Caller{
			Service: google.ServiceDrive,
			Limiter: o.limiter,
			Metrics: o.metrics,
		},
	}, nil
}

// FindSpreadsheet returns the most recently modified, non-trashed spreadsheet
// called name.
func (c *Client) FindSpreadsheet(ctx context.Context, name string) (*FileInfo, error) {
	if name == "" {
		return nil, fmt.Errorf("spreadsheet name is required")
	}

	var res *drive.FileList
	err := c.caller.Do(ctx, instrumentation.OperationFilesList, func(ctx context.Context) error {
		var err error
		res, err = c.service.Files.List().
			Context(ctx).
			Q(buildNameQuery(name, SpreadsheetMimeType)).
			OrderBy("modifiedTime desc").
			PageSize(10).
			Fields(fileFields).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search spreadsheet %q: %w", name, err)
	}
	if len(res.Files) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, name)
	}
	if len(res.Files) > 1 {
		slog.Warn("multiple spreadsheets share the name, using the most recently modified",
			slog.String("spreadsheet", name),
			slog.Int("matches", len(res.Files)))
	}
	return convertToFileInfo(res.Files[0]), nil
}

// buildNameQuery builds a Drive search query matching files by exact name and MIME type.
func buildNameQuery(name, mimeType string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	return fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escaped, mimeType)
}

func convertToFileInfo(f *drive.File) *FileInfo {
	fileInfo := &FileInfo{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		WebViewLink: f.WebViewLink,
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			fileInfo.ModifiedTime = t
		}
	}
	for _, owner := range f.Owners {
		if owner != nil {
			fileInfo.Owners = append(fileInfo.Owners, owner.EmailAddress)
		}
	}
	return fileInfo
}
