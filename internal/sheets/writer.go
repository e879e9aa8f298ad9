package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/teemow/gmailplayground/internal/drive"
	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/instrumentation"
)

// ValueInputOption stores values as given, without formula or date parsing.
const ValueInputOption = "RAW"

// SpreadsheetFinder resolves a spreadsheet name to a Drive file.
type SpreadsheetFinder interface {
	FindSpreadsheet(ctx context.Context, name string) (*drive.FileInfo, error)
}

// Writer writes rows into one worksheet.
type Writer struct {
	svc     *sheetsapi.Service
	finder  SpreadsheetFinder
	opts    Options
	caller  google.Caller
	metrics *instrumentation.Metrics

	mu            sync.Mutex
	spreadsheetID string
}

type writerOptions struct {
	endpoint string
	limiter  *google.RateLimiter
	metrics  *instrumentation.Metrics
}

// Option configures a Writer.
type Option func(*writerOptions)

// WithEndpoint overrides the Sheets API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *writerOptions) { o.endpoint = endpoint }
}

// WithRateLimiter throttles API calls.
func WithRateLimiter(limiter *google.RateLimiter) Option {
	return func(o *writerOptions) { o.limiter = limiter }
}

// WithMetrics records API and row metrics.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(o *writerOptions) { o.metrics = metrics }
}

// NewWriter creates a Writer for the worksheet selected by opts.
func NewWriter(ctx context.Context, httpClient *http.Client, opts Options, finder SpreadsheetFinder, wopts ...Option) (*Writer, error) {
	if opts.Spreadsheet == "" || opts.Worksheet == "" {
		return nil, fmt.Errorf("spreadsheet and worksheet are required")
	}
	if finder == nil {
		return nil, fmt.Errorf("spreadsheet finder is required")
	}

	var o writerOptions
	for _, opt := range wopts {
		opt(&o)
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if o.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(o.endpoint))
	}
	svc, err := sheetsapi.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets service: %w", err)
	}

	return &Writer{
		svc:    svc,
		finder: finder,
		opts:   opts,
		caller: google.Caller{
			Service: google.ServiceSheets,
			Limiter: o.limiter,
			Metrics: o.metrics,
		},
		metrics: o.metrics,
	}, nil
}

// Options returns the options the writer was created with.
func (w *Writer) Options() Options {
	return w.opts
}

// WriteData writes header and rows starting at A1 of the worksheet, creating
// the worksheet when it does not exist. With clearRange the worksheet is
// cleared first; otherwise cells outside the written range keep their values.
func (w *Writer) WriteData(ctx context.Context, header []string, rows [][]string, clearRange bool) error {
	id, err := w.resolveSpreadsheet(ctx)
	if err != nil {
		return err
	}
	if err := w.ensureWorksheet(ctx, id); err != nil {
		return err
	}

	sheetRange := quoteSheetName(w.opts.Worksheet)
	if clearRange {
		err := w.caller.Do(ctx, instrumentation.OperationValuesClear, func(ctx context.Context) error {
			_, err := w.svc.Spreadsheets.Values.Clear(id, sheetRange, &sheetsapi.ClearValuesRequest{}).Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to clear worksheet %q: %w", w.opts.Worksheet, err)
		}
	}

	values := make([][]interface{}, 0, len(rows)+1)
	values = append(values, toCells(header))
	for _, row := range rows {
		values = append(values, toCells(row))
	}

	var res *sheetsapi.UpdateValuesResponse
	err = w.caller.Do(ctx, instrumentation.OperationValuesUpdate, func(ctx context.Context) error {
		var err error
		res, err = w.svc.Spreadsheets.Values.Update(id, sheetRange+"!A1", &sheetsapi.ValueRange{
			MajorDimension: "ROWS",
			Values:         values,
		}).ValueInputOption(ValueInputOption).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update worksheet %q: %w", w.opts.Worksheet, err)
	}

	w.metrics.RecordSheetRowsWritten(ctx, len(rows))
	slog.Info("updated Google sheet",
		slog.String("spreadsheet", w.opts.Spreadsheet),
		slog.String("worksheet", w.opts.Worksheet),
		slog.Int("rows", len(rows)),
		slog.Int64("updated_cells", res.UpdatedCells))
	return nil
}

func (w *Writer) resolveSpreadsheet(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.spreadsheetID != "" {
		return w.spreadsheetID, nil
	}
	info, err := w.finder.FindSpreadsheet(ctx, w.opts.Spreadsheet)
	if err != nil {
		return "", err
	}
	w.spreadsheetID = info.ID
	return info.ID, nil
}

func (w *Writer) ensureWorksheet(ctx context.Context, spreadsheetID string) error {
	var spreadsheet *sheetsapi.Spreadsheet
	err := w.caller.Do(ctx, instrumentation.OperationSpreadsheetGet, func(ctx context.Context) error {
		var err error
		spreadsheet, err = w.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet %q: %w", w.opts.Spreadsheet, err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet != nil && sheet.Properties != nil && sheet.Properties.Title == w.opts.Worksheet {
			return nil
		}
	}

	slog.Info("creating worksheet",
		slog.String("spreadsheet", w.opts.Spreadsheet),
		slog.String("worksheet", w.opts.Worksheet))
	err = w.caller.Do(ctx, instrumentation.OperationBatchUpdate, func(ctx context.Context) error {
		_, err := w.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
			Requests: []*sheetsapi.Request{{
				AddSheet: &sheetsapi.AddSheetRequest{
					Properties: &sheetsapi.SheetProperties{Title: w.opts.Worksheet},
				},
			}},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create worksheet %q: %w", w.opts.Worksheet, err)
	}
	return nil
}

// quoteSheetName quotes a worksheet title for use in A1 notation.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}
