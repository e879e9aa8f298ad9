package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/gmailplayground/internal/gmail"
	"github.com/teemow/gmailplayground/internal/instrumentation"
	"github.com/teemow/gmailplayground/internal/logging"
)

// Mode selects where report rows go.
type Mode string

const (
	// ModePrint prints truncated rows to the console.
	ModePrint Mode = "PRINT"
	// ModeGSheet prints rows and writes them to Google Sheets.
	ModeGSheet Mode = "GSHEET"
)

// Validate rejects unknown modes.
func (m Mode) Validate() error {
	switch m {
	case ModePrint, ModeGSheet:
		return nil
	default:
		return fmt.Errorf("Unknown state! Operation mode should be either %s or %s but it is %s", ModePrint, ModeGSheet, m)
	}
}

// ThreadQuerier queries Gmail threads.
type ThreadQuerier interface {
	QueryThreads(ctx context.Context, opts gmail.QueryOptions) (gmail.Threads, error)
}

// SheetWriter writes a table to a worksheet.
type SheetWriter interface {
	WriteData(ctx context.Context, header []string, rows [][]string, clearRange bool) error
}

// Printer prints a table.
type Printer interface {
	Print(header []string, rows [][]string) error
}

// Config describes a report run.
type Config struct {
	Mode        Mode
	Query       string
	Limit       int
	SanityCheck bool
	Filter      Filter
	// Quiet suppresses printing the table.
	Quiet bool
}

// Result holds everything a run produced.
type Result struct {
	RunID          string
	Threads        int
	RawData        []MatchedLines
	Rows           [][]string
	AggregatedRows [][]string
}

// Runner executes report runs.
type Runner struct {
	cfg        Config
	querier    ThreadQuerier
	printer    Printer
	sheet      SheetWriter
	aggregated SheetWriter
	metrics    *instrumentation.Metrics
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSheets sets the worksheet writers used in GSHEET mode.
func WithSheets(sheet, aggregated SheetWriter) RunnerOption {
	return func(r *Runner) {
		r.sheet = sheet
		r.aggregated = aggregated
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *instrumentation.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg Config, querier ThreadQuerier, printer Printer, opts ...RunnerOption) (*Runner, error) {
	if err := cfg.Mode.Validate(); err != nil {
		return nil, err
	}
	if querier == nil {
		return nil, errors.New("thread querier is required")
	}
	if _, err := cfg.Filter.compile(); err != nil {
		return nil, err
	}

	r := &Runner{cfg: cfg, querier: querier, printer: printer}
	for _, opt := range opts {
		opt(r)
	}
	if cfg.Mode == ModeGSheet && (r.sheet == nil || r.aggregated == nil) {
		return nil, errors.New("GSHEET mode requires worksheet writers")
	}
	if !cfg.Quiet && r.printer == nil {
		return nil, errors.New("printer is required")
	}

	slog.Info("using operation mode", logging.Mode(string(cfg.Mode)))
	return r, nil
}

// Run queries threads, filters matching lines, prints the table and, in
// GSHEET mode, updates both worksheets.
func (r *Runner) Run(ctx context.Context) (_ *Result, err error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}

	ctx, span := instrumentation.StartSpan(ctx, "report.run",
		instrumentation.NewSpanAttributeBuilder().
			WithRunID(res.RunID).
			WithMode(string(r.cfg.Mode)).
			Build()...)
	defer func() {
		status := instrumentation.StatusSuccess
		if err != nil {
			status = instrumentation.StatusError
		}
		r.metrics.RecordReportRun(ctx, string(r.cfg.Mode), status, time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	logger := logging.WithRunID(slog.Default(), res.RunID)

	threads, err := r.querier.QueryThreads(ctx, gmail.QueryOptions{
		Query:       r.cfg.Query,
		Limit:       r.cfg.Limit,
		SanityCheck: r.cfg.SanityCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	res.Threads = len(threads)

	res.RawData, err = FilterByRegex(threads, r.cfg.Filter)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordLinesMatched(ctx, countLines(res.RawData))

	res.Rows = ConvertToRows(res.RawData, r.cfg.Mode == ModePrint)
	res.AggregatedRows = ConvertToAggregatedRows(res.RawData)

	if !r.cfg.Quiet {
		if err := r.printer.Print(Header, res.Rows); err != nil {
			return nil, fmt.Errorf("failed to print results: %w", err)
		}
	}

	if r.cfg.Mode == ModeGSheet {
		logger.Info("updating Google sheet with data")
		if err := r.sheet.WriteData(ctx, Header, res.Rows, false); err != nil {
			return nil, err
		}
		if err := r.aggregated.WriteData(ctx, AggregatedHeader, res.AggregatedRows, false); err != nil {
			return nil, err
		}
	}

	logger.Info("report finished",
		slog.Int("threads", res.Threads),
		slog.Int("rows", len(res.Rows)),
		slog.Int("testcases", len(res.AggregatedRows)))
	return res, nil
}
