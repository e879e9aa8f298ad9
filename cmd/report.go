package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailplayground/internal/config"
	"github.com/teemow/gmailplayground/internal/output"
	"github.com/teemow/gmailplayground/internal/report"
	"github.com/teemow/gmailplayground/internal/sheets"
)

type reportOptions struct {
	print  bool
	gsheet bool

	gsheetClientSecret string
	gsheetSpreadsheet  string
	gsheetWorksheet    string

	query        string
	regex        string
	skipPrefixes []string
	limit        int
	lineSep      string
	noCache      bool
	noSanity     bool
}

func newReportCmd() *cobra.Command {
	var opts reportOptions

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report message lines matching a pattern",
		Long: `Query Gmail threads, keep the plain-text lines matching the pattern and report
them as rows of Date, Subject, Testcase, Message ID and Thread ID.

  --print    print the rows to the console (long values are truncated)
  --gsheet   print the rows and write them to a Google Sheet worksheet, plus
             failure frequency and latest failure per testcase to the
             worksheet "<worksheet>_aggregated"

Query, pattern, skipped line prefixes and limits default to the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := applyReportFlags(cmd, cfg, &opts); err != nil {
				return err
			}
			return runReport(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
		},
	}

	addReportFlags(cmd, &opts)

	cmd.MarkFlagsMutuallyExclusive("print", "gsheet")
	cmd.MarkFlagsOneRequired("print", "gsheet")

	return cmd
}

// addReportFlags binds the report flags to opts.
func addReportFlags(cmd *cobra.Command, opts *reportOptions) {
	f := cmd.Flags()
	f.BoolVarP(&opts.print, "print", "p", false, "Print results to console")
	f.BoolVarP(&opts.gsheet, "gsheet", "g", false, "Export values to Google sheet. Additional gsheet arguments need to be specified!")
	f.StringVar(&opts.gsheetClientSecret, "gsheet-client-secret", "", "Client credentials for accessing Google Sheet API")
	f.StringVar(&opts.gsheetSpreadsheet, "gsheet-spreadsheet", "", "Name of the GSheet spreadsheet")
	f.StringVar(&opts.gsheetWorksheet, "gsheet-worksheet", "", "Name of the worksheet in the GSheet spreadsheet")
	f.StringVar(&opts.query, "query", "", "Gmail search query (default from config: "+config.DefaultQuery+")")
	f.StringVar(&opts.regex, "regex", "", "Pattern matched at the start of each trimmed line")
	f.StringArrayVar(&opts.skipPrefixes, "skip-prefix", nil, "Skip lines starting with this prefix (repeatable, replaces the configured prefixes)")
	f.IntVar(&opts.limit, "limit", 0, "Maximum number of threads to process, 0 for no limit")
	f.StringVar(&opts.lineSep, "line-sep", "", `Line separator of message bodies, escape sequences like \r\n are understood`)
	f.BoolVar(&opts.noCache, "no-cache", false, "Do not read or write the local thread cache")
	f.BoolVar(&opts.noSanity, "no-sanity-check", false, "Do not warn about threads whose messages have different subjects")
}

// applyReportFlags overrides config values with the flags that were set and
// validates the result.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config, opts *reportOptions) error {
	f := cmd.Flags()
	if f.Changed("query") {
		cfg.Query = opts.query
	}
	if f.Changed("regex") {
		cfg.Regex = opts.regex
	}
	if f.Changed("skip-prefix") {
		cfg.SkipPrefixes = opts.skipPrefixes
	}
	if f.Changed("limit") {
		cfg.Limit = opts.limit
	}
	if f.Changed("line-sep") {
		cfg.LineSeparator = config.UnescapeSeparator(opts.lineSep)
	}
	if f.Changed("gsheet-client-secret") {
		cfg.GSheet.ClientSecret = opts.gsheetClientSecret
	}
	if f.Changed("gsheet-spreadsheet") {
		cfg.GSheet.Spreadsheet = opts.gsheetSpreadsheet
	}
	if f.Changed("gsheet-worksheet") {
		cfg.GSheet.Worksheet = opts.gsheetWorksheet
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.gsheet {
		return cfg.ValidateGSheet()
	}
	return nil
}

func (o reportOptions) mode() report.Mode {
	if o.gsheet {
		return report.ModeGSheet
	}
	return report.ModePrint
}

func runReport(ctx context.Context, out io.Writer, cfg *config.Config, opts reportOptions) error {
	start := time.Now()
	mode := opts.mode()

	provider, shutdown, err := newInstrumentation(ctx, false)
	if err != nil {
		return err
	}
	defer shutdown()
	metrics := provider.Metrics()

	secret, err := clientSecretPath()
	if err != nil {
		return err
	}

	store, err := openCache(cfg, opts.noCache)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	client, err := newGmailClient(ctx, cfg, secret, globals.account, store, metrics)
	if err != nil {
		return err
	}

	runnerOpts := []report.RunnerOption{report.WithMetrics(metrics)}
	if mode == report.ModeGSheet {
		sheetOpts := sheets.Options{
			ClientSecret: cfg.GSheet.ClientSecret,
			Spreadsheet:  cfg.GSheet.Spreadsheet,
			Worksheet:    cfg.GSheet.Worksheet,
		}
		account := gsheetAccount(globals.account, secret, sheetOpts.ClientSecret)
		normal, aggregated, err := newSheetWriters(ctx, sheetOpts, account, metrics)
		if err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, report.WithSheets(normal, aggregated))
	}

	runner, err := report.NewRunner(report.Config{
		Mode:        mode,
		Query:       cfg.Query,
		Limit:       cfg.Limit,
		SanityCheck: !opts.noSanity,
		Filter: report.Filter{
			Pattern:       cfg.Regex,
			SkipPrefixes:  cfg.SkipPrefixes,
			LineSeparator: cfg.LineSeparator,
			MimeType:      cfg.MimeType,
		},
	}, client, output.NewTablePrinter(out), runnerOpts...)
	if err != nil {
		return err
	}

	if _, err := runner.Run(ctx); err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	slog.Info(fmt.Sprintf("execution took %d seconds", int(time.Since(start).Seconds())))
	return nil
}
