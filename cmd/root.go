package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/teemow/gmailplayground/internal/config"
	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/logging"
)

const (
	clientSecretEnv      = "GMAILPLAYGROUND_CLIENT_SECRET"
	clientSecretFileName = "client_secret.json"
	annotationStderrLogs = "stderr-logs"
	defaultSubcommand    = "report"
)

// globalOptions are the persistent flags shared by all commands.
type globalOptions struct {
	verbose      bool
	configPath   string
	account      string
	clientSecret string
	logDir       string
}

var (
	globals    globalOptions
	closeLogFn func() error
)

// rootCmd represents the base command for the gmailplayground application
var rootCmd = &cobra.Command{
	Use:   "gmailplayground",
	Short: "Reports failing testcases found in Gmail messages",
	Long: `gmailplayground queries Gmail threads, keeps the message lines matching a
regular expression and reports them as a table.

By default it collects the failing testcases of the "YARN Daily unit test report"
mails. Results are printed to the console (--print) or additionally written to a
Google Sheet together with a per-testcase aggregation (--gsheet).

It can run as:
  - A standalone CLI tool (default, runs the report command)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(cmd)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogs()
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmailplayground version %s\n" .Version}}`)
	rootCmd.SetArgs(withDefaultSubcommand(rootCmd, os.Args[1:]))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	_ = closeLogs()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&globals.verbose, "verbose", "v", false, "More verbose log")
	pf.StringVar(&globals.configPath, "config", "", "Path to the TOML config file (default: ~/.gmailplayground/config.toml)")
	pf.StringVar(&globals.account, "account", google.DefaultAccount, "Google account name used for the token cache")
	pf.StringVar(&globals.clientSecret, "client-secret", "", "Google OAuth client secrets file for Gmail (default: $"+clientSecretEnv+" or ~/.gmailplayground/"+clientSecretFileName+")")
	pf.StringVar(&globals.logDir, "log-dir", "", "Directory of the rotating log file (default: <user cache dir>/gmailplayground/logs)")

	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// withDefaultSubcommand runs the report command unless args name another
// command or ask for help.
func withDefaultSubcommand(root *cobra.Command, args []string) []string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-h", "--help", "--version", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return args
		}
		if a == "--" {
			break
		}
		if strings.HasPrefix(a, "-") {
			if flagTakesValue(root, a) {
				i++
			}
			continue
		}
		if c, _, err := root.Find([]string{a}); err == nil && c != root {
			return args
		}
	}
	return append([]string{defaultSubcommand}, args...)
}

// flagTakesValue reports whether a names a known flag whose value is the
// following argument. Root persistent flags and flags of the default
// subcommand are considered.
func flagTakesValue(root *cobra.Command, a string) bool {
	if strings.Contains(a, "=") {
		return false
	}
	sets := []*pflag.FlagSet{root.PersistentFlags()}
	if c, _, err := root.Find([]string{defaultSubcommand}); err == nil && c != root {
		sets = append(sets, c.Flags())
	}
	for _, fs := range sets {
		var f *pflag.Flag
		if name, ok := strings.CutPrefix(a, "--"); ok {
			f = fs.Lookup(name)
		} else if len(a) == 2 {
			f = fs.ShorthandLookup(a[1:])
		}
		if f != nil {
			return f.NoOptDefVal == ""
		}
	}
	return false
}

func setupLogging(cmd *cobra.Command) error {
	var console io.Writer = cmd.OutOrStdout()
	if _, ok := cmd.Annotations[annotationStderrLogs]; ok {
		console = cmd.ErrOrStderr()
	}

	_, closer, err := logging.Setup(logging.Options{
		Verbose: globals.verbose,
		LogDir:  globals.logDir,
		Console: console,
	})
	if err != nil {
		return err
	}
	closeLogFn = closer
	return nil
}

func closeLogs() error {
	if closeLogFn == nil {
		return nil
	}
	err := closeLogFn()
	closeLogFn = nil
	return err
}

// loadConfig reads the config file named by --config or the default path.
func loadConfig() (*config.Config, error) {
	path := globals.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			slog.Warn("cannot determine default config path, using defaults", logging.Err(err))
			return config.Default(), nil
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded config", slog.String("path", path))
	return cfg, nil
}

// clientSecretPath resolves the Gmail client secrets file.
func clientSecretPath() (string, error) {
	if globals.clientSecret != "" {
		return globals.clientSecret, nil
	}
	if env := os.Getenv(clientSecretEnv); env != "" {
		return env, nil
	}
	cfgPath, err := config.DefaultPath()
	if err != nil {
		return "", fmt.Errorf("no client secret given: %w", err)
	}
	return filepath.Join(filepath.Dir(cfgPath), clientSecretFileName), nil
}
