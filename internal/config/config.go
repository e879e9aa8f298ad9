package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultQuery selects the YARN daily unit test report mails.
	DefaultQuery = `subject:"YARN Daily unit test report"`

	// DefaultRegex matches YARN testcase names.
	DefaultRegex = `.*org\.apache\.hadoop\.yarn.*`

	// DefaultLimit is the maximum number of threads processed per run.
	DefaultLimit = 1000

	// DefaultLineSeparator splits decoded message bodies into lines.
	// Lines are trimmed afterwards, so CRLF bodies split cleanly too.
	DefaultLineSeparator = "\n"

	// DefaultMimeType is the MIME type of the message parts that are filtered.
	DefaultMimeType = "text/plain"

	// DefaultRequestsPerSecond is the sustained Gmail API request rate.
	DefaultRequestsPerSecond = 2.0

	// DefaultBurst is the Gmail API burst size.
	DefaultBurst = 5

	appDirName     = ".gmailplayground"
	configFileName = "config.toml"
)

// DefaultSkipPrefixes are line prefixes that are never reported.
var DefaultSkipPrefixes = []string{"Failed testcases:", "FILTER:"}

// Config is the full report configuration.
type Config struct {
	Query         string   `toml:"query"`
	Regex         string   `toml:"regex"`
	SkipPrefixes  []string `toml:"skip_lines_starting_with"`
	Limit         int      `toml:"limit"`
	LineSeparator string   `toml:"line_separator"`
	MimeType      string   `toml:"mime_type"`

	Cache     CacheConfig     `toml:"cache"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	GSheet    GSheetConfig    `toml:"gsheet"`
}

// CacheConfig configures the local thread cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// RateLimitConfig configures Gmail API throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// GSheetConfig holds the Google Sheet export target.
type GSheetConfig struct {
	ClientSecret string `toml:"client_secret"`
	Spreadsheet  string `toml:"spreadsheet"`
	Worksheet    string `toml:"worksheet"`
}

// Default returns the built-in configuration.
func Default() *Config {
	skip := make([]string, len(DefaultSkipPrefixes))
	copy(skip, DefaultSkipPrefixes)

	return &Config{
		Query:         DefaultQuery,
		Regex:         DefaultRegex,
		SkipPrefixes:  skip,
		Limit:         DefaultLimit,
		LineSeparator: DefaultLineSeparator,
		MimeType:      DefaultMimeType,
		Cache: CacheConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
	}
}

// DefaultPath returns ~/.gmailplayground/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, appDirName, configFileName), nil
}

// Load reads the TOML file at path on top of the defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a report run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Query) == "" {
		return fmt.Errorf("query must not be empty")
	}
	if _, err := regexp.Compile(c.Regex); err != nil {
		return fmt.Errorf("invalid regex %q: %w", c.Regex, err)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}
	if c.LineSeparator == "" {
		return fmt.Errorf("line separator must not be empty")
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive, got %f", c.RateLimit.RequestsPerSecond)
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive, got %d", c.RateLimit.Burst)
	}
	return nil
}

// ValidateGSheet checks that all Google Sheet options are present.
func (c *Config) ValidateGSheet() error {
	g := c.GSheet
	if g.ClientSecret == "" || g.Spreadsheet == "" || g.Worksheet == "" {
		return fmt.Errorf("--gsheet requires --gsheet-client-secret, --gsheet-spreadsheet and --gsheet-worksheet")
	}
	f, err := os.Open(g.ClientSecret)
	if err != nil {
		return fmt.Errorf("gsheet client secret is not readable: %w", err)
	}
	return f.Close()
}

// UnescapeSeparator turns the escape sequences \r, \n and \t typed on a
// command line into the characters they name. A doubled backslash stands for
// one literal backslash, so \\n yields a backslash followed by n.
func UnescapeSeparator(s string) string {
	return strings.NewReplacer(`\\`, `\`, `\r`, "\r", `\n`, "\n", `\t`, "\t").Replace(s)
}
