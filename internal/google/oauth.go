package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/gmailplayground/internal/logging"
)

const (
	// DefaultAccount is the account name used when none is given.
	DefaultAccount = "default"

	// SheetsAccountSuffix names the token of a Sheets OAuth client that
	// differs from the Gmail one.
	SheetsAccountSuffix = "-gsheet"

	appName = "gmailplayground"

	credentialTypeServiceAccount = "service_account"
)

// ErrNoToken is returned when no cached token exists for an account.
var ErrNoToken = errors.New("no cached Google OAuth token")

var accountNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func validateAccountName(account string) error {
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, '-' and '_' are allowed", account)
	}
	return nil
}

func getTokenFilePath(account string) string {
	return filepath.Join(userCacheDir(), appName, "google-"+account+".token")
}

// HasTokenForAccount checks if a cached OAuth token exists for the account.
func HasTokenForAccount(account string) bool {
	if err := validateAccountName(account); err != nil {
		return false
	}
	_, err := os.Stat(getTokenFilePath(account))
	return err == nil
}

// GetAuthenticationErrorMessage explains how to authorize the given account.
func GetAuthenticationErrorMessage(account string) string {
	return fmt.Sprintf("no Google OAuth token found for account %q. "+
		"Run `gmailplayground auth --account %s --client-secret <file>` to authorize access.",
		account, account)
}

// LoadConfig reads OAuth client secrets and returns a config for the scopes.
func LoadConfig(secretFile string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	return conf, nil
}

// LoadToken reads the cached token of an account.
func LoadToken(account string) (*oauth2.Token, error) {
	if err := validateAccountName(account); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(getTokenFilePath(account))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token format: %w", err)
	}
	return &tok, nil
}

// SaveTokenForAccount writes the token of an account to the cache directory.
func SaveTokenForAccount(account string, tok *oauth2.Token) error {
	if err := validateAccountName(account); err != nil {
		return err
	}

	tokenFile := getTokenFilePath(account)
	if err := os.MkdirAll(filepath.Dir(tokenFile), 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(tokenFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// IsServiceAccountFile reports whether path holds a service account key.
// Service accounts need no interactive authorization.
func IsServiceAccountFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("unable to read client secret file: %w", err)
	}
	return credentialType(data) == credentialTypeServiceAccount, nil
}

// credentialType returns the "type" field of a Google credentials file.
func credentialType(data []byte) string {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.Type
}

// GetHTTPClient returns an authorized HTTP client for secretFile.
// Service account keys are used directly; OAuth client secrets use the cached token
// of account and persist refreshed tokens.
func GetHTTPClient(ctx context.Context, secretFile, account string, scopes ...string) (*http.Client, error) {
	data, err := os.ReadFile(secretFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	if credentialType(data) == credentialTypeServiceAccount {
		jwtConf, err := google.JWTConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		return withHTTP1(jwtConf.Client(ctx)), nil
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}

	tok, err := LoadToken(account)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, fmt.Errorf("%w: %s", err, GetAuthenticationErrorMessage(account))
		}
		return nil, err
	}

	ts := &persistingTokenSource{
		base:    conf.TokenSource(ctx, tok),
		account: account,
		last:    tok.AccessToken,
	}
	return withHTTP1(oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts))), nil
}

// withHTTP1 forces HTTP/1.1 on the client's base transport to avoid HTTP/2
// protocol errors seen with some Google endpoints.
func withHTTP1(client *http.Client) *http.Client {
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client
}

// persistingTokenSource writes refreshed tokens back to the cache.
type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	account string
	last    string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("cached token is invalid: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := SaveTokenForAccount(s.account, tok); err != nil {
			slog.Warn("failed to persist refreshed token",
				logging.Account(s.account),
				logging.Err(err))
		} else {
			slog.Debug("persisted refreshed token",
				logging.Account(s.account),
				slog.String("token", logging.SanitizeToken(tok.AccessToken)))
		}
	}
	return tok, nil
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		panic("No Windows TEMP or TMP environment variables found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

// CacheDir returns the application's cache directory.
func CacheDir() string {
	return filepath.Join(userCacheDir(), appName)
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
