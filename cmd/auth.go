package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/gmailplayground/internal/google"
	"github.com/teemow/gmailplayground/internal/logging"
)

func newAuthCmd() *cobra.Command {
	var (
		gsheet       bool
		gsheetSecret string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Gmail (and Google Sheets)",
		Long: `Run the OAuth2 authorization flow in the browser and cache the token.

The consent page redirects to a temporary listener on 127.0.0.1, so the command
must run on the machine with the browser. Tokens are stored per account in
<user cache dir>/gmailplayground/google-<account>.token.

With --gsheet the token also grants access to Google Sheets. When the Sheets
client secret is a different OAuth client, a second token is stored for the
account "<account>-gsheet". Service account keys need no authorization.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := clientSecretPath()
			if err != nil {
				return err
			}
			account := globals.account
			separateSheets := gsheet && gsheetSecret != "" && !sameFile(secret, gsheetSecret)

			scopes := google.GmailScopes
			if gsheet && !separateSheets {
				scopes = google.AllScopes()
			}
			if _, err := google.AuthorizeInteractive(cmd.Context(), secret, account, cmd.OutOrStdout(), scopes...); err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}
			slog.Info("authorized Gmail access", logging.Account(account))

			if !separateSheets {
				return nil
			}
			isServiceAccount, err := google.IsServiceAccountFile(gsheetSecret)
			if err != nil {
				return err
			}
			if isServiceAccount {
				slog.Info("Google Sheets client secret is a service account key, no authorization needed")
				return nil
			}

			sheetsAccount := gsheetAccount(account, secret, gsheetSecret)
			if _, err := google.AuthorizeInteractive(cmd.Context(), gsheetSecret, sheetsAccount, cmd.OutOrStdout(), google.SheetsScopes...); err != nil {
				return fmt.Errorf("Google Sheets authorization failed: %w", err)
			}
			slog.Info("authorized Google Sheets access", logging.Account(sheetsAccount))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&gsheet, "gsheet", "g", false, "Also authorize Google Sheets access")
	cmd.Flags().StringVar(&gsheetSecret, "gsheet-client-secret", "", "Client credentials for accessing Google Sheet API, if different from --client-secret")
	return cmd
}
