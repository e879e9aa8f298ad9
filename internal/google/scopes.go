package google

import (
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	sheets "google.golang.org/api/sheets/v4"
)

// GmailScopes are requested for reading threads. The tool never modifies mail.
var GmailScopes = []string{
	gmail.GmailReadonlyScope,
}

// SheetsScopes are requested for the Google Sheet export. Drive metadata access is
// needed to find a spreadsheet by its name.
var SheetsScopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveMetadataReadonlyScope,
}

// AllScopes returns the union of Gmail and Sheets scopes.
func AllScopes() []string {
	scopes := make([]string, 0, len(GmailScopes)+len(SheetsScopes))
	scopes = append(scopes, GmailScopes...)
	scopes = append(scopes, SheetsScopes...)
	return scopes
}
