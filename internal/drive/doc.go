// Package drive resolves Google Sheets spreadsheets by name through the
// Google Drive API.
package drive
