// Package sheets writes report rows to a worksheet of a Google Sheets
// spreadsheet that is addressed by its name.
package sheets
