// Package output renders report rows as text tables.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// TablePrinter prints bordered tables.
type TablePrinter struct {
	w io.Writer
}

// NewTablePrinter returns a printer writing to w, or to stdout when w is nil.
func NewTablePrinter(w io.Writer) *TablePrinter {
	if w == nil {
		w = os.Stdout
	}
	return &TablePrinter{w: w}
}

// Print writes header and rows as one table followed by a newline.
func (p *TablePrinter) Print(header []string, rows [][]string) error {
	_, err := fmt.Fprintln(p.w, Render(header, rows))
	return err
}

// Render returns the table for header and rows. Rows shorter than the
// header are padded with empty cells.
func Render(header []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(header...)

	for _, row := range rows {
		t.Row(pad(row, len(header))...)
	}
	return t.String()
}

func pad(row []string, n int) []string {
	if len(row) >= n {
		return row
	}
	padded := make([]string, n)
	copy(padded, row)
	return padded
}
