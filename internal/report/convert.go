package report

import (
	"log/slog"
	"strconv"
	"time"
)

const (
	// DateLayout formats dates in rows.
	DateLayout = "2006-01-02 15:04:05"

	SubjectMaxLength = 50
	LineMaxLength    = 80

	truncationSuffix = "..."
)

// Header is the header of the per-line table.
var Header = []string{"Date", "Subject", "Testcase", "Message ID", "Thread ID"}

// AggregatedHeader is the header of the per-testcase table.
var AggregatedHeader = []string{"Testcase", "Frequency of failures", "Latest failure"}

// ConvertToRows returns one row per matched line. With truncate, subjects
// longer than SubjectMaxLength are shortened and every testcase is cut to
// LineMaxLength followed by "...".
func ConvertToRows(raw []MatchedLines, truncate bool) [][]string {
	rows := [][]string{}
	for _, m := range raw {
		for _, line := range m.Lines {
			subject := m.Subject
			if truncate && len([]rune(subject)) > SubjectMaxLength {
				subject = truncateString(subject, SubjectMaxLength, "subject")
			}
			testcase := line
			if truncate {
				testcase = truncateString(testcase, LineMaxLength, "testcase")
			}
			rows = append(rows, []string{
				m.Date.Format(DateLayout),
				subject,
				testcase,
				m.MessageID,
				m.ThreadID,
			})
		}
	}
	return rows
}

// ConvertToAggregatedRows counts failures per testcase and keeps the latest
// failure date. Rows are in order of first appearance.
func ConvertToAggregatedRows(raw []MatchedLines) [][]string {
	type failures struct {
		count  int
		latest time.Time
	}
	var order []string
	byTestcase := make(map[string]*failures)

	for _, m := range raw {
		for _, testcase := range m.Lines {
			f, ok := byTestcase[testcase]
			if !ok {
				byTestcase[testcase] = &failures{count: 1, latest: m.Date}
				order = append(order, testcase)
				continue
			}
			f.count++
			if f.latest.Before(m.Date) {
				f.latest = m.Date
			}
		}
	}

	rows := make([][]string, 0, len(order))
	for _, testcase := range order {
		f := byTestcase[testcase]
		rows = append(rows, []string{testcase, strconv.Itoa(f.count), f.latest.Format(DateLayout)})
	}
	return rows
}

func truncateString(value string, maxLen int, field string) string {
	runes := []rune(value)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	truncated := string(runes) + truncationSuffix
	slog.Debug("truncated value",
		slog.String("field", field),
		slog.String("original", value),
		slog.Int("original_length", len([]rune(value))),
		slog.String("truncated", truncated))
	return truncated
}
