package report

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/teemow/gmailplayground/internal/gmail"
)

// MatchedLines are the lines of one message part that matched the pattern.
type MatchedLines struct {
	MessageID string
	ThreadID  string
	Subject   string
	Date      time.Time
	Lines     []string
}

// Filter selects lines from message bodies.
type Filter struct {
	// Pattern must match at the start of a trimmed line.
	Pattern string
	// SkipPrefixes drops lines starting with any of the prefixes.
	SkipPrefixes []string
	// LineSeparator splits a body into lines.
	LineSeparator string
	// MimeType selects the body parts to filter. Empty means text/plain.
	MimeType string
}

func (f Filter) compile() (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + f.Pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", f.Pattern, err)
	}
	return re, nil
}

func (f Filter) skip(line string) bool {
	for _, prefix := range f.SkipPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// FilterByRegex returns one MatchedLines per selected body part of every
// message, in message order. Parts without matches yield empty Lines.
func FilterByRegex(threads gmail.Threads, f Filter) ([]MatchedLines, error) {
	re, err := f.compile()
	if err != nil {
		return nil, err
	}
	sep := f.LineSeparator
	if sep == "" {
		sep = "\n"
	}
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = gmail.MimeTypePlainText
	}

	var matched []MatchedLines
	for _, email := range threads.Emails() {
		for _, part := range email.PartsWithMimeType(mimeType) {
			m := MatchedLines{
				MessageID: email.ID,
				ThreadID:  email.ThreadID,
				Subject:   email.Subject,
				Date:      email.Date,
				Lines:     []string{},
			}
			for _, line := range strings.Split(part.Body, sep) {
				line = strings.TrimSpace(line)
				if f.skip(line) {
					slog.Warn("skipping line", slog.String("line", line))
					continue
				}
				if re.MatchString(line) {
					slog.Debug("matched line", slog.String("pattern", f.Pattern), slog.String("line", line))
					m.Lines = append(m.Lines, line)
				}
			}
			matched = append(matched, m)
		}
	}
	slog.Debug("filtered message bodies", slog.Int("parts", len(matched)), slog.Int("lines", countLines(matched)))
	return matched, nil
}

func countLines(raw []MatchedLines) int {
	n := 0
	for _, m := range raw {
		n += len(m.Lines)
	}
	return n
}
