package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConvertToRows(t *testing.T) {
	longSubject := strings.Repeat("s", 60)
	longLine := strings.Repeat("l", 90)

	raw := []MatchedLines{
		{MessageID: "m1", ThreadID: "t1", Subject: "short", Date: testDate, Lines: []string{"TestA", "TestB"}},
		{MessageID: "m2", ThreadID: "t2", Subject: longSubject, Date: testDate.Add(time.Hour), Lines: []string{longLine}},
		{MessageID: "m3", ThreadID: "t3", Subject: "none", Date: testDate},
	}

	tests := []struct {
		name     string
		truncate bool
		want     [][]string
	}{
		{
			name: "no truncation",
			want: [][]string{
				{"2024-05-01 10:00:00", "short", "TestA", "m1", "t1"},
				{"2024-05-01 10:00:00", "short", "TestB", "m1", "t1"},
				{"2024-05-01 11:00:00", longSubject, longLine, "m2", "t2"},
			},
		},
		{
			name:     "truncation",
			truncate: true,
			want: [][]string{
				{"2024-05-01 10:00:00", "short", "TestA...", "m1", "t1"},
				{"2024-05-01 10:00:00", "short", "TestB...", "m1", "t1"},
				{"2024-05-01 11:00:00", strings.Repeat("s", 50) + "...", strings.Repeat("l", 80) + "...", "m2", "t2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConvertToRows(raw, tt.truncate))
		})
	}
}

func TestConvertToRows_Empty(t *testing.T) {
	rows := ConvertToRows(nil, true)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestConvertToAggregatedRows(t *testing.T) {
	older := testDate.Add(-24 * time.Hour)
	newer := testDate.Add(24 * time.Hour)

	raw := []MatchedLines{
		{Date: testDate, Lines: []string{"TestB", "TestA"}},
		{Date: newer, Lines: []string{"TestA"}},
		{Date: older, Lines: []string{"TestB", "TestC"}},
	}

	assert.Equal(t, [][]string{
		{"TestB", "2", "2024-05-01 10:00:00"},
		{"TestA", "2", "2024-05-02 10:00:00"},
		{"TestC", "1", "2024-04-30 10:00:00"},
	}, ConvertToAggregatedRows(raw))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc...", truncateString("abcdef", 3, "f"))
	assert.Equal(t, "ab...", truncateString("ab", 3, "f"))
	assert.Equal(t, "äöü...", truncateString("äöüß", 3, "f"))
}
