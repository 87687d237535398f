package query

import (
	"testing"
	"time"

	"github.com/arthur-debert/projectquery/types"
)

// Wednesday
var testNow = time.Date(2024, time.May, 15, 10, 30, 0, 0, time.UTC)

func TestResolveDateRange(t *testing.T) {
	tests := []struct {
		name     string
		op       types.Operator
		values   []string
		now      time.Time
		wantFrom string
		wantTo   string
	}{
		{name: "on date", op: types.OpEqual, values: []string{"2024-05-01"}, wantFrom: "2024-05-01 00:00:00", wantTo: "2024-05-01 23:59:59"},
		{name: "since date", op: types.OpGreaterOrEqual, values: []string{"2024-05-01"}, wantFrom: "2024-05-01 00:00:00"},
		{name: "until date", op: types.OpLessOrEqual, values: []string{"2024-05-01"}, wantTo: "2024-05-01 23:59:59"},
		{name: "since relative date", op: types.OpGreaterOrEqual, values: []string{"20 days ago"}, wantFrom: "2024-04-25 00:00:00"},
		{name: "between", op: types.OpBetween, values: []string{"2024-05-01", "2024-05-03"}, wantFrom: "2024-05-01 00:00:00", wantTo: "2024-05-03 23:59:59"},
		{name: "less than days ago", op: types.OpLessThanDaysAgo, values: []string{"20"}, wantFrom: "2024-04-25 00:00:00", wantTo: "2024-05-15 23:59:59"},
		{name: "more than days ago", op: types.OpMoreThanDaysAgo, values: []string{"20"}, wantTo: "2024-04-25 23:59:59"},
		{name: "days ago", op: types.OpDaysAgo, values: []string{"2"}, wantFrom: "2024-05-13 00:00:00", wantTo: "2024-05-13 23:59:59"},
		{name: "today", op: types.OpToday, wantFrom: "2024-05-15 00:00:00", wantTo: "2024-05-15 23:59:59"},
		{name: "yesterday", op: types.OpYesterday, wantFrom: "2024-05-14 00:00:00", wantTo: "2024-05-14 23:59:59"},
		{name: "this week starts monday", op: types.OpThisWeek, wantFrom: "2024-05-13 00:00:00", wantTo: "2024-05-19 23:59:59"},
		{
			name:     "this week on a sunday",
			op:       types.OpThisWeek,
			now:      time.Date(2024, time.May, 19, 8, 0, 0, 0, time.UTC),
			wantFrom: "2024-05-13 00:00:00",
			wantTo:   "2024-05-19 23:59:59",
		},
		{name: "last week", op: types.OpLastWeek, wantFrom: "2024-05-06 00:00:00", wantTo: "2024-05-12 23:59:59"},
		{name: "last two weeks", op: types.OpLastTwoWeeks, wantFrom: "2024-04-29 00:00:00", wantTo: "2024-05-12 23:59:59"},
		{name: "this month", op: types.OpThisMonth, wantFrom: "2024-05-01 00:00:00", wantTo: "2024-05-31 23:59:59"},
		{name: "last month", op: types.OpLastMonth, wantFrom: "2024-04-01 00:00:00", wantTo: "2024-04-30 23:59:59"},
		{
			name:     "last month in january",
			op:       types.OpLastMonth,
			now:      time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
			wantFrom: "2023-12-01 00:00:00",
			wantTo:   "2023-12-31 23:59:59",
		},
		{name: "this year", op: types.OpThisYear, wantFrom: "2024-01-01 00:00:00", wantTo: "2024-12-31 23:59:59"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			if now.IsZero() {
				now = testNow
			}

			r, err := ResolveDateRange(tt.op, tt.values, now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := formatBound(r.From); got != tt.wantFrom {
				t.Errorf("from = %q, want %q", got, tt.wantFrom)
			}
			if got := formatBound(r.To); got != tt.wantTo {
				t.Errorf("to = %q, want %q", got, tt.wantTo)
			}
		})
	}
}

func TestResolveDateRange_Errors(t *testing.T) {
	if _, err := ResolveDateRange(types.OpContains, []string{"x"}, testNow); err == nil {
		t.Error("expected an error for a non date operator")
	}
	if _, err := ResolveDateRange(types.OpEqual, []string{"not a date"}, testNow); err == nil {
		t.Error("expected an error for an unparsable date")
	}
	if _, err := ResolveDateRange(types.OpBetween, []string{"2024-01-01"}, testNow); err == nil {
		t.Error("expected an error for a missing upper bound")
	}
}

func TestParseDateAt(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"2024-02-29", "2024-02-29 00:00:00"},
		{"2024-02-29 13:14:15", "2024-02-29 13:14:15"},
		{"2024-02-29T13:14:15Z", "2024-02-29 13:14:15"},
		{"today", "2024-05-15 00:00:00"},
		{"Yesterday", "2024-05-14 00:00:00"},
		{"1 day ago", "2024-05-14 00:00:00"},
		{"20 days ago", "2024-04-25 00:00:00"},
	}

	for _, tt := range tests {
		got, err := ParseDateAt(tt.value, testNow)
		if err != nil {
			t.Errorf("ParseDateAt(%q): unexpected error: %v", tt.value, err)
			continue
		}
		if got.Format(TimestampLayout) != tt.want {
			t.Errorf("ParseDateAt(%q) = %s, want %s", tt.value, got.Format(TimestampLayout), tt.want)
		}
	}
}

func formatBound(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(TimestampLayout)
}
