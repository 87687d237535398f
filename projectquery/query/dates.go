package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/projectquery/types"
)

// Clock returns the current time. Relative date operators are resolved
// against it, so tests inject a fixed one.
type Clock func() time.Time

// SystemClock is the wall clock
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// TimestampLayout is the textual form of timestamps in the store
const TimestampLayout = "2006-01-02 15:04:05"

// StoreTime formats t the way the store keeps timestamps: UTC text.
// Day boundaries are resolved in the clock's zone before conversion.
func StoreTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

var dateLayouts = []string{
	"2006-01-02",
	TimestampLayout,
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseDate parses a filter value as a date in loc (UTC when nil).
// Time of day is kept; callers truncate to days as needed.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

var daysAgoPattern = regexp.MustCompile(`^(\d+) days? ago$`)

// relativeDays returns how many days before today a relative date value
// ("today", "yesterday", "N days ago") designates
func relativeDays(value string) (int, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "today":
		return 0, true
	case "yesterday":
		return 1, true
	}
	m := daysAgoPattern.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDateAt parses an absolute date or a relative one resolved against now
func ParseDateAt(value string, now time.Time) (time.Time, error) {
	if n, ok := relativeDays(value); ok {
		return addDays(startOfDay(now), -n), nil
	}
	return ParseDate(value, now.Location())
}

// DateRange is an inclusive timestamp interval. A nil bound is open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

func addDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, 0, 0, 0, 0, t.Location())
}

func days(from, to time.Time) DateRange {
	f, e := startOfDay(from), endOfDay(to)
	return DateRange{From: &f, To: &e}
}

func since(from time.Time) DateRange {
	f := startOfDay(from)
	return DateRange{From: &f}
}

func until(to time.Time) DateRange {
	e := endOfDay(to)
	return DateRange{To: &e}
}

// ResolveDateRange turns a date operator and its values into an absolute
// range, resolving relative operators against now. Weeks start on Monday.
func ResolveDateRange(op types.Operator, values []string, now time.Time) (DateRange, error) {
	loc := now.Location()
	today := startOfDay(now)
	sinceMonday := (int(today.Weekday()) + 6) % 7

	date := func(i int) (time.Time, error) {
		if i >= len(values) {
			return time.Time{}, &types.InvalidOperatorArityError{Operator: op, Got: len(values), Min: i + 1, Max: i + 1}
		}
		return ParseDateAt(values[i], now)
	}
	number := func() (int, error) {
		if len(values) != 1 {
			return 0, &types.InvalidOperatorArityError{Operator: op, Got: len(values), Min: 1, Max: 1}
		}
		return strconv.Atoi(values[0])
	}

	switch op {
	case types.OpEqual:
		d, err := date(0)
		if err != nil {
			return DateRange{}, err
		}
		return days(d, d), nil
	case types.OpGreaterOrEqual:
		d, err := date(0)
		if err != nil {
			return DateRange{}, err
		}
		return since(d), nil
	case types.OpLessOrEqual:
		d, err := date(0)
		if err != nil {
			return DateRange{}, err
		}
		return until(d), nil
	case types.OpBetween:
		from, err := date(0)
		if err != nil {
			return DateRange{}, err
		}
		to, err := date(1)
		if err != nil {
			return DateRange{}, err
		}
		return days(from, to), nil
	case types.OpLessThanDaysAgo:
		n, err := number()
		if err != nil {
			return DateRange{}, err
		}
		return days(addDays(today, -n), today), nil
	case types.OpMoreThanDaysAgo:
		n, err := number()
		if err != nil {
			return DateRange{}, err
		}
		return until(addDays(today, -n)), nil
	case types.OpDaysAgo:
		n, err := number()
		if err != nil {
			return DateRange{}, err
		}
		d := addDays(today, -n)
		return days(d, d), nil
	case types.OpToday:
		return days(today, today), nil
	case types.OpYesterday:
		d := addDays(today, -1)
		return days(d, d), nil
	case types.OpThisWeek:
		monday := addDays(today, -sinceMonday)
		return days(monday, addDays(monday, 6)), nil
	case types.OpLastWeek:
		monday := addDays(today, -sinceMonday-7)
		return days(monday, addDays(monday, 6)), nil
	case types.OpLastTwoWeeks:
		monday := addDays(today, -sinceMonday-14)
		return days(monday, addDays(monday, 13)), nil
	case types.OpThisMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)
		return days(first, first.AddDate(0, 1, -1)), nil
	case types.OpLastMonth:
		first := time.Date(today.Year(), today.Month()-1, 1, 0, 0, 0, 0, loc)
		return days(first, first.AddDate(0, 1, -1)), nil
	case types.OpThisYear:
		first := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, loc)
		return days(first, time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, loc)), nil
	default:
		return DateRange{}, fmt.Errorf("operator %q does not describe a date range", op)
	}
}
