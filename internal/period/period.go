// Package period computes the calendar bucket keys that time is accounted into.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Period selects one of the three bucket granularities.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// All returns the periods in selector order.
func All() []Period {
	return []Period{Daily, Weekly, Monthly}
}

// Parse converts a user-supplied period name. Matching is case-insensitive.
func Parse(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	case Monthly:
		return Monthly, nil
	default:
		return "", fmt.Errorf("invalid period: %q (use daily, weekly, or monthly)", s)
	}
}

// Next returns the period after p, wrapping around.
func (p Period) Next() Period {
	switch p {
	case Daily:
		return Weekly
	case Weekly:
		return Monthly
	default:
		return Daily
	}
}

// Keys holds every bucket key for a single instant.
type Keys struct {
	Day   string
	Week  string
	Month string
}

// KeysAt returns all three bucket keys for t.
func KeysAt(t time.Time) Keys {
	return Keys{Day: DayKey(t), Week: WeekKey(t), Month: MonthKey(t)}
}

// Key returns the bucket key for t under period p.
func Key(p Period, t time.Time) string {
	switch p {
	case Weekly:
		return WeekKey(t)
	case Monthly:
		return MonthKey(t)
	default:
		return DayKey(t)
	}
}

// DayKey formats t as YYYY-MM-DD in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MonthKey formats t as YYYY-MM in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// WeekKey formats the ISO-8601 week of t as <isoYear>-W<week>.
// Weeks start on Monday and week 1 contains the year's first Thursday, so
// the ISO year differs from the calendar year around New Year
// (2022-01-01 is 2021-W52). The week number is not zero padded.
func WeekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%d", year, week)
}
