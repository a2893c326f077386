// ABOUTME: DayKey calendar-date identifier shared by every feed.
// ABOUTME: Locale- and format-independent; compares by year, month, day.
package models

import (
	"fmt"
	"time"
)

// DayKey identifies a calendar date. The zero value means "no date".
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the DayKey of t in t's own location.
func DayOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// Today returns the DayKey for the current local date.
func Today() DayKey {
	return DayOf(time.Now())
}

// NewDayKey builds a DayKey, normalizing out-of-range values (e.g. Feb 30).
func NewDayKey(year int, month time.Month, day int) DayKey {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// IsZero reports whether d is the zero DayKey.
func (d DayKey) IsZero() bool {
	return d == DayKey{}
}

// Time returns midnight of d in loc.
func (d DayKey) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d DayKey) AddDays(n int) DayKey {
	return DayOf(d.Time(time.UTC).AddDate(0, 0, n))
}

// Before reports whether d is an earlier date than o.
func (d DayKey) Before(o DayKey) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// String renders d as YYYY-MM-DD.
func (d DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
