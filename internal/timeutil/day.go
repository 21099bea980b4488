package timeutil

import (
	"time"
)

// All calendar-day math in this system runs on UTC dates. The sensor hub and
// the dashboard used to disagree on the day boundary (local wall clock in one
// place, UTC in another) which produced off-by-one gaps in the daily series;
// UTC is now the single convention.

// Common layouts
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02 Jan 2006, 03:04 PM"
)

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay returns midnight UTC of the given time's calendar date.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns midnight UTC of the current date.
func Today() time.Time {
	return StartOfDay(Now())
}

// DateString formats a time as its UTC calendar date (YYYY-MM-DD).
func DateString(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD date string as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, time.UTC)
}

// DaysBetween returns the number of whole days from the start of a's date to
// the start of b's date. Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	from := StartOfDay(a)
	to := StartOfDay(b)
	return int(to.Sub(from).Hours() / 24)
}

// AgeInDays returns the whole days elapsed from hatchDate to the given date,
// clamped to zero. Callers that need to detect a not-yet-hatched batch should
// use DaysBetween, which may go negative.
func AgeInDays(hatchDate, on time.Time) int {
	age := DaysBetween(hatchDate, on)
	if age < 0 {
		return 0
	}
	return age
}
