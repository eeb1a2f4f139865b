package clinictime

import (
	"fmt"
	"regexp"
	"time"
)

// All appointment slot times are authored and displayed in one fixed civil
// timezone but persisted as absolute instants. Storing local midnight as an
// instant keeps "the same local day" queryable as a contiguous instant range
// no matter what timezone the database or server runs in.

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ErrInvalidDate reports a date string that is not a valid YYYY-MM-DD calendar date.
type ErrInvalidDate struct {
	Value string
}

func (e ErrInvalidDate) Error() string {
	return fmt.Sprintf("clinictime: invalid date %q, want YYYY-MM-DD", e.Value)
}

// ErrInvalidClock reports a clock string that is not a valid HH:mm time.
type ErrInvalidClock struct {
	Value string
}

func (e ErrInvalidClock) Error() string {
	return fmt.Sprintf("clinictime: invalid time %q, want HH:mm", e.Value)
}

// Zone is the clinic's fixed civil timezone.
type Zone struct {
	loc *time.Location
}

// NewZone builds a Zone from an offset in minutes east of UTC.
func NewZone(offsetMinutes int) Zone {
	name := fmt.Sprintf("UTC%+03d:%02d", offsetMinutes/60, abs(offsetMinutes%60))
	return Zone{loc: time.FixedZone(name, offsetMinutes*60)}
}

// Location exposes the underlying fixed location.
func (z Zone) Location() *time.Location {
	return z.loc
}

// CivilMidnight returns the absolute instant of 00:00 local time for a
// YYYY-MM-DD date string.
func (z Zone) CivilMidnight(date string) (time.Time, error) {
	if !dateRe.MatchString(date) {
		return time.Time{}, ErrInvalidDate{Value: date}
	}
	t, err := time.ParseInLocation(time.DateOnly, date, z.loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate{Value: date}
	}
	// time.Parse normalizes out-of-range components (2025-02-30 → March 2),
	// which must be rejected rather than silently shifted.
	if t.Format(time.DateOnly) != date {
		return time.Time{}, ErrInvalidDate{Value: date}
	}
	return t, nil
}

// DayBounds returns the half-open instant interval [midnight, midnight+24h)
// covering the given local calendar day.
func (z Zone) DayBounds(date string) (time.Time, time.Time, error) {
	start, err := z.CivilMidnight(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(24 * time.Hour), nil
}

// At combines a stored local-midnight instant with a local HH:mm clock time,
// producing the absolute instant of that local moment.
func (z Zone) At(dayInstant time.Time, clock string) (time.Time, error) {
	if !clockRe.MatchString(clock) {
		return time.Time{}, ErrInvalidClock{Value: clock}
	}
	var hh, mm int
	fmt.Sscanf(clock, "%02d:%02d", &hh, &mm)
	return dayInstant.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute), nil
}

// TodayBounds returns DayBounds for the local calendar day containing now.
// Recomputed from the supplied instant on every call so it always reflects
// wall-clock today.
func (z Zone) TodayBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(z.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, z.loc)
	return start, start.Add(24 * time.Hour)
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD calendar date.
func (z Zone) ValidDate(s string) bool {
	_, err := z.CivilMidnight(s)
	return err == nil
}

// ValidClock reports whether s is a well-formed HH:mm clock time.
func ValidClock(s string) bool {
	return clockRe.MatchString(s)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
