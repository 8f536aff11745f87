package booking

import (
	"errors"
	"fmt"
	"time"
)

// DayLayout is the canonical ISO 8601 date-only key used for every day comparison.
const DayLayout = "2006-01-02"

// ErrInvalidDay indicates a day key could not be parsed.
var ErrInvalidDay = errors.New("booking: invalid day")

// Day is a timezone-naive calendar day. Two Days are equal exactly when their
// canonical keys are equal, independent of any time zone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDay normalises the supplied components, so NewDay(2024, 2, 30) is March 1st.
func NewDay(year int, month time.Month, day int) Day {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDay parses a YYYY-MM-DD key.
func ParseDay(value string) (Day, error) {
	t, err := time.Parse(DayLayout, value)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, value)
	}
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DayIn returns the calendar day the instant falls on in loc. A nil loc means UTC.
func DayIn(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

// FormatDateToString returns the canonical day key of t as observed in t's own
// location. Callers convert the instant with t.In(loc) first; no implicit UTC
// conversion happens here.
func FormatDateToString(t time.Time) string {
	return t.Format(DayLayout)
}

// String returns the canonical YYYY-MM-DD key.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool {
	return d == Day{}
}

// Time returns midnight of the day in loc.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays returns the day n calendar days after d.
func (d Day) AddDays(n int) Day {
	return NewDay(d.Year, d.Month, d.Day+n)
}

// Weekday returns the day of the week.
func (d Day) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// Before reports whether d is earlier than other.
func (d Day) Before(other Day) bool {
	return d.String() < other.String()
}

// After reports whether d is later than other.
func (d Day) After(other Day) bool {
	return other.Before(d)
}
