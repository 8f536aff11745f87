package recurrence

import (
	"errors"
	"time"

	"github.com/example/dojo-portal/internal/booking"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates a class every day within the range.
	FrequencyDaily
	// FrequencyWeekly generates a class on the selected weekdays.
	FrequencyWeekly
)

// MaxOccurrences bounds the size of a single expanded series.
const MaxOccurrences = 366

// Rule describes a recurring class series over calendar days.
type Rule struct {
	Frequency Frequency
	Weekdays  []time.Weekday
	StartsOn  booking.Day
	EndsOn    *booking.Day
}

// GenerateOptions defines optional range bounds for day generation.
type GenerateOptions struct {
	RangeStart *booking.Day
	RangeEnd   *booking.Day
}

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates the generation window is unbounded.
var ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")

// ErrTooManyOccurrences indicates the series would exceed MaxOccurrences days.
var ErrTooManyOccurrences = errors.New("recurrence: series exceeds the occurrence limit")

// ExpandDays lists the calendar days a rule produces, in ascending order.
//
// The window is bounded by the rule's EndsOn and the optional range end, and
// starts at the later of StartsOn and the optional range start. Weekly rules
// require at least one weekday; daily rules may optionally filter by weekday.
func ExpandDays(rule Rule, opts GenerateOptions) ([]booking.Day, error) {
	if rule.Frequency != FrequencyDaily && rule.Frequency != FrequencyWeekly {
		return nil, ErrInvalidFrequency
	}

	var upper booking.Day
	hasUpper := false
	if rule.EndsOn != nil {
		upper = *rule.EndsOn
		hasUpper = true
	}
	if opts.RangeEnd != nil {
		if !hasUpper || opts.RangeEnd.Before(upper) {
			upper = *opts.RangeEnd
		}
		hasUpper = true
	}
	if !hasUpper {
		return nil, ErrInvalidWindow
	}

	lower := rule.StartsOn
	if opts.RangeStart != nil && opts.RangeStart.After(lower) {
		lower = *opts.RangeStart
	}
	if lower.After(upper) {
		return nil, nil
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}

	days := make([]booking.Day, 0)
	for current := lower; !current.After(upper); current = current.AddDays(1) {
		if !shouldInclude(rule.Frequency, weekdaySet, current.Weekday()) {
			continue
		}
		if len(days) == MaxOccurrences {
			return nil, ErrTooManyOccurrences
		}
		days = append(days, current)
	}

	return days, nil
}

func shouldInclude(freq Frequency, weekdaySet map[time.Weekday]struct{}, day time.Weekday) bool {
	if len(weekdaySet) == 0 {
		return freq == FrequencyDaily
	}
	_, ok := weekdaySet[day]
	return ok
}
