package booking

import (
	"sort"
	"strings"
	"time"
)

// SessionType classifies a bookable event.
type SessionType string

const (
	// SessionSpecial is an in-person session limited by its own capacity.
	SessionSpecial SessionType = "special"
	// SessionOnlineIndividual is a one-to-one online lesson block.
	SessionOnlineIndividual SessionType = "online-individual"
	// SessionOnlineGroup is a group online class.
	SessionOnlineGroup SessionType = "online-group"
)

const (
	onlineIndividualCeiling = 10
	onlineGroupCeiling      = 20

	// FirstSlotHour is the hour of the first bookable slot.
	FirstSlotHour = 9
	// LastSlotHour is the hour of the last bookable slot.
	LastSlotHour = 20
	// SlotsPerDay is the number of hourly slots produced for every day.
	SlotsPerDay = LastSlotHour - FirstSlotHour + 1
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	switch t {
	case SessionSpecial, SessionOnlineIndividual, SessionOnlineGroup:
		return true
	}
	return false
}

// Filter narrows events by session type. The empty filter matches everything
// and FilterOnline matches both online variants.
type Filter string

const (
	FilterAll    Filter = ""
	FilterOnline Filter = "online"
)

// Matches reports whether an event of type t passes the filter.
func (f Filter) Matches(t SessionType) bool {
	switch f {
	case FilterAll:
		return true
	case FilterOnline:
		return t == SessionOnlineIndividual || t == SessionOnlineGroup
	default:
		return SessionType(f) == t
	}
}

// Valid reports whether the filter is known.
func (f Filter) Valid() bool {
	return f == FilterAll || f == FilterOnline || SessionType(f).Valid()
}

// Event is a scheduled session on a calendar day at an hourly slot.
type Event struct {
	ID              string
	Day             Day
	Time            string
	Location        string
	Capacity        int
	RegisteredUsers int
	Type            SessionType
}

// TimeSlot is a derived, hour-level availability annotation.
type TimeSlot struct {
	ID              string
	Time            string
	Available       bool
	Capacity        int
	RegisteredUsers int
	Type            SessionType
}

// EffectiveCapacity returns the registration ceiling for a session type.
func EffectiveCapacity(t SessionType, capacity int) int {
	switch t {
	case SessionOnlineIndividual:
		return onlineIndividualCeiling
	case SessionOnlineGroup:
		return onlineGroupCeiling
	default:
		return capacity
	}
}

// HasRoom reports whether the event can take another registration.
func (e Event) HasRoom() bool {
	return e.RegisteredUsers < EffectiveCapacity(e.Type, e.Capacity)
}

// SlotLabel returns the 12-hour clock label for an hour of the day, e.g. "7:00 PM".
func SlotLabel(hour int) string {
	return time.Date(2000, time.January, 1, hour, 0, 0, 0, time.UTC).Format("3:04 PM")
}

// SlotLabels returns the labels of every bookable slot in ascending order.
func SlotLabels() []string {
	labels := make([]string, 0, SlotsPerDay)
	for hour := FirstSlotHour; hour <= LastSlotHour; hour++ {
		labels = append(labels, SlotLabel(hour))
	}
	return labels
}

var labelLayouts = []string{"3:04 PM", "3:04PM", "15:04", "3 PM", "3PM"}

// NormalizeTimeLabel converts loosely formatted clock strings ("19:00",
// "07:00 pm", "7 PM") to the canonical slot label. It reports false when the
// value is not a whole hour inside the bookable range.
func NormalizeTimeLabel(value string) (string, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	for _, layout := range labelLayouts {
		t, err := time.Parse(layout, trimmed)
		if err != nil {
			continue
		}
		if t.Minute() != 0 || t.Hour() < FirstSlotHour || t.Hour() > LastSlotHour {
			return "", false
		}
		return SlotLabel(t.Hour()), true
	}
	return "", false
}

func canonicalLabel(value string) string {
	if label, ok := NormalizeTimeLabel(value); ok {
		return label
	}
	return strings.TrimSpace(value)
}

// EventsOn returns the events on day that pass the filter, preserving input order.
func EventsOn(day Day, filter Filter, events []Event) []Event {
	matched := make([]Event, 0)
	for _, event := range events {
		if event.Day != day || !filter.Matches(event.Type) {
			continue
		}
		matched = append(matched, event)
	}
	return matched
}

// GenerateTimeSlots produces the twelve hourly slots for day. When more than one
// relevant event shares an hour, the event with the lowest ID wins.
func GenerateTimeSlots(day Day, filter Filter, events []Event) []TimeSlot {
	relevant := EventsOn(day, filter, events)
	sort.SliceStable(relevant, func(i, j int) bool { return relevant[i].ID < relevant[j].ID })

	byLabel := make(map[string]Event, len(relevant))
	for _, event := range relevant {
		label := canonicalLabel(event.Time)
		if _, taken := byLabel[label]; taken {
			continue
		}
		byLabel[label] = event
	}

	slots := make([]TimeSlot, 0, SlotsPerDay)
	for hour := FirstSlotHour; hour <= LastSlotHour; hour++ {
		label := SlotLabel(hour)
		event, ok := byLabel[label]
		if !ok {
			slots = append(slots, TimeSlot{
				ID:        day.String() + "-" + label,
				Time:      label,
				Available: true,
				Type:      SessionSpecial,
			})
			continue
		}
		slots = append(slots, TimeSlot{
			ID:              event.ID,
			Time:            label,
			Available:       event.HasRoom(),
			Capacity:        event.Capacity,
			RegisteredUsers: event.RegisteredUsers,
			Type:            event.Type,
		})
	}
	return slots
}

// IsDateFullyBooked reports whether every event on day is at or above its
// effective capacity. A day without events is never fully booked.
func IsDateFullyBooked(day Day, events []Event) bool {
	onDay := EventsOn(day, FilterAll, events)
	if len(onDay) == 0 {
		return false
	}
	for _, event := range onDay {
		if event.HasRoom() {
			return false
		}
	}
	return true
}
