package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/dojo-portal/internal/booking"
)

// MaxAvailabilityRangeDays bounds a calendar availability query.
const MaxAvailabilityRangeDays = 62

// EventLister reads scheduled events for a day range.
type EventLister interface {
	ListEvents(ctx context.Context, from, to booking.Day) ([]booking.Event, error)
}

// BookingService answers availability questions for the booking calendar.
type BookingService struct {
	events   EventLister
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewBookingService wires dependencies for the booking service.
func NewBookingService(events EventLister, location *time.Location, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(events, location, now, nil)
}

// NewBookingServiceWithLogger wires dependencies for the booking service with
// a specified logger. A nil location selects UTC.
func NewBookingServiceWithLogger(events EventLister, location *time.Location, now func() time.Time, logger *slog.Logger) *BookingService {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		events:   events,
		location: location,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Today returns the current calendar day in the school's time zone.
func (s *BookingService) Today() booking.Day {
	return booking.DayIn(s.now(), s.location)
}

// TimeSlots returns the hourly slots of day filtered by session type.
func (s *BookingService) TimeSlots(ctx context.Context, day booking.Day, filter booking.Filter) ([]booking.TimeSlot, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if !filter.Valid() {
		return nil, fieldError("type", "type must be online, special, online-individual or online-group")
	}

	events, err := s.eventsBetween(ctx, "TimeSlots", day, day)
	if err != nil {
		return nil, err
	}
	return booking.GenerateTimeSlots(day, filter, events), nil
}

// DayFullyBooked reports whether every event on day is at capacity.
func (s *BookingService) DayFullyBooked(ctx context.Context, day booking.Day) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("BookingService is nil")
	}

	events, err := s.eventsBetween(ctx, "DayFullyBooked", day, day)
	if err != nil {
		return false, err
	}
	return booking.IsDateFullyBooked(day, events), nil
}

// FullyBookedDays lists the days between from and to inclusive that are fully booked.
func (s *BookingService) FullyBookedDays(ctx context.Context, from, to booking.Day) ([]booking.Day, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	if to.Before(from) {
		return nil, fieldError("to", "end day must not be before start day")
	}
	if to.After(from.AddDays(MaxAvailabilityRangeDays - 1)) {
		return nil, fieldError("to", fmt.Sprintf("range cannot exceed %d days", MaxAvailabilityRangeDays))
	}

	events, err := s.eventsBetween(ctx, "FullyBookedDays", from, to)
	if err != nil {
		return nil, err
	}

	days := make([]booking.Day, 0)
	for day := from; !day.After(to); day = day.AddDays(1) {
		if booking.IsDateFullyBooked(day, events) {
			days = append(days, day)
		}
	}
	return days, nil
}

func (s *BookingService) eventsBetween(ctx context.Context, operation string, from, to booking.Day) ([]booking.Event, error) {
	if s.events == nil {
		return nil, nil
	}
	events, err := s.events.ListEvents(ctx, from, to)
	if err != nil {
		s.loggerWith(ctx, operation, "from", from.String(), "to", to.String()).
			ErrorContext(ctx, "failed to load events", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return events, nil
}
