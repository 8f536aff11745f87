package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/dojo-portal/internal/booking"
	"github.com/example/dojo-portal/internal/recurrence"
)

// EventRepository captures the persistence operations needed by the event services.
type EventRepository interface {
	CreateEvent(ctx context.Context, event booking.Event, createdAt time.Time) (booking.Event, error)
	GetEvent(ctx context.Context, id string) (booking.Event, error)
	ListEvents(ctx context.Context, from, to booking.Day) ([]booking.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	IncrementRegistrations(ctx context.Context, id string, ceiling int, updatedAt time.Time) (booking.Event, error)
}

// EventService manages the class calendar and registrations.
type EventService struct {
	events      EventRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for the event service.
func NewEventService(events EventRepository, idGenerator func() string, now func() time.Time) *EventService {
	return NewEventServiceWithLogger(events, idGenerator, now, nil)
}

// NewEventServiceWithLogger wires dependencies for the event service with a specified logger.
func NewEventServiceWithLogger(events EventRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &EventService{
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *EventService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "EventService", operation, attrs...)
}

// CreateEvent validates input and schedules a single event.
func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (event booking.Event, err error) {
	if s == nil {
		return booking.Event{}, fmt.Errorf("EventService is nil")
	}

	logger := s.loggerWith(ctx, "CreateEvent", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("event_id", event.ID, "day", event.Day.String(), "time", event.Time).InfoContext(ctx, "event created")
	}()

	if !params.Principal.CanManageEvents() {
		err = ErrUnauthorized
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	var normalized EventInput
	normalized, err = normalizeEventInput(params.Input)
	if err != nil {
		return
	}

	event, err = s.create(ctx, normalized, normalized.Day)
	return
}

// CreateSeries schedules the same class on every day a recurrence rule
// produces. Days whose slot is already occupied are skipped and reported.
func (s *EventService) CreateSeries(ctx context.Context, params CreateSeriesParams) (result SeriesResult, err error) {
	if s == nil {
		return SeriesResult{}, fmt.Errorf("EventService is nil")
	}

	logger := s.loggerWith(ctx, "CreateSeries", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "series creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "series created", "created", len(result.Created), "skipped", len(result.Skipped))
	}()

	if !params.Principal.CanManageEvents() {
		err = ErrUnauthorized
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	rule := params.Rule
	if rule.StartsOn.IsZero() {
		rule.StartsOn = params.Input.Day
	}
	params.Input.Day = rule.StartsOn

	var normalized EventInput
	normalized, err = normalizeEventInput(params.Input)
	if err != nil {
		return
	}

	var days []booking.Day
	days, err = recurrence.ExpandDays(rule, recurrence.GenerateOptions{})
	if err != nil {
		err = seriesRuleError(err)
		return
	}

	for _, day := range days {
		var event booking.Event
		event, err = s.create(ctx, normalized, day)
		if errors.Is(err, ErrSlotTaken) {
			result.Skipped = append(result.Skipped, day)
			err = nil
			continue
		}
		if err != nil {
			return
		}
		result.Created = append(result.Created, event)
	}
	return
}

// DeleteEvent removes an event for instructors and administrators.
func (s *EventService) DeleteEvent(ctx context.Context, principal Principal, eventID string) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if !principal.CanManageEvents() {
		return ErrUnauthorized
	}
	if s.events == nil {
		return fmt.Errorf("event repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteEvent", "principal_id", principal.UserID, "event_id", eventID)
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		logger.ErrorContext(ctx, "event deletion failed", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "event deleted")
	return nil
}

// ListEvents returns the events scheduled between from and to inclusive.
func (s *EventService) ListEvents(ctx context.Context, from, to booking.Day) ([]booking.Event, error) {
	if s == nil {
		return nil, fmt.Errorf("EventService is nil")
	}
	if s.events == nil {
		return nil, nil
	}
	if to.Before(from) {
		return nil, fieldError("to", "end day must not be before start day")
	}

	events, err := s.events.ListEvents(ctx, from, to)
	if err != nil {
		s.loggerWith(ctx, "ListEvents").ErrorContext(ctx, "failed to list events", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return events, nil
}

// Register books one place on an event while it is below its effective capacity.
func (s *EventService) Register(ctx context.Context, principal Principal, eventID string) (event booking.Event, err error) {
	if s == nil {
		return booking.Event{}, fmt.Errorf("EventService is nil")
	}

	logger := s.loggerWith(ctx, "Register", "principal_id", principal.UserID, "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "registration failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "registration accepted", "registered_users", event.RegisteredUsers)
	}()

	if principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if s.events == nil {
		err = fmt.Errorf("event repository not configured")
		return
	}

	event, err = s.events.GetEvent(ctx, eventID)
	if err != nil {
		return
	}
	if !event.HasRoom() {
		err = ErrCapacityReached
		return
	}

	ceiling := booking.EffectiveCapacity(event.Type, event.Capacity)
	event, err = s.events.IncrementRegistrations(ctx, eventID, ceiling, s.now())
	return
}

func (s *EventService) create(ctx context.Context, input EventInput, day booking.Day) (booking.Event, error) {
	event := booking.Event{
		ID:       s.idGenerator(),
		Day:      day,
		Time:     input.Time,
		Location: input.Location,
		Capacity: input.Capacity,
		Type:     input.Type,
	}

	created, err := s.events.CreateEvent(ctx, event, s.now())
	if errors.Is(err, ErrAlreadyExists) {
		return booking.Event{}, ErrSlotTaken
	}
	return created, err
}

func normalizeEventInput(input EventInput) (EventInput, error) {
	vErr := &ValidationError{}
	normalized := EventInput{
		Day:      input.Day,
		Location: strings.TrimSpace(input.Location),
		Capacity: input.Capacity,
		Type:     booking.SessionType(strings.ToLower(strings.TrimSpace(string(input.Type)))),
	}

	if input.Day.IsZero() {
		vErr.add("date", "date is required")
	}

	label, ok := booking.NormalizeTimeLabel(input.Time)
	if !ok {
		vErr.add("time", fmt.Sprintf("time must be a whole hour between %s and %s",
			booking.SlotLabel(booking.FirstSlotHour), booking.SlotLabel(booking.LastSlotHour)))
	}
	normalized.Time = label

	if !normalized.Type.Valid() {
		vErr.add("type", "type must be special, online-individual or online-group")
	}

	switch normalized.Type {
	case booking.SessionSpecial:
		if normalized.Capacity <= 0 {
			vErr.add("capacity", "capacity must be positive for special sessions")
		}
	case booking.SessionOnlineIndividual, booking.SessionOnlineGroup:
		// Online classes always hold their type's ceiling.
		ceiling := booking.EffectiveCapacity(normalized.Type, 0)
		if normalized.Capacity != 0 && normalized.Capacity != ceiling {
			vErr.add("capacity", fmt.Sprintf("capacity is fixed at %d for %s sessions", ceiling, normalized.Type))
		}
		normalized.Capacity = ceiling
	default:
		if normalized.Capacity < 0 {
			vErr.add("capacity", "capacity cannot be negative")
		}
	}

	if vErr.HasErrors() {
		return EventInput{}, vErr
	}
	return normalized, nil
}

func seriesRuleError(err error) error {
	switch {
	case errors.Is(err, recurrence.ErrInvalidFrequency):
		return fieldError("frequency", "frequency must be daily or weekly")
	case errors.Is(err, recurrence.ErrInvalidWindow):
		return fieldError("ends_on", "series requires an end date")
	case errors.Is(err, recurrence.ErrTooManyOccurrences):
		return fieldError("ends_on", fmt.Sprintf("series cannot exceed %d classes", recurrence.MaxOccurrences))
	}
	return err
}
