package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/booking"
	"github.com/example/dojo-portal/internal/recurrence"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (booking.Event, error)
	CreateSeries(ctx context.Context, params application.CreateSeriesParams) (application.SeriesResult, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	ListEvents(ctx context.Context, from, to booking.Day) ([]booking.Event, error)
	Register(ctx context.Context, principal application.Principal, eventID string) (booking.Event, error)
}

// EventHandler exposes the class calendar.
type EventHandler struct {
	service   eventService
	today     func() booking.Day
	responder responder
	logger    *slog.Logger
}

// NewEventHandler builds an EventHandler. today supplies the default day for
// listings without a date; nil selects the current UTC day.
func NewEventHandler(service eventService, today func() booking.Day, logger *slog.Logger) *EventHandler {
	if today == nil {
		today = func() booking.Day { return booking.DayIn(time.Now(), time.UTC) }
	}
	base := defaultLogger(logger)
	return &EventHandler{service: service, today: today, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, to, err := dayRangeFromQuery(r, h.today())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	events, err := h.service.ListEvents(r.Context(), from, to)
	if err != nil {
		h.log(r.Context(), "List", "from", from.String(), "to", to.String()).ErrorContext(r.Context(), "failed to list events", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := make([]eventDTO, 0, len(events))
	for _, event := range events {
		resp = append(resp, toEventDTO(event))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	var req eventRequest
	if err := decodeRequest(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid event request", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	event, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventDTO(event))
}

// CreateSeries schedules a recurring class. Days whose slot is already taken
// are listed under "skipped" rather than failing the request.
func (h *EventHandler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	var req seriesRequest
	if err := decodeRequest(r, &req); err != nil {
		h.log(r.Context(), "CreateSeries", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid series request", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	rule := recurrence.Rule{
		Frequency: parseFrequency(req.Frequency),
		Weekdays:  parseWeekdays(req.Weekdays),
	}
	if endsOn, err := booking.ParseDay(req.EndsOn); err == nil {
		rule.EndsOn = &endsOn
	}

	result, err := h.service.CreateSeries(r.Context(), application.CreateSeriesParams{
		Principal: principal,
		Input:     req.eventRequest.toInput(),
		Rule:      rule,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := seriesResponse{
		Created: make([]eventDTO, 0, len(result.Created)),
		Skipped: make([]string, 0, len(result.Skipped)),
	}
	for _, event := range result.Created {
		resp.Created = append(resp.Created, toEventDTO(event))
	}
	for _, day := range result.Skipped {
		resp.Skipped = append(resp.Skipped, day.String())
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resp)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	event, err := h.service.Register(r.Context(), principal, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toEventDTO(event))
}

type eventRequest struct {
	Date     string `json:"date" validate:"required,isodate"`
	Time     string `json:"time" validate:"required"`
	Location string `json:"location" validate:"max=200"`
	Capacity int    `json:"capacity" validate:"min=0"`
	Type     string `json:"type" validate:"required,oneof=special online-individual online-group"`
}

func (req *eventRequest) normalize() {
	req.Date = strings.TrimSpace(req.Date)
	req.Location = strings.TrimSpace(req.Location)
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
}

func (req eventRequest) toInput() application.EventInput {
	day, _ := booking.ParseDay(req.Date)
	return application.EventInput{
		Day:      day,
		Time:     req.Time,
		Location: req.Location,
		Capacity: req.Capacity,
		Type:     booking.SessionType(req.Type),
	}
}

type seriesRequest struct {
	eventRequest
	Frequency string   `json:"frequency" validate:"required,oneof=daily weekly"`
	Weekdays  []string `json:"weekdays" validate:"required_if=Frequency weekly,dive,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	EndsOn    string   `json:"ends_on" validate:"required,isodate"`
}

func (req *seriesRequest) normalize() {
	req.eventRequest.normalize()
	req.Frequency = strings.ToLower(strings.TrimSpace(req.Frequency))
	req.EndsOn = strings.TrimSpace(req.EndsOn)
	for i, day := range req.Weekdays {
		req.Weekdays[i] = strings.ToLower(strings.TrimSpace(day))
	}
}

type seriesResponse struct {
	Created []eventDTO `json:"created"`
	Skipped []string   `json:"skipped"`
}

type eventDTO struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Location        string `json:"location,omitempty"`
	Capacity        int    `json:"capacity"`
	RegisteredUsers int    `json:"registered_users"`
	Type            string `json:"type"`
}

func toEventDTO(event booking.Event) eventDTO {
	return eventDTO{
		ID:              event.ID,
		Date:            event.Day.String(),
		Time:            event.Time,
		Location:        event.Location,
		Capacity:        event.Capacity,
		RegisteredUsers: event.RegisteredUsers,
		Type:            string(event.Type),
	}
}

func parseFrequency(value string) recurrence.Frequency {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "daily":
		return recurrence.FrequencyDaily
	case "weekly":
		return recurrence.FrequencyWeekly
	default:
		return recurrence.FrequencyUnspecified
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(values []string) []time.Weekday {
	weekdays := make([]time.Weekday, 0, len(values))
	for _, value := range values {
		if weekday, ok := weekdayNames[strings.ToLower(strings.TrimSpace(value))]; ok {
			weekdays = append(weekdays, weekday)
		}
	}
	return weekdays
}
