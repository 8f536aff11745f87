package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/booking"
)

type bookingService interface {
	Today() booking.Day
	TimeSlots(ctx context.Context, day booking.Day, filter booking.Filter) ([]booking.TimeSlot, error)
	FullyBookedDays(ctx context.Context, from, to booking.Day) ([]booking.Day, error)
}

// BookingHandler serves the hourly slot grid and the fully booked calendar marks.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// Slots answers GET /slots?date=YYYY-MM-DD&type=online.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	day, err := dayFromQuery(r, "date", h.service.Today())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	filter := booking.Filter(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))

	slots, err := h.service.TimeSlots(r.Context(), day, filter)
	if err != nil {
		h.log(r.Context(), "Slots", "date", day.String(), "type", filter).ErrorContext(r.Context(), "failed to build slots", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := slotsResponse{
		Date:  day.String(),
		Slots: make([]timeSlotDTO, 0, len(slots)),
	}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, timeSlotDTO{
			ID:              slot.ID,
			Time:            slot.Time,
			Available:       slot.Available,
			Capacity:        slot.Capacity,
			RegisteredUsers: slot.RegisteredUsers,
			Type:            string(slot.Type),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Availability answers GET /availability?date= or ?from=&to= with the days
// in range where every scheduled event is full.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, to, err := dayRangeFromQuery(r, h.service.Today())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	days, err := h.service.FullyBookedDays(r.Context(), from, to)
	if err != nil {
		h.log(r.Context(), "Availability", "from", from.String(), "to", to.String()).ErrorContext(r.Context(), "failed to compute availability", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := availabilityResponse{
		From:        from.String(),
		To:          to.String(),
		FullyBooked: make([]string, 0, len(days)),
	}
	for _, day := range days {
		resp.FullyBooked = append(resp.FullyBooked, day.String())
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type timeSlotDTO struct {
	ID              string `json:"id,omitempty"`
	Time            string `json:"time"`
	Available       bool   `json:"available"`
	Capacity        int    `json:"capacity"`
	RegisteredUsers int    `json:"registered_users"`
	Type            string `json:"type,omitempty"`
}

type slotsResponse struct {
	Date  string        `json:"date"`
	Slots []timeSlotDTO `json:"slots"`
}

type availabilityResponse struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	FullyBooked []string `json:"fully_booked"`
}

func dayFromQuery(r *http.Request, key string, fallback booking.Day) (booking.Day, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback, nil
	}
	day, err := booking.ParseDay(value)
	if err != nil {
		return booking.Day{}, &application.ValidationError{FieldErrors: map[string]string{
			key: key + " must be a date in YYYY-MM-DD format",
		}}
	}
	return day, nil
}

// dayRangeFromQuery reads either date= for a single day or from=&to= for a
// range. Missing bounds fall back to today and to the start day.
func dayRangeFromQuery(r *http.Request, today booking.Day) (booking.Day, booking.Day, error) {
	if r.URL.Query().Has("date") {
		day, err := dayFromQuery(r, "date", today)
		return day, day, err
	}

	from, err := dayFromQuery(r, "from", today)
	if err != nil {
		return booking.Day{}, booking.Day{}, err
	}
	to, err := dayFromQuery(r, "to", from)
	if err != nil {
		return booking.Day{}, booking.Day{}, err
	}
	return from, to, nil
}
