package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/dojo-portal/internal/application"
)

type sweepRunner interface {
	RunOnce(ctx context.Context) (application.SweepReport, error)
}

// AdminHandler exposes maintenance operations to administrators.
type AdminHandler struct {
	sweeper   sweepRunner
	responder responder
	logger    *slog.Logger
}

func NewAdminHandler(sweeper sweepRunner, logger *slog.Logger) *AdminHandler {
	base := defaultLogger(logger)
	return &AdminHandler{sweeper: sweeper, responder: newResponder(base), logger: base}
}

// RunSweep triggers the password sweep outside its schedule.
func (h *AdminHandler) RunSweep(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.sweeper == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if !principal.IsAdmin() {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "AdminHandler", "RunSweep")

	report, err := h.sweeper.RunOnce(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "manual sweep failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sweepReportDTO{
		Reminded:  report.Reminded,
		Suspended: report.Suspended,
		Failed:    report.Failed,
	})
}

type sweepReportDTO struct {
	Reminded  int `json:"reminded"`
	Suspended int `json:"suspended"`
	Failed    int `json:"failed"`
}
