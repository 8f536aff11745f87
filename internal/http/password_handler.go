package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/dojo-portal/internal/application"
	"github.com/example/dojo-portal/internal/passwordpolicy"
)

type passwordStatusService interface {
	CheckPasswordStatus(ctx context.Context, userID string) passwordpolicy.Status
}

type passwordChangeService interface {
	ChangePassword(ctx context.Context, params application.ChangePasswordParams) (application.ChangePasswordResult, error)
	CancelForcedReset(ctx context.Context, token string) error
}

// PasswordHandler serves the password status, change and forced reset endpoints.
type PasswordHandler struct {
	status    passwordStatusService
	changes   passwordChangeService
	responder responder
	logger    *slog.Logger
}

func NewPasswordHandler(status passwordStatusService, changes passwordChangeService, logger *slog.Logger) *PasswordHandler {
	base := defaultLogger(logger)
	return &PasswordHandler{status: status, changes: changes, responder: newResponder(base), logger: base}
}

func (h *PasswordHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PasswordHandler", operation, attrs...)
}

func (h *PasswordHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.status == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	status := h.status.CheckPasswordStatus(r.Context(), principal.UserID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPasswordStatusDTO(status))
}

// Update replaces the caller's password. A forced reset session is released
// and the response names the dashboard to continue to.
func (h *PasswordHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.changes == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req passwordChangeRequest
	if err := decodeRequest(r, &req); err != nil {
		h.log(r.Context(), "Update", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid password change request", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Update", "forced", principal.ResetRequired)

	result, err := h.changes.ChangePassword(r.Context(), application.ChangePasswordParams{
		Token:     extractTokenFromRequest(r),
		Principal: principal,
		Password:  req.Password,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "password change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "password changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, passwordChangeResponse{Destination: result.Destination})
}

// CancelReset abandons a forced reset and signs the session out.
func (h *PasswordHandler) CancelReset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.changes == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "CancelReset")

	if err := h.changes.CancelForcedReset(r.Context(), extractTokenFromRequest(r)); err != nil {
		logger.ErrorContext(r.Context(), "failed to cancel reset", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	clearSessionCookie(w)
	logger.InfoContext(r.Context(), "forced reset cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type passwordChangeRequest struct {
	Password     string `json:"password" validate:"required,pwd"`
	Confirmation string `json:"confirmation" validate:"required,eqfield=Password"`
}

type passwordChangeResponse struct {
	Destination string `json:"destination"`
}

type passwordStatusDTO struct {
	Tracked         bool    `json:"tracked"`
	IsExpired       bool    `json:"is_expired"`
	IsSuspended     bool    `json:"is_suspended"`
	DaysUntilExpiry *int    `json:"days_until_expiry,omitempty"`
	LastChanged     *string `json:"last_changed,omitempty"`
	ExpiryDate      *string `json:"expiry_date,omitempty"`
}

func toPasswordStatusDTO(status passwordpolicy.Status) passwordStatusDTO {
	return passwordStatusDTO{
		Tracked:         status.Tracked,
		IsExpired:       status.IsExpired,
		IsSuspended:     status.IsSuspended,
		DaysUntilExpiry: status.DaysUntilExpiry,
		LastChanged:     formatOptionalTime(status.LastChanged),
		ExpiryDate:      formatOptionalTime(status.ExpiryDate),
	}
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}
