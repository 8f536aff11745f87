package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/dojo-portal/internal/application"
)

type accountService interface {
	Provision(ctx context.Context, params application.ProvisionAccountParams) (application.User, error)
	ListAccounts(ctx context.Context, principal application.Principal) ([]application.User, error)
}

type AccountHandler struct {
	service   accountService
	responder responder
	logger    *slog.Logger
}

func NewAccountHandler(service accountService, logger *slog.Logger) *AccountHandler {
	base := defaultLogger(logger)
	return &AccountHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AccountHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AccountHandler", operation, attrs...)
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	users, err := h.service.ListAccounts(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "failed to list accounts", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := make([]accountDTO, 0, len(users))
	for _, user := range users {
		resp = append(resp, toAccountDTO(user))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, nil)
		return
	}

	var req accountRequest
	if err := decodeRequest(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid account request", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger := h.log(r.Context(), "Create", "role", req.Role)

	user, err := h.service.Provision(r.Context(), application.ProvisionAccountParams{
		Principal: principal,
		Input: application.AccountInput{
			Email:       req.Email,
			DisplayName: req.DisplayName,
			Role:        application.Role(req.Role),
			Password:    req.Password,
		},
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "account provisioning failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "account provisioned", "user_id", user.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAccountDTO(user))
}

type accountRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=120"`
	Role        string `json:"role" validate:"required,oneof=student instructor admin"`
	Password    string `json:"password" validate:"required,pwd"`
}

func (req *accountRequest) normalize() {
	req.Email = strings.TrimSpace(req.Email)
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
}

type accountDTO struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Disabled    bool   `json:"disabled"`
	CreatedAt   string `json:"created_at"`
}

func toAccountDTO(user application.User) accountDTO {
	return accountDTO{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Disabled:    user.Disabled,
		CreatedAt:   user.CreatedAt.UTC().Format(time.RFC3339),
	}
}
