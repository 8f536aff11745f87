package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/dojo-portal/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func serviceLogger(ctx context.Context, base *slog.Logger, service, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}
	tags := append([]any{"service", service, "operation", operation}, attrs...)
	return logger.With(tags...)
}

// errorKinds is checked in order; wrapped errors match their first sentinel.
var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrAccountDisabled, "account_disabled"},
	{ErrSessionExpired, "session_expired"},
	{ErrSessionRevoked, "session_revoked"},
	{ErrPasswordResetRequired, "password_reset_required"},
	{ErrCapacityReached, "capacity_reached"},
	{ErrSlotTaken, "slot_taken"},
}

// ErrorKind returns the stable log label for err: the sentinel it wraps,
// "validation" for a *ValidationError, "unexpected" otherwise.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, candidate := range errorKinds {
		if errors.Is(err, candidate.err) {
			return candidate.kind
		}
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}
