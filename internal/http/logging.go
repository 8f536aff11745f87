package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// handlerLogger prefers the request scoped logger, which RequireSession has
// already tagged with the principal. Without one the principal is added here.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handler, operation string, attrs ...any) *slog.Logger {
	tags := make([]any, 0, len(attrs)+6)
	tags = append(tags, "handler", handler, "operation", operation)

	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
		if principal, ok := PrincipalFromContext(ctx); ok && principal.UserID != "" {
			tags = append(tags, "principal_id", principal.UserID)
		}
	}
	return logger.With(append(tags, attrs...)...)
}
