package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits structured audit events for security-relevant actions
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates an audit logger
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

// LogAction records a generic audit event
func (al *Logger) LogAction(ctx context.Context, actorID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID := ctx.Value("request_id"); reqID != nil {
		requestID, _ = reqID.(string)
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

// LogStatusChange records a status transition attempt against a user
func (al *Logger) LogStatusChange(ctx context.Context, actorID, targetUserID, newStatus, path, status, details string) {
	al.LogAction(ctx, actorID, "status_change:"+newStatus+":"+path, "user", targetUserID, status, details)
}

// LogLogin records a login attempt outcome
func (al *Logger) LogLogin(ctx context.Context, userID, identifier, status, details string) {
	al.LogAction(ctx, userID, "login", "session", identifier, status, details)
}

// LogTokenRefresh records a refresh token rotation
func (al *Logger) LogTokenRefresh(ctx context.Context, userID, status string) {
	al.LogAction(ctx, userID, "token_refresh", "session", "", status, "")
}

// LogDenied records a rejected request
func (al *Logger) LogDenied(ctx context.Context, actorID, reason string) {
	al.LogAction(ctx, actorID, "access_denied", "api", "", "denied", reason)
}
