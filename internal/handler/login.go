package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/middleware"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/ratelimit"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/service"
	"github.com/shlee8313/4-social-insurnace-sub001/pkg/config"
)

// LoginRequest represents login credentials. The identifier matches
// either the username or the email address.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginHandler handles user authentication
type LoginHandler struct {
	auth    *service.AuthService
	limiter *ratelimit.Limiter
	config  *config.Config
	logger  *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(auth *service.AuthService, limiter *ratelimit.Limiter, cfg *config.Config, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &LoginHandler{
		auth:    auth,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}
}

// ServeHTTP handles POST /api/auth/login requests
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Login gets its own tighter limit on top of the global one
	if h.limiter != nil && !h.limiter.AllowStrict(middleware.ClientIdentifier(r), h.config.LoginLimitPerMinute, time.Minute) {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many login attempts, try again later")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode login request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	result, err := h.auth.Authenticate(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.logger.Info("user logged in",
		slog.String("user_id", result.User.ID),
		slog.String("entity_type", string(result.EffectiveStatus.EntityType)),
	)

	setSessionCookies(w, h.config, result.AccessToken, result.RefreshToken)
	writeJSON(w, http.StatusOK, result)
}

func (h *LoginHandler) writeAuthError(w http.ResponseWriter, err error) {
	var locked *service.AccountLockedError
	var unverified *service.EmailNotVerifiedError

	switch {
	case errors.Is(err, service.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "MISSING_CREDENTIALS", "identifier and password are required")
	case errors.As(err, &locked):
		writeErrorDetails(w, http.StatusLocked, "ACCOUNT_LOCKED", "account is temporarily locked", map[string]interface{}{
			"lockedUntil": locked.LockedUntil.Format(time.RFC3339),
		})
	case errors.As(err, &unverified):
		writeErrorDetails(w, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "email address is not verified", map[string]interface{}{
			"maskedEmail": unverified.MaskedEmail,
			"canResend":   unverified.CanResend,
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		// Generic message to prevent user enumeration
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
	default:
		h.logger.Error("login failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "login failed")
	}
}
