package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/service"
	"github.com/shlee8313/4-social-insurnace-sub001/pkg/config"
)

// RefreshRequest carries the refresh token when it is not sent as a cookie
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshHandler rotates refresh tokens and issues a new token pair
type RefreshHandler struct {
	auth   *service.AuthService
	config *config.Config
	logger *slog.Logger
}

// NewRefreshHandler creates a new refresh handler
func NewRefreshHandler(auth *service.AuthService, cfg *config.Config, logger *slog.Logger) *RefreshHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &RefreshHandler{
		auth:   auth,
		config: cfg,
		logger: logger,
	}
}

// ServeHTTP handles POST /api/auth/refresh requests. The token is read
// from the request body, falling back to the refreshToken cookie.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RefreshRequest
	if r.Body != nil {
		// Body is optional, decode errors fall through to the cookie
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.RefreshToken == "" {
		if cookie, err := r.Cookie("refreshToken"); err == nil {
			req.RefreshToken = cookie.Value
		}
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "MISSING_REFRESH_TOKEN", "refresh token is required")
		return
	}

	result, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		// A rotated or replayed token invalidates the whole session,
		// so the stale cookies are cleared as well.
		clearSessionCookies(w, h.config)
		if errors.Is(err, service.ErrSessionInvalid) {
			writeError(w, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "session is invalid or expired")
			return
		}
		h.logger.Error("token refresh failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "token refresh failed")
		return
	}

	h.logger.Info("session refreshed", slog.String("user_id", result.User.ID))

	setSessionCookies(w, h.config, result.AccessToken, result.RefreshToken)
	writeJSON(w, http.StatusOK, result)
}
