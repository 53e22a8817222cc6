package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/service"
)

// PasswordResetRequest covers both phases of the reset flow: a request
// with only an email starts the flow, a request with a token and a new
// password completes it.
type PasswordResetRequest struct {
	Email       string `json:"email,omitempty"`
	Token       string `json:"token,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
}

// PasswordResetHandler handles password reset requests
type PasswordResetHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewPasswordResetHandler creates a new password reset handler
func NewPasswordResetHandler(auth *service.AuthService, logger *slog.Logger) *PasswordResetHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &PasswordResetHandler{
		auth:   auth,
		logger: logger,
	}
}

// ServeHTTP handles POST /api/auth/password-reset requests
func (h *PasswordResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PasswordResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode reset request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	if req.Token != "" {
		h.confirm(w, r, req)
		return
	}

	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "email or token is required")
		return
	}

	// Always the same response, whether or not the email exists
	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error("password reset request failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the address exists, a reset link has been sent",
	})
}

func (h *PasswordResetHandler) confirm(w http.ResponseWriter, r *http.Request, req PasswordResetRequest) {
	if err := h.auth.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RESET_TOKEN", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}
