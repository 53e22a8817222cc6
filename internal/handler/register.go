package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/service"
)

// RegisterHandler handles self-service account registration
type RegisterHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

// NewRegisterHandler creates a new registration handler
func NewRegisterHandler(accounts *service.AccountService, logger *slog.Logger) *RegisterHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &RegisterHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// ServeHTTP handles POST /api/auth/register requests
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode registration request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	result, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRegistration):
			writeError(w, http.StatusBadRequest, "INVALID_REGISTRATION", err.Error())
		case errors.Is(err, service.ErrDuplicateAccount):
			writeError(w, http.StatusConflict, "DUPLICATE_ACCOUNT", err.Error())
		default:
			h.logger.Error("registration failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "registration failed")
		}
		return
	}

	h.logger.Info("account registered",
		slog.String("user_id", result.UserID),
		slog.String("organization_id", result.OrganizationID),
		slog.String("role_code", result.RoleCode),
	)

	writeJSON(w, http.StatusCreated, result)
}
