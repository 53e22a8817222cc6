package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/engine"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/middleware"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/service"
)

// StatusChangeRequest is the POST body for a status transition
type StatusChangeRequest struct {
	NewStatus     string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	EffectiveDate string `json:"effectiveDate,omitempty"`
	IsRestore     bool   `json:"isRestore,omitempty"`
	Confirm       bool   `json:"confirm"`
}

// StatusHandler exposes effective-status resolution, pre-change impact
// info and status transition execution for a single user.
type StatusHandler struct {
	status *service.StatusService
	logger *slog.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(status *service.StatusService, logger *slog.Logger) *StatusHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &StatusHandler{
		status: status,
		logger: logger,
	}
}

// Get handles GET /api/users/{id}/status requests. With a ?status=
// query parameter it returns the change info for that proposed status,
// without it just the resolved effective status. Viewing anyone but
// yourself needs an admin entity type.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("id")
	if targetID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "user id is required")
		return
	}

	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	if proposed := r.URL.Query().Get("status"); proposed != "" {
		info, err := h.status.GetStatusChangeInfo(r.Context(), claims.UserID, claims.EntityType, targetID, domain.Status(proposed))
		if err != nil {
			h.writeStatusError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)
		return
	}

	effective, err := h.status.GetEffectiveStatus(r.Context(), claims.UserID, claims.EntityType, targetID)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, effective)
}

// Change handles POST /api/users/{id}/status requests
func (h *StatusHandler) Change(w http.ResponseWriter, r *http.Request) {
	targetID := r.PathValue("id")
	if targetID == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "user id is required")
		return
	}

	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	var body StatusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Error("failed to decode status change request", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	req := engine.TransitionRequest{
		UserID:       targetID,
		ActingUserID: claims.UserID,
		NewStatus:    domain.Status(body.NewStatus),
		Reason:       body.Reason,
		IsRestore:    body.IsRestore,
		Confirm:      body.Confirm,
	}
	if body.EffectiveDate != "" {
		date, err := parseEffectiveDate(body.EffectiveDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "effectiveDate must be YYYY-MM-DD or RFC 3339")
			return
		}
		req.EffectiveDate = &date
	}

	result, err := h.status.ExecuteStatusChange(r.Context(), claims.EntityType, req)
	if err != nil {
		h.writeStatusError(w, err)
		return
	}

	h.logger.Info("status change executed",
		slog.String("target_user_id", targetID),
		slog.String("acting_user_id", claims.UserID),
		slog.String("new_status", body.NewStatus),
		slog.String("path", result.ExecutionPath),
	)

	writeJSON(w, http.StatusOK, result)
}

func parseEffectiveDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (h *StatusHandler) writeStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "not allowed to perform this status change")
	case errors.Is(err, engine.ErrConfirmationRequired):
		writeError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", err.Error())
	case errors.Is(err, engine.ErrReasonRequired):
		writeError(w, http.StatusBadRequest, "REASON_REQUIRED", err.Error())
	case errors.Is(err, engine.ErrRestoreFlagRequired):
		writeError(w, http.StatusBadRequest, "RESTORE_FLAG_REQUIRED", err.Error())
	case errors.Is(err, engine.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error())
	case errors.Is(err, engine.ErrSystemImmutable):
		writeError(w, http.StatusForbidden, "SYSTEM_IMMUTABLE", err.Error())
	case errors.Is(err, engine.ErrAlreadyTerminated):
		writeError(w, http.StatusConflict, "ALREADY_TERMINATED", err.Error())
	case errors.Is(err, engine.ErrAlreadyInState):
		writeError(w, http.StatusConflict, "ALREADY_IN_STATE", err.Error())
	default:
		h.logger.Error("status operation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "status operation failed")
	}
}
