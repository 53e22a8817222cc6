package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/engine"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/observability/metrics"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/audit"
)

// ErrUserNotFound is returned when the target user does not exist
var ErrUserNotFound = errors.New("user not found")

// ErrPermissionDenied is returned when the acting entity may not
// perform the requested transition
var ErrPermissionDenied = errors.New("permission denied")

// StatusChangeInfo is the pre-flight answer for a proposed transition
type StatusChangeInfo struct {
	CanChange  bool                   `json:"canChange"`
	Reason     string                 `json:"reason,omitempty"`
	EntityInfo engine.EffectiveStatus `json:"entityInfo"`
	Impact     *engine.Impact         `json:"impact"`
}

// StatusService coordinates status resolution, impact analysis and
// transition execution for the admin surface.
type StatusService struct {
	users    domain.UserRepository
	roles    domain.RoleRepository
	resolver *engine.AffiliationResolver
	analyzer *engine.ImpactAnalyzer
	executor engine.TransitionExecutor
	authz    *security.AuthorizationService
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewStatusService creates a new status service
func NewStatusService(
	users domain.UserRepository,
	roles domain.RoleRepository,
	resolver *engine.AffiliationResolver,
	analyzer *engine.ImpactAnalyzer,
	executor engine.TransitionExecutor,
	authz *security.AuthorizationService,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *StatusService {
	if logger == nil {
		logger = slog.Default()
	}

	return &StatusService{
		users:    users,
		roles:    roles,
		resolver: resolver,
		analyzer: analyzer,
		executor: executor,
		authz:    authz,
		audit:    auditLog,
		logger:   logger,
	}
}

// GetEffectiveStatus resolves a user's current effective status.
// Viewing another user's status requires the view permission; everyone
// may resolve their own.
func (s *StatusService) GetEffectiveStatus(ctx context.Context, actingUserID, actingEntityType, targetUserID string) (*engine.EffectiveStatus, error) {
	if err := s.authorizeView(ctx, actingUserID, actingEntityType, targetUserID); err != nil {
		return nil, err
	}
	return s.resolveEffectiveStatus(ctx, targetUserID)
}

func (s *StatusService) resolveEffectiveStatus(ctx context.Context, userID string) (*engine.EffectiveStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	roles, err := s.roles.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	aff := s.resolver.ResolveForUser(ctx, user)
	effective := engine.ComputeEffectiveStatus(user, aff, roles, false)
	return &effective, nil
}

// GetStatusChangeInfo answers whether a proposed transition is
// possible and what it would touch. Impact analysis failures degrade
// to an empty impact so the pre-flight view never blocks on them.
func (s *StatusService) GetStatusChangeInfo(ctx context.Context, actingUserID, actingEntityType, targetUserID string, proposed domain.Status) (*StatusChangeInfo, error) {
	if err := s.authorizeView(ctx, actingUserID, actingEntityType, targetUserID); err != nil {
		return nil, err
	}

	current, err := s.resolveEffectiveStatus(ctx, targetUserID)
	if err != nil {
		return nil, err
	}

	info := &StatusChangeInfo{
		EntityInfo: *current,
		Impact:     &engine.Impact{AffectedEntities: []engine.AffectedEntity{}},
	}

	info.CanChange, info.Reason = changeable(*current, proposed)
	if !info.CanChange {
		return info, nil
	}

	impact, err := s.analyzer.Analyze(ctx, targetUserID, current.EntityType, proposed)
	if err != nil {
		s.logger.Error("impact analysis degraded to empty set",
			slog.String("user_id", targetUserID),
			slog.String("error", err.Error()),
		)
		return info, nil
	}
	info.Impact = impact
	return info, nil
}

// changeable applies the submission-independent transition rules
func changeable(current engine.EffectiveStatus, proposed domain.Status) (bool, string) {
	switch {
	case current.EntityType == engine.EntitySystem:
		return false, "system entities cannot change status"
	case !proposed.Valid():
		return false, "invalid target status"
	case current.DirectStatus == domain.StatusTerminated && proposed == domain.StatusTerminated:
		return false, "user is already terminated"
	case current.DirectStatus != domain.StatusTerminated && proposed == current.EffectiveStatus:
		return false, "user is already in that state"
	}
	return true, ""
}

// ExecuteStatusChange validates and runs a status transition on behalf
// of the acting entity
func (s *StatusService) ExecuteStatusChange(ctx context.Context, actingEntityType string, req engine.TransitionRequest) (*engine.TransitionResult, error) {
	if err := s.authorize(ctx, actingEntityType, req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	roles, err := s.roles.ListByUser(ctx, req.UserID, req.IsRestore)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	aff := s.resolver.ResolveForUser(ctx, user)
	current := engine.ComputeEffectiveStatus(user, aff, roles, req.IsRestore)

	if err := engine.ValidateTransition(req, current); err != nil {
		s.audit.LogStatusChange(ctx, req.ActingUserID, req.UserID, string(req.NewStatus), "none", "rejected", err.Error())
		return nil, err
	}

	result, err := s.executor.Execute(ctx, req, user, current)
	if err != nil {
		s.audit.LogStatusChange(ctx, req.ActingUserID, req.UserID, string(req.NewStatus), "both", "failed", err.Error())
		return nil, err
	}

	if result.CascadeResults != nil && result.CascadeResults.Enabled {
		metrics.ObserveCascadeSize(result.CascadeResults.AffectedUsers + result.CascadeResults.AffectedWorkers)
	}

	s.refreshEntityInfo(ctx, req, result)
	s.audit.LogStatusChange(ctx, req.ActingUserID, req.UserID, string(req.NewStatus), result.ExecutionPath, "success", "")
	return result, nil
}

// authorizeView gates read access to another user's status. Self-lookup
// is always allowed: a user's own status is already part of every login
// response.
func (s *StatusService) authorizeView(ctx context.Context, actingUserID, actingEntityType, targetUserID string) error {
	if actingUserID != "" && actingUserID == targetUserID {
		return nil
	}
	if err := s.authz.RequirePermission(actingEntityType, security.PermViewStatus); err != nil {
		s.audit.LogDenied(ctx, actingUserID, err.Error())
		return ErrPermissionDenied
	}
	return nil
}

// authorize maps the requested transition to the permission it needs
func (s *StatusService) authorize(ctx context.Context, actingEntityType string, req engine.TransitionRequest) error {
	perm := security.PermChangeStatus
	switch {
	case req.IsRestore:
		perm = security.PermRestoreUser
	case req.NewStatus == domain.StatusTerminated:
		perm = security.PermTerminateUser
	}

	if err := s.authz.RequirePermission(actingEntityType, perm); err != nil {
		s.audit.LogDenied(ctx, req.ActingUserID, err.Error())
		return ErrPermissionDenied
	}
	return nil
}

// refreshEntityInfo replaces the pre-change entity info on the result
// with the freshly resolved post-change state. Resolution failures
// leave the pre-change snapshot in place.
func (s *StatusService) refreshEntityInfo(ctx context.Context, req engine.TransitionRequest, result *engine.TransitionResult) {
	user, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		s.logger.Warn("could not reload user after transition",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		return
	}

	roles, err := s.roles.ListByUser(ctx, req.UserID, false)
	if err != nil {
		return
	}

	aff := s.resolver.ResolveForUser(ctx, user)
	effective := engine.ComputeEffectiveStatus(user, aff, roles, false)
	result.EntityInfo = &effective
	result.User = &engine.UserSummary{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		IsActive:        user.IsActive,
		LifecycleStatus: user.LifecycleStatus,
	}
}
