package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/featureflags"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/observability/metrics"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/reliability/circuitbreaker"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/reliability/retry"
)

// Status change messages shown to operators.
const (
	msgChangeApplied   = "상태가 변경되었습니다"
	msgTerminationDone = "퇴사 처리가 완료되었습니다"
	msgRestoreDone     = "계정이 복구되었습니다"

	fallbackNoCascadeReason = "degraded mode: dependent entities were not cascaded"
)

// TransitionExecutor applies a validated status transition. Validation
// (ValidateTransition) has already run by the time Execute is called;
// implementations only perform the writes.
type TransitionExecutor interface {
	Execute(ctx context.Context, req TransitionRequest, user *domain.User, current EffectiveStatus) (*TransitionResult, error)
}

// AtomicExecutor runs the transition through the database procedure so
// the target row and every cascade row commit in a single transaction.
type AtomicExecutor struct {
	transitions domain.TransitionRepository
	users       domain.UserRepository
	retryCfg    *retry.Config
	logger      *slog.Logger
}

// NewAtomicExecutor creates the stored-procedure execution path
func NewAtomicExecutor(transitions domain.TransitionRepository, users domain.UserRepository, logger *slog.Logger) *AtomicExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &AtomicExecutor{
		transitions: transitions,
		users:       users,
		retryCfg:    retry.DefaultConfig(),
		logger:      logger,
	}
}

// Execute calls the database procedure and then persists termination
// metadata as a separate best-effort write. A metadata failure is
// logged but does not undo the committed transition.
func (e *AtomicExecutor) Execute(ctx context.Context, req TransitionRequest, user *domain.User, current EffectiveStatus) (*TransitionResult, error) {
	cascade := shouldCascade(current.EntityType, req)

	procResult, err := e.transitions.ExecuteStatusProcedure(ctx, req.ActingUserID, req.UserID, req.NewStatus, req.Reason, cascade)
	if err != nil {
		return nil, fmt.Errorf("atomic status transition: %w", err)
	}

	termination := e.writeTerminationMetadata(ctx, req)

	result := buildResult(req, user, current, termination)
	if req.NewStatus == domain.StatusTerminated {
		result.SpecialProcessing.Anonymized = e.anonymize(ctx, req.UserID)
	}
	result.ExecutionPath = "atomic"
	result.CascadeResults = &CascadeResult{
		Enabled:         procResult.CascadeApplied,
		AffectedUsers:   procResult.AffectedUsers,
		AffectedWorkers: procResult.AffectedWorkers,
	}
	if !procResult.CascadeApplied {
		result.CascadeResults.Reason = "cascade not applicable for this entity"
	}
	return result, nil
}

// writeTerminationMetadata records or clears the termination fields.
// Retried with backoff; the last error is logged and swallowed.
func (e *AtomicExecutor) writeTerminationMetadata(ctx context.Context, req TransitionRequest) *TerminationData {
	var date *time.Time
	var reason *string
	if req.NewStatus == domain.StatusTerminated {
		d := time.Now()
		if req.EffectiveDate != nil {
			d = *req.EffectiveDate
		}
		date = &d
		r := req.Reason
		reason = &r
	} else if !req.IsRestore {
		// nothing to write outside terminate/restore
		return nil
	}

	_, err := retry.Do(ctx, e.retryCfg, e.logger, "update_termination_metadata", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.users.UpdateTermination(ctx, req.UserID, date, reason)
	})
	if err != nil {
		e.logger.Error("termination metadata write failed after retries",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
	}
	return &TerminationData{TerminationDate: date, TerminationReason: reason}
}

// anonymize blanks the terminated user's username and email. Retried
// with backoff; a persistent failure is logged and reported on the
// result, the committed transition stands either way.
func (e *AtomicExecutor) anonymize(ctx context.Context, userID string) bool {
	_, err := retry.Do(ctx, e.retryCfg, e.logger, "anonymize_terminated_user", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.users.Anonymize(ctx, userID)
	})
	if err != nil {
		e.logger.Error("anonymization failed after retries",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// FallbackExecutor applies the transition as a sequence of independent
// writes when the procedure path is unavailable. It mutates the user
// row first so access control degrades safely even if role updates
// partially fail, and it never cascades to dependent entities.
type FallbackExecutor struct {
	users  domain.UserRepository
	roles  domain.RoleRepository
	logger *slog.Logger
}

// NewFallbackExecutor creates the degraded execution path
func NewFallbackExecutor(users domain.UserRepository, roles domain.RoleRepository, logger *slog.Logger) *FallbackExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackExecutor{users: users, roles: roles, logger: logger}
}

// Execute runs the manual saga: termination fields, user row, identity
// blanking on terminate, then role activation. A bulk role update
// failure degrades to per-row updates so a single bad row cannot abort
// the rest.
func (e *FallbackExecutor) Execute(ctx context.Context, req TransitionRequest, user *domain.User, current EffectiveStatus) (*TransitionResult, error) {
	active := req.NewStatus == domain.StatusActive
	termination := e.terminationFields(req)

	if termination != nil {
		if err := e.users.UpdateTermination(ctx, req.UserID, termination.TerminationDate, termination.TerminationReason); err != nil {
			return nil, fmt.Errorf("update termination fields: %w", err)
		}
	}
	if err := e.users.UpdateStatus(ctx, req.UserID, active, req.NewStatus); err != nil {
		return nil, fmt.Errorf("update user status: %w", err)
	}

	anonymized := false
	if req.NewStatus == domain.StatusTerminated {
		if err := e.users.Anonymize(ctx, req.UserID); err != nil {
			e.logger.Warn("anonymization failed, account remains terminated",
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()),
			)
		} else {
			anonymized = true
		}
	}

	cascade := &CascadeResult{Enabled: false, Reason: fallbackNoCascadeReason}
	reactivated := 0

	if _, err := e.roles.SetActiveByUser(ctx, req.UserID, active); err != nil {
		e.logger.Warn("bulk role update failed, switching to per-row updates",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		cascade.RoleUpdates = e.updateRolesOneByOne(ctx, req.UserID, active)
		for _, ru := range cascade.RoleUpdates {
			if ru.Error == "" && ru.Active {
				reactivated++
			}
		}
	} else if active {
		roles, err := e.roles.ListByUser(ctx, req.UserID, false)
		if err == nil {
			reactivated = len(roles)
		}
	}

	result := buildResult(req, user, current, termination)
	result.ExecutionPath = "fallback"
	result.CascadeResults = cascade
	result.SpecialProcessing.Anonymized = anonymized
	if req.IsRestore {
		result.SpecialProcessing.ReactivatedRoles = reactivated
	}
	return result, nil
}

func (e *FallbackExecutor) terminationFields(req TransitionRequest) *TerminationData {
	if req.NewStatus == domain.StatusTerminated {
		d := time.Now()
		if req.EffectiveDate != nil {
			d = *req.EffectiveDate
		}
		r := req.Reason
		return &TerminationData{TerminationDate: &d, TerminationReason: &r}
	}
	if req.IsRestore {
		// restore clears termination metadata
		return &TerminationData{}
	}
	return nil
}

func (e *FallbackExecutor) updateRolesOneByOne(ctx context.Context, userID string, active bool) []RoleUpdateResult {
	roles, err := e.roles.ListByUser(ctx, userID, true)
	if err != nil {
		e.logger.Error("listing roles for per-row update failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	results := make([]RoleUpdateResult, 0, len(roles))
	for _, role := range roles {
		ru := RoleUpdateResult{UserRoleID: role.ID, RoleCode: role.RoleCode, Active: active}
		if err := e.roles.SetActive(ctx, role.ID, active); err != nil {
			ru.Error = err.Error()
			e.logger.Error("role update failed",
				slog.String("user_id", userID),
				slog.String("user_role_id", role.ID),
				slog.String("error", err.Error()),
			)
		}
		results = append(results, ru)
	}
	return results
}

// ExecutorWithFallback tries the atomic path and degrades to the manual
// saga when the procedure path fails or its circuit is open.
type ExecutorWithFallback struct {
	atomic       TransitionExecutor
	fallback     TransitionExecutor
	breaker      *circuitbreaker.CircuitBreaker
	atomicEnable func() bool
	production   bool
	logger       *slog.Logger
}

// NewExecutorWithFallback wires the two paths behind the breaker.
// atomicEnable is consulted per request so the flag can flip at runtime.
func NewExecutorWithFallback(atomic, fallback TransitionExecutor, breaker *circuitbreaker.CircuitBreaker, atomicEnable func() bool, production bool, logger *slog.Logger) *ExecutorWithFallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecutorWithFallback{
		atomic:       atomic,
		fallback:     fallback,
		breaker:      breaker,
		atomicEnable: atomicEnable,
		production:   production,
		logger:       logger,
	}
}

// Execute dispatches to the atomic path when allowed, otherwise to the
// fallback. Rule violations never reach here, so every atomic error is
// an infrastructure failure and counts against the breaker.
func (e *ExecutorWithFallback) Execute(ctx context.Context, req TransitionRequest, user *domain.User, current EffectiveStatus) (*TransitionResult, error) {
	if e.atomicEnable() && e.breaker.AllowRequest() {
		result, err := e.atomic.Execute(ctx, req, user, current)
		if err == nil {
			e.breaker.RecordSuccess()
			metrics.RecordStatusTransition("atomic", "success")
			e.attachDebug(result, "atomic", nil)
			return result, nil
		}
		e.breaker.RecordFailure()
		metrics.RecordStatusTransition("atomic", "error")
		metrics.RecordFallbackActivation()
		e.logger.Warn("atomic transition failed, using fallback path",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)

		result, ferr := e.fallback.Execute(ctx, req, user, current)
		if ferr != nil {
			metrics.RecordStatusTransition("fallback", "error")
			return nil, fmt.Errorf("fallback transition after atomic failure: %w", ferr)
		}
		metrics.RecordStatusTransition("fallback", "success")
		e.attachDebug(result, "fallback", err)
		return result, nil
	}

	result, err := e.fallback.Execute(ctx, req, user, current)
	if err != nil {
		metrics.RecordStatusTransition("fallback", "error")
		return nil, err
	}
	metrics.RecordStatusTransition("fallback", "success")
	e.attachDebug(result, "fallback", nil)
	return result, nil
}

// attachDebug adds execution details to the result outside production
func (e *ExecutorWithFallback) attachDebug(result *TransitionResult, path string, atomicErr error) {
	if e.production || result == nil {
		return
	}
	if !featureflags.EnabledDefault(featureflags.TransitionDebug, true) {
		return
	}
	debug := map[string]any{
		"path":          path,
		"breaker_state": e.breaker.GetState().String(),
	}
	if atomicErr != nil {
		debug["atomic_error"] = atomicErr.Error()
	}
	result.Debug = debug
}

// shouldCascade reports whether the procedure should touch dependent
// entities. Only admin entities cascade, and never on restore or when
// moving back to active.
func shouldCascade(entityType EntityType, req TransitionRequest) bool {
	if req.IsRestore || req.NewStatus == domain.StatusActive {
		return false
	}
	return entityType == EntityLaborOfficeAdmin || entityType == EntityCompanyAdmin
}

// buildResult assembles the shared portion of a TransitionResult
func buildResult(req TransitionRequest, user *domain.User, current EffectiveStatus, termination *TerminationData) *TransitionResult {
	special := &SpecialProcessing{
		Terminated: req.NewStatus == domain.StatusTerminated,
		Restored:   req.IsRestore,
	}

	message := msgChangeApplied
	switch {
	case special.Terminated:
		message = msgTerminationDone
	case special.Restored:
		message = msgRestoreDone
	}

	return &TransitionResult{
		Success: true,
		Message: message,
		User: &UserSummary{
			ID:              user.ID,
			Username:        user.Username,
			Email:           user.Email,
			IsActive:        req.NewStatus == domain.StatusActive,
			LifecycleStatus: req.NewStatus,
		},
		EntityInfo:        &current,
		SpecialProcessing: special,
		TerminationData:   termination,
	}
}
