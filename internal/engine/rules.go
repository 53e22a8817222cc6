package engine

import (
	"errors"
	"strings"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// Transition rule violations. These are conflict/validation errors:
// they reject the request before any mutation and never trigger the
// fallback path.
var (
	ErrConfirmationRequired = errors.New("status change requires explicit confirmation")
	ErrSystemImmutable      = errors.New("system entities cannot change status")
	ErrInvalidStatus        = errors.New("invalid target status")
	ErrReasonRequired       = errors.New("a reason of at least 2 characters is required")
	ErrRestoreFlagRequired  = errors.New("restoring a terminated user requires the restore flag")
	ErrAlreadyTerminated    = errors.New("user is already terminated")
	ErrAlreadyInState       = errors.New("user is already in the requested state")
)

// ValidateTransition enforces the status state machine in one place so
// neither execution path duplicates the business rules. The comparison
// against the current state uses the *effective* status, not raw flags.
func ValidateTransition(req TransitionRequest, current EffectiveStatus) error {
	if !req.Confirm {
		return ErrConfirmationRequired
	}
	if current.EntityType == EntitySystem {
		return ErrSystemImmutable
	}
	if !req.NewStatus.Valid() {
		return ErrInvalidStatus
	}

	terminated := current.DirectStatus == domain.StatusTerminated

	if req.NewStatus == domain.StatusTerminated {
		if terminated {
			return ErrAlreadyTerminated
		}
		if len(strings.TrimSpace(req.Reason)) < 2 {
			return ErrReasonRequired
		}
		return nil
	}

	if terminated {
		// leaving the terminated state is only possible as a restore
		if !req.IsRestore {
			return ErrRestoreFlagRequired
		}
		if len(strings.TrimSpace(req.Reason)) < 2 {
			return ErrReasonRequired
		}
		return nil
	}

	if req.NewStatus == current.EffectiveStatus {
		return ErrAlreadyInState
	}
	return nil
}

// RuleViolation reports whether err is a transition rule rejection,
// as opposed to an infrastructure failure
func RuleViolation(err error) bool {
	switch {
	case errors.Is(err, ErrConfirmationRequired),
		errors.Is(err, ErrSystemImmutable),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrReasonRequired),
		errors.Is(err, ErrRestoreFlagRequired),
		errors.Is(err, ErrAlreadyTerminated),
		errors.Is(err, ErrAlreadyInState):
		return true
	}
	return false
}
