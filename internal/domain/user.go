package domain

import (
	"context"
	"time"
)

// User represents a system user.
// Users are never hard-deleted: termination anonymizes username/email
// and sets LifecycleStatus to terminated so role rows stay restorable.
type User struct {
	ID                string // UUID
	Username          string // Unique username
	Email             string // Unique email address
	PasswordHash      string // Bcrypt hashed password (not returned in API)
	IsActive          bool
	LifecycleStatus   Status
	EmailVerified     bool
	FailedLoginCount  int
	LockedUntil       *time.Time
	TerminationDate   *time.Time
	TerminationReason *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Locked reports whether the account is locked at the given instant
func (u *User) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Terminated reports whether the user has been terminated
func (u *User) Terminated() bool {
	return u.LifecycleStatus == StatusTerminated
}

// DirectStatus is the user's own status before any organizational override
func (u *User) DirectStatus() Status {
	if u.Terminated() {
		return StatusTerminated
	}
	if u.IsActive {
		return StatusActive
	}
	return StatusInactive
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByIdentifier resolves a login identifier (username or email)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	// UpdateStatus writes the active flag and lifecycle status in one statement
	UpdateStatus(ctx context.Context, id string, isActive bool, lifecycle Status) error
	// UpdateTermination writes (or clears, with nils) the termination metadata
	UpdateTermination(ctx context.Context, id string, date *time.Time, reason *string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// RecordLoginFailure increments the failure counter and, when lockedUntil
	// is non-nil, locks the account until that instant
	RecordLoginFailure(ctx context.Context, id string, lockedUntil *time.Time) error
	// ResetLoginFailures clears the counter and any lock after a successful login
	ResetLoginFailures(ctx context.Context, id string) error
	// ListLockExpired returns users whose lock has passed but whose
	// counter/lock columns have not been cleared yet
	ListLockExpired(ctx context.Context, now time.Time) ([]*User, error)
	ClearLock(ctx context.Context, id string) error
	// CountLocked counts accounts still locked at the given instant
	CountLocked(ctx context.Context, now time.Time) (int, error)
	// Anonymize blanks username/email as part of termination
	Anonymize(ctx context.Context, id string) error
}
