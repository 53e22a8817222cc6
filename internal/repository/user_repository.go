package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

const userColumns = `id, username, email, password_hash, is_active, lifecycle_status,
		email_verified, failed_login_count, locked_until,
		termination_date, termination_reason, created_at, updated_at`

// PostgresUserRepository implements domain.UserRepository using PostgreSQL
type PostgresUserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresUserRepository creates a new user repository
func NewPostgresUserRepository(db *sql.DB, logger *slog.Logger) *PostgresUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, is_active, lifecycle_status, email_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsActive,
		user.LifecycleStatus,
		user.EmailVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIdentifier retrieves a user by username or email
func (r *PostgresUserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	return r.getOne(ctx, query, identifier)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.IsActive,
		&user.LifecycleStatus,
		&user.EmailVerified,
		&user.FailedLoginCount,
		&user.LockedUntil,
		&user.TerminationDate,
		&user.TerminationReason,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to get user",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// UpdateStatus writes the active flag and lifecycle status in one statement
func (r *PostgresUserRepository) UpdateStatus(ctx context.Context, id string, isActive bool, lifecycle domain.Status) error {
	query := `
		UPDATE users
		SET is_active = $2, lifecycle_status = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, isActive, lifecycle)
	if err != nil {
		r.logger.Error("failed to update user status",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to update user status: %w", err)
	}

	return requireRow(result)
}

// UpdateTermination writes (or clears, with nils) the termination metadata
func (r *PostgresUserRepository) UpdateTermination(ctx context.Context, id string, date *time.Time, reason *string) error {
	query := `
		UPDATE users
		SET termination_date = $2, termination_reason = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, date, reason)
	if err != nil {
		return fmt.Errorf("failed to update termination metadata: %w", err)
	}

	return requireRow(result)
}

// UpdatePassword replaces the stored password hash
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return requireRow(result)
}

// RecordLoginFailure increments the failure counter and optionally locks the account
func (r *PostgresUserRepository) RecordLoginFailure(ctx context.Context, id string, lockedUntil *time.Time) error {
	query := `
		UPDATE users
		SET failed_login_count = failed_login_count + 1,
		    locked_until = COALESCE($2, locked_until),
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, lockedUntil)
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}

	return requireRow(result)
}

// ResetLoginFailures clears the counter and any lock after a successful login
func (r *PostgresUserRepository) ResetLoginFailures(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET failed_login_count = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reset login failures: %w", err)
	}

	return requireRow(result)
}

// ListLockExpired returns users whose lock window has passed but whose
// lock columns are still set
func (r *PostgresUserRepository) ListLockExpired(ctx context.Context, now time.Time) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE locked_until IS NOT NULL AND locked_until <= $1`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired locks: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.PasswordHash,
			&user.IsActive,
			&user.LifecycleStatus,
			&user.EmailVerified,
			&user.FailedLoginCount,
			&user.LockedUntil,
			&user.TerminationDate,
			&user.TerminationReason,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// ClearLock removes an expired lock
func (r *PostgresUserRepository) ClearLock(ctx context.Context, id string) error {
	return r.ResetLoginFailures(ctx, id)
}

// CountLocked counts accounts still locked at the given instant
func (r *PostgresUserRepository) CountLocked(ctx context.Context, now time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE locked_until IS NOT NULL AND locked_until > $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count locked accounts: %w", err)
	}
	return count, nil
}

// Anonymize blanks personal fields while keeping the row for audit joins
func (r *PostgresUserRepository) Anonymize(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET username = 'deleted-' || id,
		    email = 'deleted-' || id || '@invalid.local',
		    password_hash = '',
		    is_active = false,
		    updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to anonymize user: %w", err)
	}

	return requireRow(result)
}

// requireRow converts a zero-row update into ErrNotFound
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
