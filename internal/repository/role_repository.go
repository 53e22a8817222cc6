package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// PostgresRoleRepository implements domain.RoleRepository using PostgreSQL
type PostgresRoleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRoleRepository creates a new role repository
func NewPostgresRoleRepository(db *sql.DB, logger *slog.Logger) *PostgresRoleRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresRoleRepository{
		db:     db,
		logger: logger,
	}
}

// GetByCode retrieves a role definition by its code
func (r *PostgresRoleRepository) GetByCode(ctx context.Context, code string) (*domain.Role, error) {
	role := &domain.Role{}
	var permissions []byte

	query := `SELECT id, code, category, permissions FROM roles WHERE code = $1`

	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&role.ID,
		&role.Code,
		&role.Category,
		&permissions,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role %s: %w", code, err)
	}

	if len(permissions) > 0 {
		if err := json.Unmarshal(permissions, &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to decode permissions for role %s: %w", code, err)
		}
	}

	return role, nil
}

// ListByUser returns a user's role assignments joined to the role
// definition. With includeInactive, deactivated assignments are included.
func (r *PostgresRoleRepository) ListByUser(ctx context.Context, userID string, includeInactive bool) ([]*domain.UserRole, error) {
	query := `
		SELECT ur.id, ur.user_id, ur.role_id, ro.code, ro.category, ur.is_active,
		       ur.company_id, ur.labor_office_id, ur.department_id
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1
	`
	if !includeInactive {
		query += ` AND ur.is_active = true`
	}
	query += ` ORDER BY ur.created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("failed to list user roles",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list user roles: %w", err)
	}
	defer rows.Close()

	var roles []*domain.UserRole
	for rows.Next() {
		ur := &domain.UserRole{}
		err := rows.Scan(
			&ur.ID,
			&ur.UserID,
			&ur.RoleID,
			&ur.RoleCode,
			&ur.RoleCategory,
			&ur.IsActive,
			&ur.CompanyID,
			&ur.LaborOfficeID,
			&ur.DepartmentID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		roles = append(roles, ur)
	}
	return roles, rows.Err()
}

// Assign creates a role assignment for a user
func (r *PostgresRoleRepository) Assign(ctx context.Context, ur *domain.UserRole) error {
	query := `
		INSERT INTO user_roles (user_id, role_id, is_active, company_id, labor_office_id, department_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		ur.UserID,
		ur.RoleID,
		ur.IsActive,
		ur.CompanyID,
		ur.LaborOfficeID,
		ur.DepartmentID,
	).Scan(&ur.ID)

	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// SetActiveByUser bulk-updates every assignment of one user
func (r *PostgresRoleRepository) SetActiveByUser(ctx context.Context, userID string, active bool) (int64, error) {
	query := `UPDATE user_roles SET is_active = $2, updated_at = NOW() WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, active)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk-update user roles: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// SetActive updates a single assignment row
func (r *PostgresRoleRepository) SetActive(ctx context.Context, userRoleID string, active bool) error {
	query := `UPDATE user_roles SET is_active = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, userRoleID, active)
	if err != nil {
		return fmt.Errorf("failed to update user role %s: %w", userRoleID, err)
	}

	return requireRow(result)
}
