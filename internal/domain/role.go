package domain

import "context"

// Role is a role definition with its permission map
type Role struct {
	ID          string
	Code        string // e.g. SUPER_ADMIN, LABOR_ADMIN, COMPANY_ADMIN
	Category    string // system | labor_office | company | user
	Permissions map[string][]string
}

// UserRole assigns a Role to a User. Its IsActive flag is independent of
// the user's own flag: deactivating a user deactivates their role rows
// without deleting them, so a later restore can reactivate the exact set.
type UserRole struct {
	ID            string
	UserID        string
	RoleID        string
	RoleCode      string // joined from roles on reads
	RoleCategory  string // joined from roles on reads
	IsActive      bool
	CompanyID     *string
	LaborOfficeID *string
	DepartmentID  *string
}

// RoleUpdate captures the per-row outcome of a role activation write.
// Used by the fallback execution path when the bulk update fails.
type RoleUpdate struct {
	UserRoleID string
	RoleCode   string
	Active     bool
	Error      string
}

// RoleRepository defines data access for roles and role assignments
type RoleRepository interface {
	GetByCode(ctx context.Context, code string) (*Role, error)
	// ListByUser returns a user's role assignments joined to role code and
	// category. With includeInactive, deactivated assignments are included;
	// restore flows need those to recover the prior role set.
	ListByUser(ctx context.Context, userID string, includeInactive bool) ([]*UserRole, error)
	Assign(ctx context.Context, ur *UserRole) error
	// SetActiveByUser bulk-updates every assignment of one user,
	// returning the number of rows touched
	SetActiveByUser(ctx context.Context, userID string, active bool) (int64, error)
	// SetActive updates a single assignment row
	SetActive(ctx context.Context, userRoleID string, active bool) error
}
