package security

import (
	"fmt"
	"log/slog"
)

// Permission represents an action permission
type Permission string

const (
	PermViewStatus       Permission = "view_status"
	PermChangeStatus     Permission = "change_status"
	PermTerminateUser    Permission = "terminate_user"
	PermRestoreUser      Permission = "restore_user"
	PermManageCompany    Permission = "manage_company"
	PermManageOffice     Permission = "manage_labor_office"
	PermViewAuditLog     Permission = "view_audit_log"
	PermManagePlatform   Permission = "manage_platform"
	PermViewOwnDashboard Permission = "view_own_dashboard"
)

// EntityPermissions maps resolved entity types to their permissions.
// Classification happens in the engine; this map only answers what an
// already-classified entity may do.
var EntityPermissions = map[string][]Permission{
	"system": {
		PermViewStatus,
		PermChangeStatus,
		PermTerminateUser,
		PermRestoreUser,
		PermManageCompany,
		PermManageOffice,
		PermViewAuditLog,
		PermManagePlatform,
		PermViewOwnDashboard,
	},
	"labor_office_admin": {
		PermViewStatus,
		PermChangeStatus,
		PermTerminateUser,
		PermRestoreUser,
		PermManageCompany,
		PermManageOffice,
		PermViewAuditLog,
		PermViewOwnDashboard,
	},
	"company_admin": {
		PermViewStatus,
		PermChangeStatus,
		PermTerminateUser,
		PermViewAuditLog,
		PermViewOwnDashboard,
	},
	"user": {
		PermViewOwnDashboard,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates an authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{logger: logger}
}

// HasPermission reports whether the entity type carries the permission
func (s *AuthorizationService) HasPermission(entityType string, perm Permission) bool {
	for _, p := range EntityPermissions[entityType] {
		if p == perm {
			return true
		}
	}
	return false
}

// RequirePermission returns an error when the entity lacks the permission
func (s *AuthorizationService) RequirePermission(entityType string, perm Permission) error {
	if !s.HasPermission(entityType, perm) {
		s.logger.Warn("permission denied",
			slog.String("entity_type", entityType),
			slog.String("permission", string(perm)),
		)
		return fmt.Errorf("entity type %s lacks permission %s", entityType, perm)
	}
	return nil
}
