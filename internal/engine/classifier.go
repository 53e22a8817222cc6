package engine

import "github.com/shlee8313/4-social-insurnace-sub001/internal/domain"

// Role codes that decide entity-type classification
const (
	RoleSuperAdmin   = "SUPER_ADMIN"
	RoleSystemAdmin  = "SYSTEM_ADMIN"
	RoleLaborAdmin   = "LABOR_ADMIN"
	RoleCompanyAdmin = "COMPANY_ADMIN"
	RoleLaborStaff   = "LABOR_STAFF"
	RoleCompanyHR    = "COMPANY_HR"
	RoleWorker       = "WORKER"
)

// CategoryUnknown marks users with no recognizable role or affiliation
const CategoryUnknown = "unknown"

// ClassifyEntityType derives the canonical entity type from role
// assignments and affiliation.
//
// Which assignments count depends on why classification is requested:
// normally only active ones, but a reactivation or restoration request
// on a currently-inactive user considers inactive assignments too,
// since the user's only role may have been deactivated by the very
// action being reversed.
func ClassifyEntityType(userIsActive bool, forRestore bool, roles []*domain.UserRole, aff Affiliation) Classification {
	considerInactive := forRestore && !userIsActive

	var considered []*domain.UserRole
	for _, role := range roles {
		if role.IsActive || considerInactive {
			considered = append(considered, role)
		}
	}

	if role := findRole(considered, RoleSuperAdmin, RoleSystemAdmin); role != nil {
		return Classification{EntityType: EntitySystem, RoleCode: role.RoleCode, RoleCategory: role.RoleCategory}
	}

	if role := findRole(considered, RoleLaborAdmin); role != nil && aff.Type == AffiliationLaborOffice {
		return Classification{EntityType: EntityLaborOfficeAdmin, RoleCode: role.RoleCode, RoleCategory: role.RoleCategory}
	}

	if role := findRole(considered, RoleCompanyAdmin); role != nil && aff.Type == AffiliationCompany {
		return Classification{EntityType: EntityCompanyAdmin, RoleCode: role.RoleCode, RoleCategory: role.RoleCategory}
	}

	if len(considered) > 0 {
		first := considered[0]
		return Classification{EntityType: EntityUser, RoleCode: first.RoleCode, RoleCategory: first.RoleCategory}
	}
	if aff.Organization() {
		return Classification{EntityType: EntityUser, RoleCategory: "user"}
	}

	return Classification{EntityType: EntityUser, RoleCategory: CategoryUnknown}
}

func findRole(roles []*domain.UserRole, codes ...string) *domain.UserRole {
	for _, role := range roles {
		for _, code := range codes {
			if role.RoleCode == code {
				return role
			}
		}
	}
	return nil
}
