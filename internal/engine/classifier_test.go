package engine

import (
	"testing"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

func TestClassifySystemRoleWinsOverEverything(t *testing.T) {
	roles := []*domain.UserRole{
		role("r1", "u1", RoleCompanyAdmin, "company", true),
		role("r2", "u1", RoleSuperAdmin, "system", true),
	}
	aff := Affiliation{Type: AffiliationCompany, OrganizationID: "c1", Status: domain.StatusActive}

	c := ClassifyEntityType(true, false, roles, aff)
	if c.EntityType != EntitySystem {
		t.Fatalf("expected system entity, got %s", c.EntityType)
	}
	if c.RoleCode != RoleSuperAdmin {
		t.Fatalf("expected %s, got %s", RoleSuperAdmin, c.RoleCode)
	}
}

func TestClassifyAdminRoleRequiresMatchingAffiliation(t *testing.T) {
	roles := []*domain.UserRole{role("r1", "u1", RoleLaborAdmin, "labor_office", true)}

	// labor admin role without a labor-office affiliation is a plain user
	c := ClassifyEntityType(true, false, roles, Affiliation{Type: AffiliationNone})
	if c.EntityType != EntityUser {
		t.Fatalf("expected plain user without office affiliation, got %s", c.EntityType)
	}

	c = ClassifyEntityType(true, false, roles, Affiliation{Type: AffiliationLaborOffice, OrganizationID: "lo1"})
	if c.EntityType != EntityLaborOfficeAdmin {
		t.Fatalf("expected labor office admin, got %s", c.EntityType)
	}
}

func TestClassifyCompanyAdmin(t *testing.T) {
	roles := []*domain.UserRole{role("r1", "u1", RoleCompanyAdmin, "company", true)}
	c := ClassifyEntityType(true, false, roles, Affiliation{Type: AffiliationCompany, OrganizationID: "c1"})
	if c.EntityType != EntityCompanyAdmin {
		t.Fatalf("expected company admin, got %s", c.EntityType)
	}
}

func TestClassifyInactiveRolesIgnoredUnlessRestoring(t *testing.T) {
	roles := []*domain.UserRole{role("r1", "u1", RoleLaborAdmin, "labor_office", false)}
	aff := Affiliation{Type: AffiliationLaborOffice, OrganizationID: "lo1"}

	c := ClassifyEntityType(false, false, roles, aff)
	if c.EntityType != EntityUser {
		t.Fatalf("inactive role should not classify, got %s", c.EntityType)
	}

	// restore of an inactive user considers deactivated roles
	c = ClassifyEntityType(false, true, roles, aff)
	if c.EntityType != EntityLaborOfficeAdmin {
		t.Fatalf("restore should consider inactive roles, got %s", c.EntityType)
	}

	// restore of a still-active user does not widen the role set
	c = ClassifyEntityType(true, true, roles, aff)
	if c.EntityType != EntityUser {
		t.Fatalf("active user restore should ignore inactive roles, got %s", c.EntityType)
	}
}

func TestClassifyNoRolesNoAffiliationIsUnknownCategory(t *testing.T) {
	c := ClassifyEntityType(true, false, nil, Affiliation{Type: AffiliationNone})
	if c.EntityType != EntityUser {
		t.Fatalf("expected user entity, got %s", c.EntityType)
	}
	if c.RoleCategory != CategoryUnknown {
		t.Fatalf("expected unknown category, got %s", c.RoleCategory)
	}
}
