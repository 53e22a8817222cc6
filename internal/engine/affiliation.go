package engine

import (
	"context"
	"log/slog"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// AffiliationResolver determines which organization a user acts on
// behalf of. Resolution gates login and dashboards, so it never fails:
// query errors collapse into the synthetic "unknown" affiliation.
type AffiliationResolver struct {
	users  domain.UserRepository
	orgs   domain.OrganizationRepository
	logger *slog.Logger
}

// NewAffiliationResolver creates a new affiliation resolver
func NewAffiliationResolver(users domain.UserRepository, orgs domain.OrganizationRepository, logger *slog.Logger) *AffiliationResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &AffiliationResolver{users: users, orgs: orgs, logger: logger}
}

// Resolve returns the user's affiliation using the fixed precedence:
// labor-office staff > department assignment > direct company
// assignment > worker record > none. Termination always wins: a
// terminated user resolves to the synthetic terminated affiliation no
// matter what organization rows exist underneath.
func (r *AffiliationResolver) Resolve(ctx context.Context, userID string) Affiliation {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		r.logger.Error("affiliation resolution failed on user lookup",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return Affiliation{Type: AffiliationUnknown, Name: NameUnresolved, Status: domain.StatusUnknown}
	}

	if user.Terminated() {
		return Affiliation{Type: AffiliationTerminated, Name: NameTerminated, Status: domain.StatusTerminated}
	}

	return r.ResolveForUser(ctx, user)
}

// ResolveForUser resolves the affiliation for an already-loaded user row,
// skipping the extra lookup. Callers that hold a fresh row (login,
// status change) use this to keep resolution idempotent within a request.
func (r *AffiliationResolver) ResolveForUser(ctx context.Context, user *domain.User) Affiliation {
	if user.Terminated() {
		return Affiliation{Type: AffiliationTerminated, Name: NameTerminated, Status: domain.StatusTerminated}
	}

	staff, err := r.orgs.ActiveStaffByUser(ctx, user.ID)
	if err != nil {
		return r.unresolved(user.ID, "labor_office_staff", err)
	}
	if staff != nil {
		return Affiliation{
			Type:           AffiliationLaborOffice,
			OrganizationID: staff.LaborOfficeID,
			Name:           staff.OfficeName,
			Status:         staff.OfficeStatus,
		}
	}

	dept, err := r.orgs.ActiveDepartmentAssignmentByUser(ctx, user.ID)
	if err != nil {
		return r.unresolved(user.ID, "department_assignment", err)
	}
	if dept != nil {
		return Affiliation{
			Type:           AffiliationCompany,
			OrganizationID: dept.CompanyID,
			Name:           dept.CompanyName,
			Status:         dept.CompanyStatus,
		}
	}

	assignment, err := r.orgs.ActiveCompanyAssignmentByUser(ctx, user.ID)
	if err != nil {
		return r.unresolved(user.ID, "company_assignment", err)
	}
	if assignment != nil {
		return Affiliation{
			Type:           AffiliationCompany,
			OrganizationID: assignment.CompanyID,
			Name:           assignment.CompanyName,
			Status:         assignment.CompanyStatus,
		}
	}

	worker, err := r.orgs.ActiveWorkerByUser(ctx, user.ID)
	if err != nil {
		return r.unresolved(user.ID, "worker", err)
	}
	if worker != nil {
		return Affiliation{
			Type:           AffiliationCompany,
			OrganizationID: worker.CompanyID,
			Name:           worker.CompanyName,
			Status:         worker.CompanyStatus,
		}
	}

	return Affiliation{Type: AffiliationNone, Name: NameUnaffiliated, Status: domain.StatusActive}
}

func (r *AffiliationResolver) unresolved(userID, probe string, err error) Affiliation {
	r.logger.Error("affiliation probe failed",
		slog.String("user_id", userID),
		slog.String("probe", probe),
		slog.String("error", err.Error()),
	)
	return Affiliation{Type: AffiliationUnknown, Name: NameUnresolved, Status: domain.StatusUnknown}
}
