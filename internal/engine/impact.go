package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// ImpactAnalyzer computes which dependent entities a proposed status
// transition would touch, so callers can show a confirmation prompt
// before committing a wide-reaching change.
type ImpactAnalyzer struct {
	orgs   domain.OrganizationRepository
	logger *slog.Logger
}

// NewImpactAnalyzer creates a new cascade impact analyzer
func NewImpactAnalyzer(orgs domain.OrganizationRepository, logger *slog.Logger) *ImpactAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImpactAnalyzer{orgs: orgs, logger: logger}
}

// Analyze returns the impact set for changing the given user's status.
// Only labor-office and company admins cascade; every other entity type
// yields an empty impact. Terminated colleagues/workers never appear in
// the set: they are already outside the cascade.
func (a *ImpactAnalyzer) Analyze(ctx context.Context, userID string, entityType EntityType, proposed domain.Status) (*Impact, error) {
	impact := &Impact{AffectedEntities: []AffectedEntity{}}

	switch entityType {
	case EntityLaborOfficeAdmin:
		staff, err := a.orgs.ActiveStaffByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to locate admin staff record: %w", err)
		}
		if staff == nil {
			return impact, nil
		}

		colleagues, err := a.orgs.ListActiveStaffByOffice(ctx, staff.LaborOfficeID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list office staff: %w", err)
		}
		for _, c := range colleagues {
			// repository already excludes terminated users; guard anyway
			if c.UserLifecycle == domain.StatusTerminated {
				continue
			}
			impact.AffectedEntities = append(impact.AffectedEntities, AffectedEntity{
				Type:   "staff",
				ID:     c.ID,
				UserID: c.UserID,
				Name:   c.Username,
				Status: c.EmploymentStatus,
			})
			impact.Summary.Users++
		}

	case EntityCompanyAdmin:
		assignment, err := a.orgs.ActiveCompanyAssignmentByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to locate admin company assignment: %w", err)
		}
		if assignment == nil {
			return impact, nil
		}

		workers, err := a.orgs.ListActiveWorkersByCompany(ctx, assignment.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("failed to list company workers: %w", err)
		}
		for _, w := range workers {
			if w.UserLifecycle == domain.StatusTerminated {
				continue
			}
			impact.AffectedEntities = append(impact.AffectedEntities, AffectedEntity{
				Type:   "worker",
				ID:     w.ID,
				UserID: w.UserID,
				Name:   w.Name,
				Status: w.EmploymentStatus,
			})
			impact.Summary.Workers++
		}
		impact.Summary.Companies = 1

	default:
		// plain users and terminated entities have no dependents;
		// system entities are rejected before analysis
	}

	a.logger.Debug("cascade impact analyzed",
		slog.String("user_id", userID),
		slog.String("entity_type", string(entityType)),
		slog.String("proposed", string(proposed)),
		slog.Int("affected", len(impact.AffectedEntities)),
	)

	return impact, nil
}
