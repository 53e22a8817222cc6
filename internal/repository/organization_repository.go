package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// PostgresOrganizationRepository implements domain.OrganizationRepository
// using PostgreSQL. The single-row probes return (nil, nil) when no
// matching row exists so callers can keep walking the precedence chain.
type PostgresOrganizationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrganizationRepository creates a new organization repository
func NewPostgresOrganizationRepository(db *sql.DB, logger *slog.Logger) *PostgresOrganizationRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOrganizationRepository{
		db:     db,
		logger: logger,
	}
}

// CreateLaborOffice creates a labor office
func (r *PostgresOrganizationRepository) CreateLaborOffice(ctx context.Context, office *domain.LaborOffice) error {
	query := `
		INSERT INTO labor_offices (name, office_status)
		VALUES ($1, $2)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, office.Name, office.OfficeStatus).Scan(&office.ID)
	if err != nil {
		return fmt.Errorf("failed to create labor office: %w", err)
	}
	return nil
}

// CreateCompany creates a company
func (r *PostgresOrganizationRepository) CreateCompany(ctx context.Context, company *domain.Company) error {
	query := `
		INSERT INTO companies (name, client_status, labor_office_id)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, company.Name, company.ClientStatus, company.LaborOfficeID).Scan(&company.ID)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// GetLaborOffice retrieves a labor office by ID
func (r *PostgresOrganizationRepository) GetLaborOffice(ctx context.Context, id string) (*domain.LaborOffice, error) {
	office := &domain.LaborOffice{}

	query := `SELECT id, name, office_status FROM labor_offices WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&office.ID, &office.Name, &office.OfficeStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get labor office: %w", err)
	}
	return office, nil
}

// GetCompany retrieves a company by ID
func (r *PostgresOrganizationRepository) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	company := &domain.Company{}

	query := `SELECT id, name, client_status, labor_office_id FROM companies WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&company.ID, &company.Name, &company.ClientStatus, &company.LaborOfficeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// ActiveStaffByUser probes for an active labor-office staff record
func (r *PostgresOrganizationRepository) ActiveStaffByUser(ctx context.Context, userID string) (*domain.LaborOfficeStaff, error) {
	staff := &domain.LaborOfficeStaff{}

	query := `
		SELECT s.id, s.user_id, s.labor_office_id, s.position, s.employment_status,
		       u.username, lo.name, lo.office_status, u.lifecycle_status
		FROM labor_office_staff s
		JOIN labor_offices lo ON lo.id = s.labor_office_id
		JOIN users u ON u.id = s.user_id
		WHERE s.user_id = $1 AND s.employment_status = 'active'
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&staff.ID,
		&staff.UserID,
		&staff.LaborOfficeID,
		&staff.Position,
		&staff.EmploymentStatus,
		&staff.Username,
		&staff.OfficeName,
		&staff.OfficeStatus,
		&staff.UserLifecycle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to probe staff record: %w", err)
	}
	return staff, nil
}

// ActiveDepartmentAssignmentByUser probes for an active department assignment
func (r *PostgresOrganizationRepository) ActiveDepartmentAssignmentByUser(ctx context.Context, userID string) (*domain.DepartmentAssignment, error) {
	assignment := &domain.DepartmentAssignment{}

	query := `
		SELECT da.id, da.user_id, da.department_id, d.company_id, da.is_active,
		       c.name, c.client_status
		FROM department_assignments da
		JOIN departments d ON d.id = da.department_id
		JOIN companies c ON c.id = d.company_id
		WHERE da.user_id = $1 AND da.is_active = true
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.DepartmentID,
		&assignment.CompanyID,
		&assignment.IsActive,
		&assignment.CompanyName,
		&assignment.CompanyStatus,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to probe department assignment: %w", err)
	}
	return assignment, nil
}

// ActiveCompanyAssignmentByUser probes for an active direct company assignment
func (r *PostgresOrganizationRepository) ActiveCompanyAssignmentByUser(ctx context.Context, userID string) (*domain.CompanyAssignment, error) {
	assignment := &domain.CompanyAssignment{}

	query := `
		SELECT ca.id, ca.user_id, ca.company_id, ca.is_active, c.name, c.client_status
		FROM company_assignments ca
		JOIN companies c ON c.id = ca.company_id
		WHERE ca.user_id = $1 AND ca.is_active = true
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&assignment.ID,
		&assignment.UserID,
		&assignment.CompanyID,
		&assignment.IsActive,
		&assignment.CompanyName,
		&assignment.CompanyStatus,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to probe company assignment: %w", err)
	}
	return assignment, nil
}

// ActiveWorkerByUser probes for an active worker record
func (r *PostgresOrganizationRepository) ActiveWorkerByUser(ctx context.Context, userID string) (*domain.Worker, error) {
	worker := &domain.Worker{}

	query := `
		SELECT w.id, w.user_id, w.company_id, w.name, w.employment_status,
		       c.name, c.client_status, u.lifecycle_status
		FROM workers w
		JOIN companies c ON c.id = w.company_id
		JOIN users u ON u.id = w.user_id
		WHERE w.user_id = $1 AND w.employment_status = 'active'
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&worker.ID,
		&worker.UserID,
		&worker.CompanyID,
		&worker.Name,
		&worker.EmploymentStatus,
		&worker.CompanyName,
		&worker.CompanyStatus,
		&worker.UserLifecycle,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to probe worker record: %w", err)
	}
	return worker, nil
}

// CreateStaff creates a labor-office staff record
func (r *PostgresOrganizationRepository) CreateStaff(ctx context.Context, staff *domain.LaborOfficeStaff) error {
	query := `
		INSERT INTO labor_office_staff (user_id, labor_office_id, position, employment_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, staff.UserID, staff.LaborOfficeID, staff.Position, staff.EmploymentStatus).Scan(&staff.ID)
	if err != nil {
		return fmt.Errorf("failed to create staff record: %w", err)
	}
	return nil
}

// CreateCompanyAssignment creates a direct company assignment
func (r *PostgresOrganizationRepository) CreateCompanyAssignment(ctx context.Context, assignment *domain.CompanyAssignment) error {
	query := `
		INSERT INTO company_assignments (user_id, company_id, is_active)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, assignment.UserID, assignment.CompanyID, assignment.IsActive).Scan(&assignment.ID)
	if err != nil {
		return fmt.Errorf("failed to create company assignment: %w", err)
	}
	return nil
}

// ListActiveStaffByOffice lists active staff of an office excluding the
// given user and anyone whose own lifecycle is terminated
func (r *PostgresOrganizationRepository) ListActiveStaffByOffice(ctx context.Context, officeID, excludeUserID string) ([]*domain.LaborOfficeStaff, error) {
	query := `
		SELECT s.id, s.user_id, s.labor_office_id, s.position, s.employment_status,
		       u.username, lo.name, lo.office_status, u.lifecycle_status
		FROM labor_office_staff s
		JOIN labor_offices lo ON lo.id = s.labor_office_id
		JOIN users u ON u.id = s.user_id
		WHERE s.labor_office_id = $1
		  AND s.user_id <> $2
		  AND s.employment_status = 'active'
		  AND u.lifecycle_status <> 'terminated'
		ORDER BY u.username
	`

	rows, err := r.db.QueryContext(ctx, query, officeID, excludeUserID)
	if err != nil {
		r.logger.Error("failed to list office staff",
			slog.String("office_id", officeID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list office staff: %w", err)
	}
	defer rows.Close()

	var staff []*domain.LaborOfficeStaff
	for rows.Next() {
		s := &domain.LaborOfficeStaff{}
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.LaborOfficeID,
			&s.Position,
			&s.EmploymentStatus,
			&s.Username,
			&s.OfficeName,
			&s.OfficeStatus,
			&s.UserLifecycle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff row: %w", err)
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}

// ListActiveWorkersByCompany lists active workers joined to their user
// rows, excluding terminated users
func (r *PostgresOrganizationRepository) ListActiveWorkersByCompany(ctx context.Context, companyID string) ([]*domain.Worker, error) {
	query := `
		SELECT w.id, w.user_id, w.company_id, w.name, w.employment_status,
		       c.name, c.client_status, u.lifecycle_status
		FROM workers w
		JOIN companies c ON c.id = w.company_id
		JOIN users u ON u.id = w.user_id
		WHERE w.company_id = $1
		  AND w.employment_status = 'active'
		  AND u.lifecycle_status <> 'terminated'
		ORDER BY w.name
	`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("failed to list company workers",
			slog.String("company_id", companyID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list company workers: %w", err)
	}
	defer rows.Close()

	var workers []*domain.Worker
	for rows.Next() {
		w := &domain.Worker{}
		err := rows.Scan(
			&w.ID,
			&w.UserID,
			&w.CompanyID,
			&w.Name,
			&w.EmploymentStatus,
			&w.CompanyName,
			&w.CompanyStatus,
			&w.UserLifecycle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan worker row: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}
