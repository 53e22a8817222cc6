package domain

import "context"

// LaborOffice is a labor-management office administering client companies
type LaborOffice struct {
	ID           string
	Name         string
	OfficeStatus Status
}

// Company is a client company, optionally administered by a labor office
type Company struct {
	ID            string
	Name          string
	ClientStatus  Status
	LaborOfficeID *string
}

// LaborOfficeStaff links a user to a labor office with a position.
// Read methods join office name/status and the user's lifecycle status.
type LaborOfficeStaff struct {
	ID               string
	UserID           string
	LaborOfficeID    string
	Position         string
	EmploymentStatus Status
	Username         string
	OfficeName       string
	OfficeStatus     Status
	UserLifecycle    Status
}

// DepartmentAssignment links a user to a company through a department
type DepartmentAssignment struct {
	ID            string
	UserID        string
	DepartmentID  string
	CompanyID     string
	IsActive      bool
	CompanyName   string
	CompanyStatus Status
}

// CompanyAssignment links a user directly to a company
type CompanyAssignment struct {
	ID            string
	UserID        string
	CompanyID     string
	IsActive      bool
	CompanyName   string
	CompanyStatus Status
}

// Worker is an employment record of a user at a company
type Worker struct {
	ID               string
	UserID           string
	CompanyID        string
	Name             string
	EmploymentStatus Status
	CompanyName      string
	CompanyStatus    Status
	UserLifecycle    Status
}

// OrganizationRepository defines data access for organizations and the
// affiliation rows linking users to them.
//
// The single-row probe methods (Active*ByUser) return (nil, nil) when no
// matching row exists; a non-nil error always means the query itself
// failed. The affiliation resolver depends on that distinction.
type OrganizationRepository interface {
	CreateLaborOffice(ctx context.Context, office *LaborOffice) error
	CreateCompany(ctx context.Context, company *Company) error
	GetLaborOffice(ctx context.Context, id string) (*LaborOffice, error)
	GetCompany(ctx context.Context, id string) (*Company, error)

	ActiveStaffByUser(ctx context.Context, userID string) (*LaborOfficeStaff, error)
	ActiveDepartmentAssignmentByUser(ctx context.Context, userID string) (*DepartmentAssignment, error)
	ActiveCompanyAssignmentByUser(ctx context.Context, userID string) (*CompanyAssignment, error)
	ActiveWorkerByUser(ctx context.Context, userID string) (*Worker, error)

	CreateStaff(ctx context.Context, staff *LaborOfficeStaff) error
	CreateCompanyAssignment(ctx context.Context, assignment *CompanyAssignment) error

	// ListActiveStaffByOffice lists active staff of an office excluding the
	// given user and excluding anyone whose own lifecycle is terminated
	ListActiveStaffByOffice(ctx context.Context, officeID, excludeUserID string) ([]*LaborOfficeStaff, error)
	// ListActiveWorkersByCompany lists active workers joined to their user
	// rows, excluding terminated users
	ListActiveWorkersByCompany(ctx context.Context, companyID string) ([]*Worker, error)
}
