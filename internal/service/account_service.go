package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/engine"
	"github.com/shlee8313/4-social-insurnace-sub001/pkg/cache"
)

const roleCacheTTL = 10 * time.Minute

var (
	// ErrInvalidRegistration covers incomplete or malformed signup input
	ErrInvalidRegistration = errors.New("invalid registration")
	// ErrDuplicateAccount means the email or username is already taken
	ErrDuplicateAccount = errors.New("account already exists")
)

// Organization kinds accepted at registration
const (
	OrgTypeCompany     = "company"
	OrgTypeLaborOffice = "labor_office"
)

// RegisterRequest carries a self-service registration
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	OrgType  string `json:"orgType"`
	OrgName  string `json:"orgName"`
}

// RegisterResult reports the created account and organization
type RegisterResult struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	RoleCode       string `json:"roleCode"`
}

// AccountService creates accounts together with their organization,
// initial admin role and affiliation row, so a fresh registration
// resolves to a proper entity type on first login.
type AccountService struct {
	users     domain.UserRepository
	roles     domain.RoleRepository
	orgs      domain.OrganizationRepository
	roleCache *cache.Cache
	logger    *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	users domain.UserRepository,
	roles domain.RoleRepository,
	orgs domain.OrganizationRepository,
	logger *slog.Logger,
) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountService{
		users:     users,
		roles:     roles,
		orgs:      orgs,
		roleCache: cache.New(),
		logger:    logger,
	}
}

// Register creates the user, the organization and the admin linkage
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OrgName = strings.TrimSpace(req.OrgName)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalidRegistration)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidRegistration)
	}
	if req.OrgType != OrgTypeCompany && req.OrgType != OrgTypeLaborOffice {
		return nil, fmt.Errorf("%w: unsupported organization type %q", ErrInvalidRegistration, req.OrgType)
	}
	if req.OrgName == "" {
		return nil, fmt.Errorf("%w: organization name is required", ErrInvalidRegistration)
	}

	if existing, err := s.users.GetByIdentifier(ctx, req.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrDuplicateAccount)
	}
	if existing, err := s.users.GetByIdentifier(ctx, req.Username); err == nil && existing != nil {
		return nil, fmt.Errorf("%w: username already taken", ErrDuplicateAccount)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register account")
	}

	user := &domain.User{
		Username:        req.Username,
		Email:           req.Email,
		PasswordHash:    string(hash),
		IsActive:        true,
		LifecycleStatus: domain.StatusActive,
		EmailVerified:   false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		return nil, errors.New("failed to register account")
	}

	var orgID, roleCode string
	switch req.OrgType {
	case OrgTypeLaborOffice:
		orgID, roleCode, err = s.attachLaborOffice(ctx, user, req.OrgName)
	case OrgTypeCompany:
		orgID, roleCode, err = s.attachCompany(ctx, user, req.OrgName)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		slog.String("user_id", user.ID),
		slog.String("org_type", req.OrgType),
		slog.String("org_id", orgID),
	)

	return &RegisterResult{
		UserID:         user.ID,
		Username:       user.Username,
		Email:          user.Email,
		OrganizationID: orgID,
		RoleCode:       roleCode,
	}, nil
}

func (s *AccountService) attachLaborOffice(ctx context.Context, user *domain.User, name string) (string, string, error) {
	office := &domain.LaborOffice{Name: name, OfficeStatus: domain.StatusActive}
	if err := s.orgs.CreateLaborOffice(ctx, office); err != nil {
		return "", "", err
	}

	role, err := s.roleByCode(ctx, engine.RoleLaborAdmin)
	if err != nil {
		return "", "", err
	}
	ur := &domain.UserRole{
		UserID:        user.ID,
		RoleID:        role.ID,
		IsActive:      true,
		LaborOfficeID: &office.ID,
	}
	if err := s.roles.Assign(ctx, ur); err != nil {
		return "", "", err
	}

	staff := &domain.LaborOfficeStaff{
		UserID:           user.ID,
		LaborOfficeID:    office.ID,
		Position:         "대표",
		EmploymentStatus: domain.StatusActive,
	}
	if err := s.orgs.CreateStaff(ctx, staff); err != nil {
		return "", "", err
	}
	return office.ID, role.Code, nil
}

func (s *AccountService) attachCompany(ctx context.Context, user *domain.User, name string) (string, string, error) {
	company := &domain.Company{Name: name, ClientStatus: domain.StatusActive}
	if err := s.orgs.CreateCompany(ctx, company); err != nil {
		return "", "", err
	}

	role, err := s.roleByCode(ctx, engine.RoleCompanyAdmin)
	if err != nil {
		return "", "", err
	}
	ur := &domain.UserRole{
		UserID:    user.ID,
		RoleID:    role.ID,
		IsActive:  true,
		CompanyID: &company.ID,
	}
	if err := s.roles.Assign(ctx, ur); err != nil {
		return "", "", err
	}

	assignment := &domain.CompanyAssignment{
		UserID:    user.ID,
		CompanyID: company.ID,
		IsActive:  true,
	}
	if err := s.orgs.CreateCompanyAssignment(ctx, assignment); err != nil {
		return "", "", err
	}
	return company.ID, role.Code, nil
}

// roleByCode loads a role definition through a short-lived cache
func (s *AccountService) roleByCode(ctx context.Context, code string) (*domain.Role, error) {
	if cached, ok := s.roleCache.Get("role:" + code); ok {
		return cached.(*domain.Role), nil
	}

	role, err := s.roles.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load role %s: %w", code, err)
	}
	s.roleCache.Set("role:"+code, role, roleCacheTTL)
	return role, nil
}
