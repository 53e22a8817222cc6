package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/engine"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/auth"
	"github.com/shlee8313/4-social-insurnace-sub001/pkg/config"
)

// In-memory fakes so handlers can be exercised over real services
// without Postgres or Redis.

type memUserRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.User
	seq  int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = fmt.Sprintf("u-%d", r.seq)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.byID[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("user %s: not found", id)
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == identifier || u.Email == identifier {
			copied := *u
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %s: not found", identifier)
}

func (r *memUserRepo) UpdateStatus(ctx context.Context, id string, isActive bool, lifecycle domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.IsActive = isActive
		u.LifecycleStatus = lifecycle
	}
	return nil
}

func (r *memUserRepo) UpdateTermination(ctx context.Context, id string, date *time.Time, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.TerminationDate = date
		u.TerminationReason = reason
	}
	return nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (r *memUserRepo) RecordLoginFailure(ctx context.Context, id string, lockedUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.FailedLoginCount++
		if lockedUntil != nil {
			u.LockedUntil = lockedUntil
		}
	}
	return nil
}

func (r *memUserRepo) ResetLoginFailures(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		u.FailedLoginCount = 0
		u.LockedUntil = nil
	}
	return nil
}

func (r *memUserRepo) ListLockExpired(ctx context.Context, now time.Time) ([]*domain.User, error) {
	return nil, nil
}

func (r *memUserRepo) ClearLock(ctx context.Context, id string) error {
	return r.ResetLoginFailures(ctx, id)
}

func (r *memUserRepo) CountLocked(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.byID {
		if u.Locked(now) {
			count++
		}
	}
	return count, nil
}

func (r *memUserRepo) Anonymize(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("user %s: not found", id)
	}
	u.Username = "deleted-" + id
	u.Email = "deleted-" + id + "@invalid.local"
	u.PasswordHash = ""
	u.IsActive = false
	return nil
}

type memRoleRepo struct {
	byUser map[string][]*domain.UserRole
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{byUser: make(map[string][]*domain.UserRole)}
}

func (r *memRoleRepo) GetByCode(ctx context.Context, code string) (*domain.Role, error) {
	return &domain.Role{ID: "role-" + code, Code: code}, nil
}

func (r *memRoleRepo) ListByUser(ctx context.Context, userID string, includeInactive bool) ([]*domain.UserRole, error) {
	var out []*domain.UserRole
	for _, ur := range r.byUser[userID] {
		if ur.IsActive || includeInactive {
			out = append(out, ur)
		}
	}
	return out, nil
}

func (r *memRoleRepo) Assign(ctx context.Context, ur *domain.UserRole) error {
	r.byUser[ur.UserID] = append(r.byUser[ur.UserID], ur)
	return nil
}

func (r *memRoleRepo) SetActiveByUser(ctx context.Context, userID string, active bool) (int64, error) {
	var n int64
	for _, ur := range r.byUser[userID] {
		ur.IsActive = active
		n++
	}
	return n, nil
}

func (r *memRoleRepo) SetActive(ctx context.Context, userRoleID string, active bool) error {
	for _, urs := range r.byUser {
		for _, ur := range urs {
			if ur.ID == userRoleID {
				ur.IsActive = active
			}
		}
	}
	return nil
}

type memOrgRepo struct {
	staff       map[string]*domain.LaborOfficeStaff
	assignments map[string]*domain.CompanyAssignment
	workers     map[string]*domain.Worker
	offices     map[string]*domain.LaborOffice
	companies   map[string]*domain.Company
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{
		staff:       make(map[string]*domain.LaborOfficeStaff),
		assignments: make(map[string]*domain.CompanyAssignment),
		workers:     make(map[string]*domain.Worker),
		offices:     make(map[string]*domain.LaborOffice),
		companies:   make(map[string]*domain.Company),
	}
}

func (r *memOrgRepo) CreateLaborOffice(ctx context.Context, office *domain.LaborOffice) error {
	office.ID = fmt.Sprintf("lo-%d", len(r.offices)+1)
	r.offices[office.ID] = office
	return nil
}

func (r *memOrgRepo) CreateCompany(ctx context.Context, company *domain.Company) error {
	company.ID = fmt.Sprintf("c-%d", len(r.companies)+1)
	r.companies[company.ID] = company
	return nil
}

func (r *memOrgRepo) GetLaborOffice(ctx context.Context, id string) (*domain.LaborOffice, error) {
	return r.offices[id], nil
}

func (r *memOrgRepo) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	return r.companies[id], nil
}

func (r *memOrgRepo) ActiveStaffByUser(ctx context.Context, userID string) (*domain.LaborOfficeStaff, error) {
	return r.staff[userID], nil
}

func (r *memOrgRepo) ActiveDepartmentAssignmentByUser(ctx context.Context, userID string) (*domain.DepartmentAssignment, error) {
	return nil, nil
}

func (r *memOrgRepo) ActiveCompanyAssignmentByUser(ctx context.Context, userID string) (*domain.CompanyAssignment, error) {
	return r.assignments[userID], nil
}

func (r *memOrgRepo) ActiveWorkerByUser(ctx context.Context, userID string) (*domain.Worker, error) {
	return r.workers[userID], nil
}

func (r *memOrgRepo) CreateStaff(ctx context.Context, staff *domain.LaborOfficeStaff) error {
	staff.ID = fmt.Sprintf("s-%d", len(r.staff)+1)
	r.staff[staff.UserID] = staff
	return nil
}

func (r *memOrgRepo) CreateCompanyAssignment(ctx context.Context, assignment *domain.CompanyAssignment) error {
	assignment.ID = fmt.Sprintf("a-%d", len(r.assignments)+1)
	r.assignments[assignment.UserID] = assignment
	return nil
}

func (r *memOrgRepo) ListActiveStaffByOffice(ctx context.Context, officeID, excludeUserID string) ([]*domain.LaborOfficeStaff, error) {
	return nil, nil
}

func (r *memOrgRepo) ListActiveWorkersByCompany(ctx context.Context, companyID string) ([]*domain.Worker, error) {
	return nil, nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]string)}
}

func (s *memSessionStore) Save(ctx context.Context, jti, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[jti] = userID
	return nil
}

func (s *memSessionStore) Consume(ctx context.Context, jti string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.sessions[jti]
	if !ok {
		return "", auth.ErrSessionNotFound
	}
	delete(s.sessions, jti)
	return userID, nil
}

func (s *memSessionStore) Revoke(ctx context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, jti)
	return nil
}

type memKV struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string)}
}

func (s *memKV) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = fmt.Sprintf("%v", value)
	return nil
}

func (s *memKV) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// recordingExecutor captures transition requests and returns a canned result
type recordingExecutor struct {
	calls  []engine.TransitionRequest
	result *engine.TransitionResult
	err    error
}

func (e *recordingExecutor) Execute(ctx context.Context, req engine.TransitionRequest, user *domain.User, current engine.EffectiveStatus) (*engine.TransitionResult, error) {
	e.calls = append(e.calls, req)
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &engine.TransitionResult{
		Success:       true,
		Message:       "상태가 변경되었습니다",
		ExecutionPath: "atomic",
		User: &engine.UserSummary{
			ID:              req.UserID,
			IsActive:        req.NewStatus == domain.StatusActive,
			LifecycleStatus: req.NewStatus,
		},
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:         "test",
		JWTSecret:           "handler-test-secret",
		JWTIssuer:           "insurance-admin",
		JWTAudience:         "insurance-web",
		AccessTokenTTL:      time.Hour,
		RefreshTokenTTL:     24 * time.Hour,
		MaxFailedLogins:     5,
		LockoutDuration:     30 * time.Minute,
		LoginLimitPerMinute: 10,
	}
}

func hashPassword(password string) string {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(hash)
}
