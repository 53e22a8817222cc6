package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/engine"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/auth"
)

// In-memory collaborators for service tests.

type memUserRepo struct {
	byID   map[string]*domain.User
	nextID int
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	m := &memUserRepo{byID: map[string]*domain.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.nextID++
	u.ID = fmt.Sprintf("u-%d", m.nextID)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (m *memUserRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.User, error) {
	for _, u := range m.byID {
		if u.Username == identifier || u.Email == identifier {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *memUserRepo) UpdateStatus(_ context.Context, id string, isActive bool, lifecycle domain.Status) error {
	u, ok := m.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	u.IsActive = isActive
	u.LifecycleStatus = lifecycle
	return nil
}

func (m *memUserRepo) UpdateTermination(_ context.Context, id string, date *time.Time, reason *string) error {
	u, ok := m.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	u.TerminationDate = date
	u.TerminationReason = reason
	return nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	if u, ok := m.byID[id]; ok {
		u.PasswordHash = hash
		return nil
	}
	return errors.New("user not found")
}

func (m *memUserRepo) RecordLoginFailure(_ context.Context, id string, lockedUntil *time.Time) error {
	if u, ok := m.byID[id]; ok {
		u.FailedLoginCount++
		if lockedUntil != nil {
			u.LockedUntil = lockedUntil
		}
		return nil
	}
	return errors.New("user not found")
}

func (m *memUserRepo) ResetLoginFailures(_ context.Context, id string) error {
	if u, ok := m.byID[id]; ok {
		u.FailedLoginCount = 0
		u.LockedUntil = nil
		return nil
	}
	return errors.New("user not found")
}

func (m *memUserRepo) ListLockExpired(_ context.Context, now time.Time) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.byID {
		if u.LockedUntil != nil && !u.LockedUntil.After(now) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) ClearLock(ctx context.Context, id string) error {
	return m.ResetLoginFailures(ctx, id)
}

func (m *memUserRepo) CountLocked(_ context.Context, now time.Time) (int, error) {
	count := 0
	for _, u := range m.byID {
		if u.Locked(now) {
			count++
		}
	}
	return count, nil
}

func (m *memUserRepo) Anonymize(_ context.Context, id string) error {
	u, ok := m.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	u.Username = "deleted-" + id
	u.Email = "deleted-" + id + "@invalid.local"
	u.PasswordHash = ""
	u.IsActive = false
	return nil
}

type memRoleRepo struct {
	defs   map[string]*domain.Role
	byUser map[string][]*domain.UserRole
	nextID int
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{defs: map[string]*domain.Role{}, byUser: map[string][]*domain.UserRole{}}
}

func (m *memRoleRepo) defineRole(code, category string) {
	m.defs[code] = &domain.Role{ID: "role-" + code, Code: code, Category: category}
}

func (m *memRoleRepo) GetByCode(_ context.Context, code string) (*domain.Role, error) {
	if r, ok := m.defs[code]; ok {
		return r, nil
	}
	return nil, errors.New("role not found")
}

func (m *memRoleRepo) ListByUser(_ context.Context, userID string, includeInactive bool) ([]*domain.UserRole, error) {
	var out []*domain.UserRole
	for _, r := range m.byUser[userID] {
		if r.IsActive || includeInactive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRoleRepo) Assign(_ context.Context, ur *domain.UserRole) error {
	m.nextID++
	ur.ID = fmt.Sprintf("ur-%d", m.nextID)
	for code, def := range m.defs {
		if def.ID == ur.RoleID {
			ur.RoleCode = code
			ur.RoleCategory = def.Category
		}
	}
	m.byUser[ur.UserID] = append(m.byUser[ur.UserID], ur)
	return nil
}

func (m *memRoleRepo) SetActiveByUser(_ context.Context, userID string, active bool) (int64, error) {
	var n int64
	for _, r := range m.byUser[userID] {
		r.IsActive = active
		n++
	}
	return n, nil
}

func (m *memRoleRepo) SetActive(_ context.Context, userRoleID string, active bool) error {
	for _, roles := range m.byUser {
		for _, r := range roles {
			if r.ID == userRoleID {
				r.IsActive = active
				return nil
			}
		}
	}
	return errors.New("user role not found")
}

type memOrgRepo struct {
	staff       map[string]*domain.LaborOfficeStaff
	assignments map[string]*domain.CompanyAssignment
	workers     map[string]*domain.Worker

	officeStaff    map[string][]*domain.LaborOfficeStaff
	companyWorkers map[string][]*domain.Worker
	nextID         int
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{
		staff:          map[string]*domain.LaborOfficeStaff{},
		assignments:    map[string]*domain.CompanyAssignment{},
		workers:        map[string]*domain.Worker{},
		officeStaff:    map[string][]*domain.LaborOfficeStaff{},
		companyWorkers: map[string][]*domain.Worker{},
	}
}

func (m *memOrgRepo) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memOrgRepo) CreateLaborOffice(_ context.Context, office *domain.LaborOffice) error {
	office.ID = m.id("lo")
	return nil
}

func (m *memOrgRepo) CreateCompany(_ context.Context, company *domain.Company) error {
	company.ID = m.id("c")
	return nil
}

func (m *memOrgRepo) GetLaborOffice(_ context.Context, _ string) (*domain.LaborOffice, error) {
	return nil, errors.New("not found")
}

func (m *memOrgRepo) GetCompany(_ context.Context, _ string) (*domain.Company, error) {
	return nil, errors.New("not found")
}

func (m *memOrgRepo) ActiveStaffByUser(_ context.Context, userID string) (*domain.LaborOfficeStaff, error) {
	return m.staff[userID], nil
}

func (m *memOrgRepo) ActiveDepartmentAssignmentByUser(_ context.Context, _ string) (*domain.DepartmentAssignment, error) {
	return nil, nil
}

func (m *memOrgRepo) ActiveCompanyAssignmentByUser(_ context.Context, userID string) (*domain.CompanyAssignment, error) {
	return m.assignments[userID], nil
}

func (m *memOrgRepo) ActiveWorkerByUser(_ context.Context, userID string) (*domain.Worker, error) {
	return m.workers[userID], nil
}

func (m *memOrgRepo) CreateStaff(_ context.Context, staff *domain.LaborOfficeStaff) error {
	staff.ID = m.id("s")
	m.staff[staff.UserID] = staff
	m.officeStaff[staff.LaborOfficeID] = append(m.officeStaff[staff.LaborOfficeID], staff)
	return nil
}

func (m *memOrgRepo) CreateCompanyAssignment(_ context.Context, assignment *domain.CompanyAssignment) error {
	assignment.ID = m.id("a")
	m.assignments[assignment.UserID] = assignment
	return nil
}

func (m *memOrgRepo) ListActiveStaffByOffice(_ context.Context, officeID, excludeUserID string) ([]*domain.LaborOfficeStaff, error) {
	var out []*domain.LaborOfficeStaff
	for _, s := range m.officeStaff[officeID] {
		if s.UserID == excludeUserID || s.UserLifecycle == domain.StatusTerminated {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memOrgRepo) ListActiveWorkersByCompany(_ context.Context, companyID string) ([]*domain.Worker, error) {
	var out []*domain.Worker
	for _, w := range m.companyWorkers[companyID] {
		if w.UserLifecycle == domain.StatusTerminated {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

type memSessionStore struct {
	sessions map[string]string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[string]string{}}
}

func (m *memSessionStore) Save(_ context.Context, jti, userID string) error {
	m.sessions[jti] = userID
	return nil
}

func (m *memSessionStore) Consume(_ context.Context, jti string) (string, error) {
	userID, ok := m.sessions[jti]
	if !ok {
		return "", auth.ErrSessionNotFound
	}
	delete(m.sessions, jti)
	return userID, nil
}

func (m *memSessionStore) Revoke(_ context.Context, jti string) error {
	delete(m.sessions, jti)
	return nil
}

type memKV struct {
	values map[string]string
}

func newMemKV() *memKV {
	return &memKV{values: map[string]string{}}
}

func (m *memKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.values[key] = fmt.Sprint(value)
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

// recordingExecutor captures transition requests without touching storage
type recordingExecutor struct {
	result *engine.TransitionResult
	err    error
	calls  []engine.TransitionRequest
}

func (e *recordingExecutor) Execute(_ context.Context, req engine.TransitionRequest, user *domain.User, current engine.EffectiveStatus) (*engine.TransitionResult, error) {
	e.calls = append(e.calls, req)
	if e.err != nil {
		return nil, e.err
	}
	if e.result != nil {
		return e.result, nil
	}
	return &engine.TransitionResult{
		Success:       true,
		ExecutionPath: "atomic",
		User: &engine.UserSummary{
			ID: user.ID, Username: user.Username, Email: user.Email,
			IsActive: req.NewStatus == domain.StatusActive, LifecycleStatus: req.NewStatus,
		},
		EntityInfo:     &current,
		CascadeResults: &engine.CascadeResult{Enabled: true},
	}, nil
}
