package engine

import (
	"context"
	"errors"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// In-memory repositories for engine tests.

type memUserRepo struct {
	byID map[string]*domain.User

	statusErr      error
	terminationErr error
	anonymizeErr   error
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	m := &memUserRepo{byID: map[string]*domain.User{}}
	for _, u := range users {
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
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
	if m.statusErr != nil {
		return m.statusErr
	}
	u, ok := m.byID[id]
	if !ok {
		return errors.New("user not found")
	}
	u.IsActive = isActive
	u.LifecycleStatus = lifecycle
	return nil
}

func (m *memUserRepo) UpdateTermination(_ context.Context, id string, date *time.Time, reason *string) error {
	if m.terminationErr != nil {
		return m.terminationErr
	}
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
		u.LockedUntil = lockedUntil
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

func (m *memUserRepo) ClearLock(_ context.Context, id string) error {
	return m.ResetLoginFailures(context.Background(), id)
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
	if m.anonymizeErr != nil {
		return m.anonymizeErr
	}
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
	byUser map[string][]*domain.UserRole

	bulkErr   error
	perRowErr map[string]error
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{byUser: map[string][]*domain.UserRole{}, perRowErr: map[string]error{}}
}

func (m *memRoleRepo) GetByCode(_ context.Context, code string) (*domain.Role, error) {
	return &domain.Role{ID: "role-" + code, Code: code}, nil
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
	m.byUser[ur.UserID] = append(m.byUser[ur.UserID], ur)
	return nil
}

func (m *memRoleRepo) SetActiveByUser(_ context.Context, userID string, active bool) (int64, error) {
	if m.bulkErr != nil {
		return 0, m.bulkErr
	}
	var n int64
	for _, r := range m.byUser[userID] {
		r.IsActive = active
		n++
	}
	return n, nil
}

func (m *memRoleRepo) SetActive(_ context.Context, userRoleID string, active bool) error {
	if err, ok := m.perRowErr[userRoleID]; ok {
		return err
	}
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
	depts       map[string]*domain.DepartmentAssignment
	assignments map[string]*domain.CompanyAssignment
	workers     map[string]*domain.Worker

	officeStaff    map[string][]*domain.LaborOfficeStaff
	companyWorkers map[string][]*domain.Worker

	probeErr error
}

func newMemOrgRepo() *memOrgRepo {
	return &memOrgRepo{
		staff:          map[string]*domain.LaborOfficeStaff{},
		depts:          map[string]*domain.DepartmentAssignment{},
		assignments:    map[string]*domain.CompanyAssignment{},
		workers:        map[string]*domain.Worker{},
		officeStaff:    map[string][]*domain.LaborOfficeStaff{},
		companyWorkers: map[string][]*domain.Worker{},
	}
}

func (m *memOrgRepo) CreateLaborOffice(_ context.Context, _ *domain.LaborOffice) error { return nil }
func (m *memOrgRepo) CreateCompany(_ context.Context, _ *domain.Company) error         { return nil }

func (m *memOrgRepo) GetLaborOffice(_ context.Context, id string) (*domain.LaborOffice, error) {
	return nil, errors.New("not found")
}

func (m *memOrgRepo) GetCompany(_ context.Context, id string) (*domain.Company, error) {
	return nil, errors.New("not found")
}

func (m *memOrgRepo) ActiveStaffByUser(_ context.Context, userID string) (*domain.LaborOfficeStaff, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return m.staff[userID], nil
}

func (m *memOrgRepo) ActiveDepartmentAssignmentByUser(_ context.Context, userID string) (*domain.DepartmentAssignment, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return m.depts[userID], nil
}

func (m *memOrgRepo) ActiveCompanyAssignmentByUser(_ context.Context, userID string) (*domain.CompanyAssignment, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return m.assignments[userID], nil
}

func (m *memOrgRepo) ActiveWorkerByUser(_ context.Context, userID string) (*domain.Worker, error) {
	if m.probeErr != nil {
		return nil, m.probeErr
	}
	return m.workers[userID], nil
}

func (m *memOrgRepo) CreateStaff(_ context.Context, s *domain.LaborOfficeStaff) error {
	m.staff[s.UserID] = s
	m.officeStaff[s.LaborOfficeID] = append(m.officeStaff[s.LaborOfficeID], s)
	return nil
}

func (m *memOrgRepo) CreateCompanyAssignment(_ context.Context, a *domain.CompanyAssignment) error {
	m.assignments[a.UserID] = a
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

type memTransitionRepo struct {
	result *domain.StatusProcedureResult
	err    error
	calls  int

	lastActing  string
	lastTarget  string
	lastStatus  domain.Status
	lastCascade bool
}

func (m *memTransitionRepo) ExecuteStatusProcedure(_ context.Context, actingUserID, targetUserID string, newStatus domain.Status, reason string, cascade bool) (*domain.StatusProcedureResult, error) {
	m.calls++
	m.lastActing = actingUserID
	m.lastTarget = targetUserID
	m.lastStatus = newStatus
	m.lastCascade = cascade
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.StatusProcedureResult{CascadeApplied: cascade}, nil
}

func activeUser(id string) *domain.User {
	return &domain.User{
		ID:              id,
		Username:        "user-" + id,
		Email:           id + "@example.com",
		IsActive:        true,
		LifecycleStatus: domain.StatusActive,
		EmailVerified:   true,
	}
}

func role(id, userID, code, category string, active bool) *domain.UserRole {
	return &domain.UserRole{
		ID:           id,
		UserID:       userID,
		RoleID:       "role-" + code,
		RoleCode:     code,
		RoleCategory: category,
		IsActive:     active,
	}
}
