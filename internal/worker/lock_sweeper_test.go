package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

type lockRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func (r *lockRepo) Create(context.Context, *domain.User) error { return nil }
func (r *lockRepo) GetByID(context.Context, string) (*domain.User, error) {
	return nil, nil
}
func (r *lockRepo) GetByIdentifier(context.Context, string) (*domain.User, error) {
	return nil, nil
}
func (r *lockRepo) UpdateStatus(context.Context, string, bool, domain.Status) error { return nil }
func (r *lockRepo) UpdateTermination(context.Context, string, *time.Time, *string) error {
	return nil
}
func (r *lockRepo) UpdatePassword(context.Context, string, string) error         { return nil }
func (r *lockRepo) RecordLoginFailure(context.Context, string, *time.Time) error { return nil }
func (r *lockRepo) ResetLoginFailures(context.Context, string) error             { return nil }
func (r *lockRepo) Anonymize(context.Context, string) error                      { return nil }

func (r *lockRepo) ListLockExpired(_ context.Context, now time.Time) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for _, u := range r.users {
		if u.LockedUntil != nil && !u.LockedUntil.After(now) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *lockRepo) ClearLock(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.LockedUntil = nil
		u.FailedLoginCount = 0
	}
	return nil
}

func (r *lockRepo) CountLocked(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, u := range r.users {
		if u.Locked(now) {
			count++
		}
	}
	return count, nil
}

func TestSweepClearsOnlyExpiredLocks(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	repo := &lockRepo{users: map[string]*domain.User{
		"u1": {ID: "u1", LockedUntil: &past, FailedLoginCount: 5},
		"u2": {ID: "u2", LockedUntil: &future, FailedLoginCount: 5},
		"u3": {ID: "u3"},
	}}

	w := NewLockSweeper(repo, nil, time.Minute)
	w.sweep(context.Background())

	if repo.users["u1"].LockedUntil != nil {
		t.Fatalf("expired lock should be cleared")
	}
	if repo.users["u1"].FailedLoginCount != 0 {
		t.Fatalf("clearing a lock resets the failure counter")
	}
	if repo.users["u2"].LockedUntil == nil {
		t.Fatalf("active lock must stay in place")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	repo := &lockRepo{users: map[string]*domain.User{}}
	w := NewLockSweeper(repo, nil, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop on context cancel")
	}
}
