package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/infrastructure/redis"
)

// ErrSessionNotFound means the refresh token was never issued, already
// rotated, or revoked.
var ErrSessionNotFound = errors.New("refresh session not found")

// RefreshStore tracks issued refresh tokens server-side so rotation can
// invalidate the previous token. Keys expire with the token, so stale
// sessions clean themselves up.
type RefreshStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRefreshStore creates a refresh session store
func NewRefreshStore(client *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{redis: client, ttl: ttl}
}

func refreshKey(jti string) string {
	return "refresh:" + jti
}

// Save records a newly issued refresh token
func (s *RefreshStore) Save(ctx context.Context, jti, userID string) error {
	if err := s.redis.Set(ctx, refreshKey(jti), userID, s.ttl); err != nil {
		return fmt.Errorf("failed to save refresh session: %w", err)
	}
	return nil
}

// Consume validates and removes a refresh token in one step, returning
// the user it was issued to. A second Consume of the same jti fails,
// which is what makes rotation effective.
func (s *RefreshStore) Consume(ctx context.Context, jti string) (string, error) {
	userID, err := s.redis.Get(ctx, refreshKey(jti))
	if err != nil {
		if redis.IsNotFound(err) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("failed to load refresh session: %w", err)
	}
	if err := s.redis.Delete(ctx, refreshKey(jti)); err != nil {
		return "", fmt.Errorf("failed to rotate refresh session: %w", err)
	}
	return userID, nil
}

// Revoke removes a refresh token without issuing a replacement
func (s *RefreshStore) Revoke(ctx context.Context, jti string) error {
	return s.redis.Delete(ctx, refreshKey(jti))
}
