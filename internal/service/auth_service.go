package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/engine"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/infrastructure/redis"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/observability/metrics"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/audit"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/auth"
	"github.com/shlee8313/4-social-insurnace-sub001/pkg/config"
)

// Authentication sentinel errors
var (
	ErrMissingCredentials = errors.New("identifier and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session is invalid or expired")
)

// AccountLockedError reports a login lockout with its expiry
type AccountLockedError struct {
	LockedUntil time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.LockedUntil.Format(time.RFC3339))
}

// EmailNotVerifiedError blocks login until the address is verified
type EmailNotVerifiedError struct {
	MaskedEmail string
	CanResend   bool
}

func (e *EmailNotVerifiedError) Error() string {
	return "email not verified"
}

// SessionStore tracks issued refresh tokens for rotation
type SessionStore interface {
	Save(ctx context.Context, jti, userID string) error
	Consume(ctx context.Context, jti string) (string, error)
	Revoke(ctx context.Context, jti string) error
}

// KeyValueStore is the slice of the redis client the service needs for
// short-lived tokens
type KeyValueStore interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// AuthResult is the outcome of a successful authentication
type AuthResult struct {
	User            *engine.UserSummary    `json:"user"`
	Roles           []string               `json:"roles"`
	EffectiveStatus engine.EffectiveStatus `json:"effectiveStatus"`
	AccessToken     string                 `json:"accessToken"`
	RefreshToken    string                 `json:"refreshToken"`
	ExpiresIn       int                    `json:"expiresIn"`
	RedirectTo      string                 `json:"redirectTo,omitempty"`
}

// AuthService implements the session lifecycle: login with lockout
// protection, refresh token rotation and password reset.
type AuthService struct {
	users    domain.UserRepository
	roles    domain.RoleRepository
	resolver *engine.AffiliationResolver
	tokens   *auth.TokenManager
	sessions SessionStore
	kv       KeyValueStore
	audit    *audit.Logger
	cfg      *config.Config
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	users domain.UserRepository,
	roles domain.RoleRepository,
	resolver *engine.AffiliationResolver,
	tokens *auth.TokenManager,
	sessions SessionStore,
	kv KeyValueStore,
	auditLog *audit.Logger,
	cfg *config.Config,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		users:    users,
		roles:    roles,
		resolver: resolver,
		tokens:   tokens,
		sessions: sessions,
		kv:       kv,
		audit:    auditLog,
		cfg:      cfg,
		logger:   logger,
	}
}

// Authenticate validates credentials and returns a resolved session.
// The lock check runs before password verification so a locked account
// leaks nothing about whether the password was right.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*AuthResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		metrics.RecordLogin("invalid")
		s.audit.LogLogin(ctx, "", identifier, "failed", "unknown identifier")
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if user.Locked(now) {
		metrics.RecordLogin("locked")
		s.audit.LogLogin(ctx, user.ID, identifier, "locked", "")
		return nil, &AccountLockedError{LockedUntil: *user.LockedUntil}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, user, now)
		metrics.RecordLogin("invalid")
		s.audit.LogLogin(ctx, user.ID, identifier, "failed", "wrong password")
		return nil, ErrInvalidCredentials
	}

	if !user.EmailVerified {
		metrics.RecordLogin("unverified")
		s.audit.LogLogin(ctx, user.ID, identifier, "unverified", "")
		return nil, &EmailNotVerifiedError{MaskedEmail: maskEmail(user.Email), CanResend: true}
	}

	if err := s.users.ResetLoginFailures(ctx, user.ID); err != nil {
		s.logger.Warn("failed to reset login failures",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	result, err := s.buildSession(ctx, user)
	if err != nil {
		return nil, err
	}

	metrics.RecordLogin("success")
	s.audit.LogLogin(ctx, user.ID, identifier, "success", "")
	return result, nil
}

// recordFailure bumps the failure counter and applies the lockout once
// the configured threshold is reached
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User, now time.Time) {
	var lockedUntil *time.Time
	if user.FailedLoginCount+1 >= s.cfg.MaxFailedLogins {
		until := now.Add(s.cfg.LockoutDuration)
		lockedUntil = &until
		s.logger.Warn("account locked after repeated failures",
			slog.String("user_id", user.ID),
			slog.Time("locked_until", until),
		)
	}
	if err := s.users.RecordLoginFailure(ctx, user.ID, lockedUntil); err != nil {
		s.logger.Error("failed to record login failure",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// buildSession resolves the user's status and issues a token pair
func (s *AuthService) buildSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	roles, err := s.roles.ListByUser(ctx, user.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	aff := s.resolver.ResolveForUser(ctx, user)
	effective := engine.ComputeEffectiveStatus(user, aff, roles, false)

	roleCodes := make([]string, 0, len(roles))
	for _, r := range roles {
		roleCodes = append(roleCodes, r.RoleCode)
	}

	accessToken, err := s.tokens.GenerateAccessToken(
		user.ID, user.Username,
		string(effective.EntityType), string(effective.EffectiveStatus),
		roleCodes, s.cfg.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, jti, err := s.tokens.GenerateRefreshToken(user.ID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	if err := s.sessions.Save(ctx, jti, user.ID); err != nil {
		return nil, err
	}

	result := &AuthResult{
		User: &engine.UserSummary{
			ID:              user.ID,
			Username:        user.Username,
			Email:           user.Email,
			IsActive:        user.IsActive,
			LifecycleStatus: user.LifecycleStatus,
		},
		Roles:           roleCodes,
		EffectiveStatus: effective,
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		ExpiresIn:       int(s.cfg.AccessTokenTTL.Seconds()),
	}

	// admins keep full access even when not fully active so they can
	// act on the very status problem blocking their organization
	if !effective.Active() && !bypassesActiveGate(effective, roleCodes) {
		result.RedirectTo = "/account/restricted"
	}

	return result, nil
}

// bypassesActiveGate reports whether a non-active session still gets
// unrestricted routing
func bypassesActiveGate(effective engine.EffectiveStatus, roleCodes []string) bool {
	switch effective.EntityType {
	case engine.EntitySystem, engine.EntityLaborOfficeAdmin:
		return true
	}
	for _, code := range roleCodes {
		if code == engine.RoleLaborAdmin {
			return true
		}
	}
	return false
}

// Refresh rotates a refresh token: the presented token is consumed and
// a new pair is issued, so a replayed token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	userID, err := s.sessions.Consume(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) {
			s.audit.LogTokenRefresh(ctx, claims.UserID, "replayed_or_expired")
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if userID != claims.UserID {
		s.audit.LogTokenRefresh(ctx, claims.UserID, "user_mismatch")
		return nil, ErrSessionInvalid
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrSessionInvalid
	}

	result, err := s.buildSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.audit.LogTokenRefresh(ctx, userID, "success")
	return result, nil
}

// RequestPasswordReset stores a reset token for the account, if one
// exists. It always succeeds from the caller's point of view so the
// endpoint cannot be used to enumerate accounts. Delivery is delegated
// to the mail collaborator; here it is only logged.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.users.GetByIdentifier(ctx, email)
	if err != nil {
		s.logger.Debug("password reset requested for unknown email")
		return nil
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.kv.Set(ctx, "pwreset:"+token, user.ID, 15*time.Minute); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.logger.Info("password reset email queued",
		slog.String("user_id", user.ID),
		slog.String("email", maskEmail(user.Email)),
	)
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" || len(newPassword) < 8 {
		return errors.New("token and a password of at least 8 characters are required")
	}

	userID, err := s.kv.Get(ctx, "pwreset:"+token)
	if err != nil {
		if redis.IsNotFound(err) {
			return errors.New("reset token is invalid or expired")
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, "pwreset:"+token); err != nil {
		s.logger.Warn("failed to delete consumed reset token",
			slog.String("error", err.Error()),
		)
	}

	s.audit.LogAction(ctx, userID, "password_reset", "user", userID, "success", "")
	return nil
}

// maskEmail hides most of the local part: "worker1@acme.kr" -> "w***@acme.kr"
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
