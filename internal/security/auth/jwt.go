package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the identity and resolved status of a session
type Claims struct {
	UserID          string   `json:"user_id"`
	Username        string   `json:"username"`
	EntityType      string   `json:"entity_type"`
	EffectiveStatus string   `json:"effective_status"`
	RoleCodes       []string `json:"role_codes,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the minimal claim set of a refresh token. The ID
// (jti) keys the server-side session record.
type RefreshClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 tokens
type TokenManager struct {
	secret   string
	issuer   string
	audience string
}

// NewTokenManager creates a token manager
func NewTokenManager(secret, issuer, audience string) *TokenManager {
	if secret == "" {
		secret = "change-me-in-production"
	}
	if issuer == "" {
		issuer = "status-engine"
	}
	return &TokenManager{secret: secret, issuer: issuer, audience: audience}
}

// GenerateAccessToken issues an access token for a resolved session
func (tm *TokenManager) GenerateAccessToken(userID, username, entityType, effectiveStatus string, roleCodes []string, expiresIn time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user_id required")
	}
	now := time.Now()
	claims := Claims{
		UserID:          userID,
		Username:        username,
		EntityType:      entityType,
		EffectiveStatus: effectiveStatus,
		RoleCodes:       roleCodes,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tm.secret))
}

// GenerateRefreshToken issues a refresh token and returns it with its jti
func (tm *TokenManager) GenerateRefreshToken(userID string, expiresIn time.Duration) (string, string, error) {
	if userID == "" {
		return "", "", fmt.Errorf("user_id required")
	}
	jti, err := newTokenID()
	if err != nil {
		return "", "", err
	}
	now := time.Now()
	claims := RefreshClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// ValidateToken parses and validates an access token
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, tm.keyFunc,
		jwt.WithIssuer(tm.issuer))
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ValidateRefreshToken parses and validates a refresh token
func (tm *TokenManager) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RefreshClaims{}, tm.keyFunc,
		jwt.WithIssuer(tm.issuer))
	if err != nil {
		return nil, fmt.Errorf("parse refresh token failed: %w", err)
	}
	claims, ok := token.Claims.(*RefreshClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid refresh token claims")
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("refresh token missing id")
	}
	return claims, nil
}

func (tm *TokenManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(tm.secret), nil
}

// ExtractToken pulls the bearer token out of an Authorization header
func ExtractToken(authHeader string) (string, error) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", fmt.Errorf("invalid authorization header")
	}
	return parts[1], nil
}

func newTokenID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
