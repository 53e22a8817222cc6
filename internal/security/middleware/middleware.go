package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/audit"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/auth"
	"github.com/shlee8313/4-social-insurnace-sub001/internal/security/ratelimit"
)

type ClaimsContextKey struct{}
type RequestIDContextKey struct{}

// publicPath reports whether a path is reachable without a session
func publicPath(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/api/auth/")
}

// RequestIDMiddleware assigns each request an ID for log correlation
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			buf := make([]byte, 8)
			if _, err := rand.Read(buf); err == nil {
				id = hex.EncodeToString(buf)
			}
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), RequestIDContextKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// JWTMiddleware validates the session token and stores the claims in
// the request context. The access token cookie is accepted as a
// fallback for browser navigation without an Authorization header.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// CORS preflights carry no credentials
			if r.Method == http.MethodOptions || publicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := ""
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				extracted, err := auth.ExtractToken(authHeader)
				if err != nil {
					http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
					return
				}
				tokenString = extracted
			} else if cookie, err := r.Cookie("accessToken"); err == nil {
				tokenString = cookie.Value
			}

			if tokenString == "" {
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RateLimitMiddleware applies the default per-client limit. Sensitive
// endpoints apply their own stricter limits inside their handlers.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/healthz", "/readyz", "/metrics":
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.Allow(ClientIdentifier(r)) {
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuditMiddleware records the initiation of mutating requests
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := ""
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				userID = claims.UserID
			}

			if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/status") {
				// The mux has not matched yet, so the target ID comes
				// from the path: /api/users/{id}/status
				target := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/status")
				auditLog.LogAction(r.Context(), userID, "status_change", "user", target, "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIdentifier derives the rate-limit key for a request: the
// authenticated user when present, the client IP otherwise
func ClientIdentifier(r *http.Request) string {
	if claims := GetClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetClaimsFromContext extracts validated session claims, if any
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c := ctx.Value(ClaimsContextKey{}); c != nil {
		return c.(*auth.Claims)
	}
	return nil
}

// GetRequestIDFromContext extracts the request ID, if any
func GetRequestIDFromContext(ctx context.Context) string {
	if id := ctx.Value(RequestIDContextKey{}); id != nil {
		return id.(string)
	}
	return ""
}
