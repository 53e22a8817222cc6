package handler

import (
	"net/http"
	"time"

	"github.com/shlee8313/4-social-insurnace-sub001/pkg/config"
)

// setSessionCookies writes the token pair. The access token is readable
// by the frontend, the refresh token is HttpOnly and scoped to the auth
// endpoints.
func setSessionCookies(w http.ResponseWriter, cfg *config.Config, accessToken, refreshToken string) {
	secure := cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(cfg.AccessTokenTTL.Seconds()),
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    refreshToken,
		Path:     "/api/auth",
		MaxAge:   int(cfg.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookies expires both cookies
func clearSessionCookies(w http.ResponseWriter, cfg *config.Config) {
	secure := cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     "accessToken",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "refreshToken",
		Value:    "",
		Path:     "/api/auth",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
