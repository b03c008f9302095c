// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bienesraices/bienesraices/internal/auth"
)

// SessionCookieName holds the signed session token.
const SessionCookieName = "_token"

// CookieConfig sets the attributes of the session cookie. The cookie is
// always HttpOnly with Path=/ and no explicit expiry.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

type sessionKey struct{}

// SessionFromContext returns the claims RequireSession verified.
func SessionFromContext(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(sessionKey{}).(*auth.SessionClaims)
	return claims, ok && claims != nil
}

// RequireSession admits requests carrying a valid session cookie. Others
// are redirected to the login page; an invalid cookie is cleared.
func RequireSession(sessions *auth.SessionIssuer, cookies CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
				return
			}

			claims, err := sessions.Verify(cookie.Value)
			if err != nil {
				logger.DebugContext(r.Context(), "rejected session cookie", "error", err)
				cookies.clear(w)
				http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
