// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

// Package web serves the account pages: login, registration, account
// confirmation and password reset.
package web

import (
	"crypto/rand"
	"crypto/sha256"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
)

// csrfFieldName is the hidden form field carrying the CSRF token.
const csrfFieldName = "_csrf"

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// CSRFKey signs CSRF tokens. When empty a random key is generated, so
	// tokens stop validating after a restart.
	CSRFKey string
	Cookies CookieConfig
	Logger  *slog.Logger
}

// NewRouter mounts the account pages under /auth and the protected area.
func NewRouter(h *Handlers, opts RouterOptions) *mux.Router {
	logger := opts.Logger
	if logger == nil {
		logger = h.logger
	}

	csrfKey := opts.CSRFKey
	if csrfKey == "" {
		logger.Warn("no csrf key configured, using a per-process key")
		csrfKey = rand.Text()
	}

	r := mux.NewRouter()
	r.Use(requestID, recoverPanics(logger), accessLog(h.metrics, logger), securityHeaders,
		h.parseForms, csrfProtect(csrfKey, opts.Cookies.Secure, h))

	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/auth/login", http.StatusSeeOther)
	}).Methods(http.MethodGet)

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/login", h.ShowLogin).Methods(http.MethodGet)
	a.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	a.HandleFunc("/registro", h.ShowRegister).Methods(http.MethodGet)
	a.HandleFunc("/registro", h.Register).Methods(http.MethodPost)
	a.HandleFunc("/confirmar/{token}", h.Confirm).Methods(http.MethodGet)
	a.HandleFunc("/olvide-password", h.ShowForgotPassword).Methods(http.MethodGet)
	a.HandleFunc("/olvide-password", h.RequestReset).Methods(http.MethodPost)
	a.HandleFunc("/olvide-password/{token}", h.CheckResetToken).Methods(http.MethodGet)
	a.HandleFunc("/olvide-password/{token}", h.ResetPassword).Methods(http.MethodPost)

	protected := RequireSession(h.sessions, h.cookies, logger)
	r.Handle("/mis-propiedades", protected(http.HandlerFunc(h.Admin))).Methods(http.MethodGet)

	return r
}

// csrfProtect wraps gorilla/csrf. The key is the SHA-256 of the configured
// secret so any length works. Requests without TLS are marked plaintext so
// the Referer check does not demand https.
func csrfProtect(secret string, secure bool, h *Handlers) mux.MiddlewareFunc {
	key := sha256.Sum256([]byte(secret))
	protect := csrf.Protect(key[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName(csrfFieldName),
		csrf.ErrorHandler(http.HandlerFunc(h.csrfFailed)),
	)
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS == nil {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func (h *Handlers) csrfFailed(w http.ResponseWriter, r *http.Request) {
	h.logger.WarnContext(r.Context(), "csrf check failed",
		"route", routeTemplate(r),
		"reason", csrf.FailureReason(r))
	h.render(w, r, http.StatusForbidden, ViewError, Page{
		Title:   "Formulario expirado",
		Message: "El formulario expiró, recarga la página e intenta de nuevo",
		Error:   true,
	})
}
