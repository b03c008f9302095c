// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/samber/oops"

	"github.com/bienesraices/bienesraices/internal/auth"
)

//go:embed views
var viewsFS embed.FS

// View names.
const (
	ViewLogin          = "auth/login"
	ViewRegister       = "auth/registro"
	ViewConfirmAccount = "auth/confirmar-cuenta"
	ViewForgotPassword = "auth/olvide-password"
	ViewResetPassword  = "auth/reset-password"
	ViewMessage        = "templates/mensaje"
	ViewError          = "templates/error"
	ViewAdmin          = "propiedades/admin"
)

var allViews = []string{
	ViewLogin, ViewRegister, ViewConfirmAccount, ViewForgotPassword,
	ViewResetPassword, ViewMessage, ViewError, ViewAdmin,
}

// Page is the payload every view receives.
type Page struct {
	Title     string
	CSRFField string
	CSRFToken string
	Errors    []auth.Violation
	Message   string
	// Error marks Message as a failure on confirmation-style pages.
	Error   bool
	User    *auth.Echo
	Session *auth.SessionClaims
}

// Renderer writes a view with its payload.
type Renderer interface {
	Render(w http.ResponseWriter, status int, view string, page Page) error
}

// TemplateRenderer renders the embedded html/template views.
type TemplateRenderer struct {
	views map[string]*template.Template
}

// NewTemplateRenderer parses every view with the shared layout.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	views := make(map[string]*template.Template, len(allViews))
	for _, name := range allViews {
		tmpl, err := template.New(name).ParseFS(viewsFS, "views/layout.html", "views/"+name+".html")
		if err != nil {
			return nil, oops.Code("WEB_TEMPLATE_INVALID").With("view", name).Wrap(err)
		}
		views[name] = tmpl
	}
	return &TemplateRenderer{views: views}, nil
}

// Render executes view into a buffer and writes it with status. Nothing is
// written if execution fails.
func (r *TemplateRenderer) Render(w http.ResponseWriter, status int, view string, page Page) error {
	tmpl, ok := r.views[view]
	if !ok {
		return oops.Code("WEB_UNKNOWN_VIEW").With("view", view).Errorf("unknown view")
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return oops.Code("WEB_RENDER_FAILED").With("view", view).Wrap(err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err //nolint:wrapcheck // client write failure, nothing to add
}
