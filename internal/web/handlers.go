// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/bienesraices/bienesraices/internal/auth"
	"github.com/bienesraices/bienesraices/internal/observability"
	"github.com/bienesraices/bienesraices/pkg/errutil"
)

// maxFormBytes caps a form body.
const maxFormBytes = 1 << 20

// Page titles.
const (
	titleLogin          = "Iniciar Sesión"
	titleRegister       = "Crear Cuenta"
	titleForgotPassword = "Recuperar Contraseña"
	titleResetPassword  = "Reestablece tu Password"
	titleAdmin          = "Mis Propiedades"
)

// Auth flow names used as metric labels.
const (
	flowLogin         = "login"
	flowRegister      = "register"
	flowConfirm       = "confirm"
	flowResetRequest  = "reset_request"
	flowResetCheck    = "reset_check"
	flowResetComplete = "reset_complete"
)

// Handlers serves the account pages.
type Handlers struct {
	service  *auth.Service
	sessions *auth.SessionIssuer
	renderer Renderer
	cookies  CookieConfig
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewHandlers creates Handlers. metrics may be nil.
func NewHandlers(
	service *auth.Service,
	sessions *auth.SessionIssuer,
	renderer Renderer,
	cookies CookieConfig,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (*Handlers, error) {
	if service == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("auth service is required")
	}
	if sessions == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("session issuer is required")
	}
	if renderer == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("renderer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:  service,
		sessions: sessions,
		renderer: renderer,
		cookies:  cookies,
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// ShowLogin renders the login form.
func (h *Handlers) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, ViewLogin, Page{Title: titleLogin})
}

// Login authenticates and sets the session cookie.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	in := auth.LoginInput{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.flowFailed(w, r, flowLogin, ViewLogin, Page{Title: titleLogin, User: &auth.Echo{Email: in.Email}}, err)
		return
	}

	h.metrics.RecordAuthFlow(flowLogin, observability.OutcomeSuccess)
	h.cookies.set(w, result.SessionToken)
	http.Redirect(w, r, "/mis-propiedades", http.StatusSeeOther)
}

// ShowRegister renders the registration form.
func (h *Handlers) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, ViewRegister, Page{Title: titleRegister})
}

// Register creates an account and tells the visitor to check their email.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	in := auth.RegisterInput{
		Name:                 formValue(r, "nombre", "name"),
		Email:                r.PostFormValue("email"),
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: formValue(r, "repetir_password", "passwordConfirmation"),
	}

	if _, err := h.service.Register(r.Context(), in); err != nil {
		page := Page{Title: titleRegister, User: &auth.Echo{Name: in.Name, Email: in.Email}}
		h.flowFailed(w, r, flowRegister, ViewRegister, page, err)
		return
	}

	h.metrics.RecordAuthFlow(flowRegister, observability.OutcomeSuccess)
	h.render(w, r, http.StatusOK, ViewMessage, Page{
		Title:   "Cuenta Creada Correctamente",
		Message: "Hemos enviado un email de confirmación a tu correo electrónico",
	})
}

// Confirm redeems a confirmation token.
func (h *Handlers) Confirm(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.Confirm(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		h.tokenFailed(w, r, flowConfirm, Page{
			Title:   "Error al Confirmar Cuenta",
			Message: "Hubo un error al confirmar tu cuenta, intenta de nuevo",
			Error:   true,
		}, err)
		return
	}

	h.metrics.RecordAuthFlow(flowConfirm, observability.OutcomeSuccess)
	h.render(w, r, http.StatusOK, ViewConfirmAccount, Page{
		Title:   "Cuenta Confirmada",
		Message: "La cuenta se confirmó correctamente",
	})
}

// ShowForgotPassword renders the reset request form.
func (h *Handlers) ShowForgotPassword(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, ViewForgotPassword, Page{Title: titleForgotPassword})
}

// RequestReset issues a reset token and emails instructions.
func (h *Handlers) RequestReset(w http.ResponseWriter, r *http.Request) {
	in := auth.ResetRequestInput{Email: r.PostFormValue("email")}

	if _, err := h.service.RequestReset(r.Context(), in); err != nil {
		page := Page{Title: titleForgotPassword, User: &auth.Echo{Email: in.Email}}
		h.flowFailed(w, r, flowResetRequest, ViewForgotPassword, page, err)
		return
	}

	h.metrics.RecordAuthFlow(flowResetRequest, observability.OutcomeSuccess)
	h.render(w, r, http.StatusOK, ViewMessage, Page{
		Title:   "Reestablece tu Password",
		Message: "Hemos enviado un email con las instrucciones para recuperar tu contraseña",
	})
}

// CheckResetToken shows the new password form for a live reset token.
func (h *Handlers) CheckResetToken(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.CheckResetToken(r.Context(), mux.Vars(r)["token"]); err != nil {
		h.tokenFailed(w, r, flowResetCheck, resetTokenFailedPage(), err)
		return
	}

	h.metrics.RecordAuthFlow(flowResetCheck, observability.OutcomeSuccess)
	h.render(w, r, http.StatusOK, ViewResetPassword, Page{Title: titleResetPassword})
}

// ResetPassword stores the new password and consumes the token.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	in := auth.ResetPasswordInput{Password: r.PostFormValue("password")}

	_, err := h.service.ResetPassword(r.Context(), mux.Vars(r)["token"], in)
	switch {
	case err == nil:
	case auth.ErrorKind(err) == auth.KindValidation:
		h.flowFailed(w, r, flowResetComplete, ViewResetPassword, Page{Title: titleResetPassword}, err)
		return
	default:
		h.tokenFailed(w, r, flowResetComplete, resetTokenFailedPage(), err)
		return
	}

	h.metrics.RecordAuthFlow(flowResetComplete, observability.OutcomeSuccess)
	h.render(w, r, http.StatusOK, ViewConfirmAccount, Page{
		Title:   "Password Actualizado",
		Message: "Tu password se actualizó correctamente",
	})
}

// Admin is the protected landing page after login.
func (h *Handlers) Admin(w http.ResponseWriter, r *http.Request) {
	claims, _ := SessionFromContext(r.Context())
	h.render(w, r, http.StatusOK, ViewAdmin, Page{Title: titleAdmin, Session: claims})
}

func resetTokenFailedPage() Page {
	return Page{
		Title:   "Reestablece tu Password",
		Message: "Hubo un error al validar tu información, intenta de nuevo",
		Error:   true,
	}
}

// flowFailed renders view with the violations or flow message carried by
// err. Infrastructure errors become a 500.
func (h *Handlers) flowFailed(w http.ResponseWriter, r *http.Request, flow, view string, page Page, err error) {
	if !auth.ErrorKind(err).UserFacing() {
		h.metrics.RecordAuthFlow(flow, observability.OutcomeError)
		h.serverError(w, r, err)
		return
	}

	h.metrics.RecordAuthFlow(flow, observability.OutcomeRejected)
	if verr, ok := auth.ValidationErrorOf(err); ok {
		page.Errors = localizeViolations(verr.Violations)
	} else {
		page.Errors = []auth.Violation{{Message: localize(auth.UserMessage(err))}}
	}
	h.render(w, r, http.StatusOK, view, page)
}

// tokenFailed renders the confirmation page in its error state for an
// unknown token. Infrastructure errors become a 500.
func (h *Handlers) tokenFailed(w http.ResponseWriter, r *http.Request, flow string, page Page, err error) {
	if !auth.ErrorKind(err).UserFacing() {
		h.metrics.RecordAuthFlow(flow, observability.OutcomeError)
		h.serverError(w, r, err)
		return
	}
	h.metrics.RecordAuthFlow(flow, observability.OutcomeRejected)
	h.render(w, r, http.StatusOK, ViewConfirmAccount, page)
}

// parseForms reads POST bodies up to maxFormBytes before anything else
// touches them. gorilla/csrf parses the form to find its token and drops
// parse errors, so the limit has to be enforced ahead of it.
func (h *Handlers) parseForms(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
			if err := r.ParseForm(); err != nil {
				h.logger.DebugContext(r.Context(), "unreadable form", "error", err)
				h.render(w, r, http.StatusBadRequest, ViewError, Page{
					Title:   "Solicitud inválida",
					Message: "No pudimos leer el formulario enviado",
					Error:   true,
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	errutil.LogErrorContext(r.Context(), h.logger, "request failed", err,
		"method", r.Method,
		"route", routeTemplate(r))
	h.render(w, r, http.StatusInternalServerError, ViewError, Page{
		Title:   "Error",
		Message: "Ocurrió un error, intenta de nuevo más tarde",
		Error:   true,
	})
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, view string, page Page) {
	if token := csrf.Token(r); token != "" {
		page.CSRFToken = token
		page.CSRFField = csrfFieldName
	}
	if err := h.renderer.Render(w, status, view, page); err != nil {
		errutil.LogErrorContext(r.Context(), h.logger, "render failed", err, "view", view)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// formValue returns the value of the first field name the form submitted,
// even when that value is blank.
func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if _, ok := r.PostForm[name]; ok {
			return r.PostForm.Get(name)
		}
	}
	return ""
}
