// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package notify

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"github.com/samber/oops"

	"github.com/bienesraices/bienesraices/internal/auth"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Email is a fully rendered message ready for a Transport.
type Email struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

type mailTemplate struct {
	subject string
	path    string
	name    string
}

var mailTemplates = map[auth.NotificationKind]mailTemplate{
	auth.NotifyRegistration: {
		subject: "Confirma tu cuenta en BienesRaices.com",
		path:    "/auth/confirmar/",
		name:    "registration",
	},
	auth.NotifyPasswordReset: {
		subject: "Reestablece tu password en BienesRaices.com",
		path:    "/auth/olvide-password/",
		name:    "password_reset",
	},
}

// Composer renders notifications into emails whose links point at baseURL.
type Composer struct {
	baseURL string
	from    string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

// NewComposer parses the embedded templates. baseURL must be absolute.
func NewComposer(baseURL, from string) (*Composer, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").
			With("base_url", baseURL).
			Errorf("base URL must be absolute")
	}
	if strings.TrimSpace(from) == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("sender address is required")
	}

	html, err := htmltemplate.ParseFS(templatesFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, oops.Code("NOTIFY_TEMPLATE_INVALID").Wrap(err)
	}
	text, err := texttemplate.ParseFS(templatesFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, oops.Code("NOTIFY_TEMPLATE_INVALID").Wrap(err)
	}

	return &Composer{
		baseURL: strings.TrimRight(baseURL, "/"),
		from:    from,
		html:    html,
		text:    text,
	}, nil
}

// Link returns the URL a notification of kind points the recipient at.
func (c *Composer) Link(kind auth.NotificationKind, token string) (string, error) {
	tmpl, ok := mailTemplates[kind]
	if !ok {
		return "", oops.Code("NOTIFY_UNKNOWN_KIND").With("kind", kind.String()).Errorf("unknown notification kind")
	}
	return c.baseURL + tmpl.path + url.PathEscape(token), nil
}

// Compose renders the email for a notification.
func (c *Composer) Compose(kind auth.NotificationKind, n auth.Notification) (Email, error) {
	link, err := c.Link(kind, n.Token)
	if err != nil {
		return Email{}, err
	}
	tmpl := mailTemplates[kind]
	data := struct {
		Name string
		Link string
	}{Name: n.Name, Link: link}

	var html, text bytes.Buffer
	if err := c.html.ExecuteTemplate(&html, tmpl.name+".html.tmpl", data); err != nil {
		return Email{}, oops.Code("NOTIFY_RENDER_FAILED").With("kind", kind.String()).Wrap(err)
	}
	if err := c.text.ExecuteTemplate(&text, tmpl.name+".txt.tmpl", data); err != nil {
		return Email{}, oops.Code("NOTIFY_RENDER_FAILED").With("kind", kind.String()).Wrap(err)
	}

	return Email{
		From:    c.from,
		To:      n.Email,
		Subject: tmpl.subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
