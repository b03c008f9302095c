// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/wneessen/go-mail"
)

// LogTransport writes emails to the log instead of sending them. It is the
// development default: confirmation and reset links show up in the output.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogTransport{logger: logger}
}

// Deliver logs the email at INFO.
func (t *LogTransport) Deliver(ctx context.Context, email Email) error {
	t.logger.InfoContext(ctx, "email not sent: log transport",
		"from", email.From,
		"to", email.To,
		"subject", email.Subject,
		"body", email.Text)
	return nil
}

// SMTPConfig configures an SMTPTransport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// Timeout bounds the dial and each SMTP command. Defaults to 10s.
	Timeout time.Duration
}

// SMTPTransport sends email through an SMTP relay. STARTTLS is used when the
// server offers it; PLAIN auth is used when a username is set.
type SMTPTransport struct {
	cfg SMTPConfig
}

// NewSMTPTransport creates an SMTPTransport.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	t := &SMTPTransport{cfg: cfg}
	if _, err := t.newClient(); err != nil {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").With("host", cfg.Host).Wrap(err)
	}
	return t, nil
}

// newClient builds a client per delivery so concurrent sends never share a
// connection.
func (t *SMTPTransport) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(t.cfg.Port),
		mail.WithTimeout(t.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password))
	}
	return mail.NewClient(t.cfg.Host, opts...)
}

// Deliver sends the email.
func (t *SMTPTransport) Deliver(ctx context.Context, email Email) error {
	msg, err := buildMessage(email)
	if err != nil {
		return err
	}

	client, err := t.newClient()
	if err != nil {
		return oops.Code("SMTP_CLIENT_FAILED").With("host", t.cfg.Host).Wrap(err)
	}

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	if err := client.DialWithContext(ctx); err != nil {
		return oops.Code("SMTP_DIAL_FAILED").With("addr", addr).Wrap(err)
	}
	if err := client.Send(msg); err != nil {
		_ = client.Close()
		return oops.Code("SMTP_SEND_FAILED").With("addr", addr).Wrap(err)
	}
	if err := client.Close(); err != nil {
		return oops.Code("SMTP_SEND_FAILED").With("addr", addr).With("operation", "quit").Wrap(err)
	}
	return nil
}

// buildMessage encodes email as a multipart/alternative message with a text
// body and an HTML alternative.
func buildMessage(email Email) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(email.From); err != nil {
		return nil, oops.Code("NOTIFY_ADDRESS_INVALID").With("from", email.From).Wrap(err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, oops.Code("NOTIFY_ADDRESS_INVALID").With("to", email.To).Wrap(err)
	}
	msg.Subject(email.Subject)
	msg.SetMessageIDWithValue(ulid.Make().String() + "@bienesraices")
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, email.Text)
	msg.AddAlternativeString(mail.TypeTextHTML, email.HTML)
	return msg, nil
}

// DefaultResendBaseURL is the Resend API root.
const DefaultResendBaseURL = "https://api.resend.com"

// ResendConfig configures a ResendTransport.
type ResendConfig struct {
	APIKey  string
	BaseURL string
	// Client defaults to an http.Client with a 5s timeout.
	Client *http.Client
}

// ResendTransport sends email through the Resend HTTP API.
type ResendTransport struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewResendTransport creates a ResendTransport.
func NewResendTransport(cfg ResendConfig) (*ResendTransport, error) {
	if cfg.APIKey == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("resend api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultResendBaseURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 5 * time.Second}
	}
	return &ResendTransport{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  cfg.Client,
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Deliver posts the email to the /emails endpoint.
func (t *ResendTransport) Deliver(ctx context.Context, email Email) error {
	payload, err := json.Marshal(resendRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		HTML:    email.HTML,
		Text:    email.Text,
	})
	if err != nil {
		return oops.Code("RESEND_ENCODE_FAILED").Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return oops.Code("RESEND_REQUEST_FAILED").Wrap(err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return oops.Code("RESEND_REQUEST_FAILED").Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)) //nolint:errcheck // diagnostic only
		var apiErr resendError
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return oops.Code("RESEND_REJECTED").
			With("status", resp.StatusCode).
			Errorf("resend rejected email: %s", msg)
	}
	return nil
}
