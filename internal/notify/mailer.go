// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

// Package notify delivers account notifications as email.
package notify

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/bienesraices/bienesraices/internal/auth"
	"github.com/bienesraices/bienesraices/internal/observability"
)

// Transport hands a rendered email to a delivery backend.
type Transport interface {
	Deliver(ctx context.Context, email Email) error
}

// Mailer composes and delivers account notifications.
type Mailer struct {
	composer  *Composer
	transport Transport
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewMailer creates a Mailer. metrics may be nil.
func NewMailer(composer *Composer, transport Transport, metrics *observability.Metrics, logger *slog.Logger) (*Mailer, error) {
	if composer == nil {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("composer is required")
	}
	if transport == nil {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("transport is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{composer: composer, transport: transport, metrics: metrics, logger: logger}, nil
}

// Send renders and delivers a notification.
func (m *Mailer) Send(ctx context.Context, kind auth.NotificationKind, n auth.Notification) error {
	err := m.send(ctx, kind, n)
	m.metrics.RecordNotification(kind.String(), err)
	return err
}

func (m *Mailer) send(ctx context.Context, kind auth.NotificationKind, n auth.Notification) error {
	email, err := m.composer.Compose(kind, n)
	if err != nil {
		return err
	}
	if err := m.transport.Deliver(ctx, email); err != nil {
		return oops.Code("NOTIFY_DELIVERY_FAILED").
			With("kind", kind.String()).
			With("to", n.Email).
			Wrap(err)
	}
	m.logger.DebugContext(ctx, "notification delivered", "kind", kind.String(), "to", n.Email)
	return nil
}

var _ auth.Notifier = (*Mailer)(nil)
