// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth

import "context"

// NotificationKind selects the outbound message a flow requests.
type NotificationKind int

// Notification kinds.
const (
	NotifyRegistration NotificationKind = iota + 1
	NotifyPasswordReset
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyRegistration:
		return "registration"
	case NotifyPasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

// Notification is the data a notification needs. Token is the plaintext
// opaque token; it is never persisted.
type Notification struct {
	Name  string
	Email string
	Token string
}

// Notifier delivers account notifications. A returned error means delivery
// failed; the state change that triggered it is not undone.
type Notifier interface {
	Send(ctx context.Context, kind NotificationKind, n Notification) error
}
