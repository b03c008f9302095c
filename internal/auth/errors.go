// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth

import (
	"errors"
	"strings"
)

// Repository sentinels. Implementations wrap these with an oops code.
var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned by Create when the email is already taken.
	ErrDuplicateEmail = errors.New("email already in use")
)

// User-facing flow failures. Their messages are shown to the visitor as-is.
var (
	ErrAccountNotFound   = errors.New("account does not exist")
	ErrNotConfirmed      = errors.New("must confirm account first")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrTokenInvalid      = errors.New("invalid or expired token")
)

// ValidationError carries the violations that stopped a flow, plus the
// non-sensitive input to echo back to the form.
type ValidationError struct {
	Violations Violations
	Echo       Echo
}

// Echo holds submitted fields that are safe to render again. Passwords never
// appear here.
type Echo struct {
	Name  string
	Email string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations.Messages(), "; ")
}

// Kind classifies flow errors for the presentation layer.
type Kind int

// Error kinds.
const (
	KindInfrastructure Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "infrastructure"
	}
}

// UserFacing reports whether errors of this kind are rendered back to the
// visitor rather than failing the request.
func (k Kind) UserFacing() bool {
	return k != KindInfrastructure
}

// ErrorKind classifies err. Anything that is not a known flow failure is
// infrastructure.
func ErrorKind(err error) Kind {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrTokenInvalid):
		return KindNotFound
	case errors.Is(err, ErrAlreadyRegistered):
		return KindConflict
	case errors.Is(err, ErrNotConfirmed), errors.Is(err, ErrIncorrectPassword):
		return KindUnauthorized
	default:
		return KindInfrastructure
	}
}

// UserMessage returns the message to show for a user-facing error, or the
// empty string for infrastructure failures.
func UserMessage(err error) string {
	for _, sentinel := range []error{
		ErrAccountNotFound, ErrNotConfirmed, ErrIncorrectPassword,
		ErrAlreadyRegistered, ErrTokenInvalid,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return ""
}
