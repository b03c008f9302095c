// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password registration and reset accept.
const MinPasswordLength = 6

// Validation messages.
const (
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "That does not look like an email"
	MsgPasswordRequired = "Password is required"
	MsgNameRequired     = "Name is required"
	MsgPasswordTooShort = "Password must be at least 6 characters"
	MsgPasswordMismatch = "Passwords do not match"
)

// Violation is a single failed rule.
type Violation struct {
	Field   string
	Message string
}

// Violations is an ordered list of failed rules. Empty means valid.
type Violations []Violation

// Empty reports whether no rule failed.
func (v Violations) Empty() bool { return len(v) == 0 }

// Messages returns the violation messages in rule order.
func (v Violations) Messages() []string {
	out := make([]string, len(v))
	for i, violation := range v {
		out[i] = violation.Message
	}
	return out
}

// Validator accumulates rule results. Every rule runs, so the result lists
// all failures in the order the rules were applied.
type Validator struct {
	violations Violations
}

func (v *Validator) fail(field, msg string) {
	v.violations = append(v.violations, Violation{Field: field, Message: msg})
}

// Email checks that value is a bare address of the form local@domain.tld.
func (v *Validator) Email(field, value, msg string) *Validator {
	if !IsEmail(value) {
		v.fail(field, msg)
	}
	return v
}

// Required checks that value is not blank.
func (v *Validator) Required(field, value, msg string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.fail(field, msg)
	}
	return v
}

// Present checks that value is not empty. Whitespace counts as content, so
// secrets accepted by MinLength are never rejected here.
func (v *Validator) Present(field, value, msg string) *Validator {
	if value == "" {
		v.fail(field, msg)
	}
	return v
}

// MinLength checks that value has at least n characters.
func (v *Validator) MinLength(field, value string, n int, msg string) *Validator {
	if utf8.RuneCountInString(value) < n {
		v.fail(field, msg)
	}
	return v
}

// Equals checks that value equals other.
func (v *Validator) Equals(field, value, other, msg string) *Validator {
	if value != other {
		v.fail(field, msg)
	}
	return v
}

// Result returns the accumulated violations.
func (v *Validator) Result() Violations {
	return v.violations
}

// IsEmail reports whether s is a single bare address with a dotted domain.
func IsEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	if at <= 0 {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// LoginInput is the submitted login form.
type LoginInput struct {
	Email    string
	Password string
}

// RegisterInput is the submitted registration form.
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// ResetRequestInput is the submitted forgot-password form.
type ResetRequestInput struct {
	Email string
}

// ResetPasswordInput is the submitted new-password form.
type ResetPasswordInput struct {
	Password string
}

// ValidateLogin checks email format and password presence.
func ValidateLogin(in LoginInput) Violations {
	v := &Validator{}
	v.Email("email", in.Email, MsgEmailRequired).
		Present("password", in.Password, MsgPasswordRequired)
	return v.Result()
}

// ValidateRegistration checks name, email format, password length and
// confirmation.
func ValidateRegistration(in RegisterInput) Violations {
	v := &Validator{}
	v.Required("name", in.Name, MsgNameRequired).
		Email("email", in.Email, MsgEmailInvalid).
		MinLength("password", in.Password, MinPasswordLength, MsgPasswordTooShort).
		Equals("password_confirmation", in.PasswordConfirmation, in.Password, MsgPasswordMismatch)
	return v.Result()
}

// ValidateResetRequest checks email format.
func ValidateResetRequest(in ResetRequestInput) Violations {
	v := &Validator{}
	v.Email("email", in.Email, MsgEmailInvalid)
	return v.Result()
}

// ValidateNewPassword checks the replacement password length.
func ValidateNewPassword(in ResetPasswordInput) Violations {
	v := &Validator{}
	v.MinLength("password", in.Password, MinPasswordLength, MsgPasswordTooShort)
	return v.Result()
}
