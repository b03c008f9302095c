// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Account is a registered user and the state of its credential lifecycle.
type Account struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string
	Confirmed    bool
	// TokenHash is the SHA-256 digest of the single pending opaque token,
	// held while a confirmation or password reset is outstanding.
	TokenHash *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAccount creates an unconfirmed account holding a pending token.
func NewAccount(name, email, passwordHash, tokenHash string) (*Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, oops.Code("ACCOUNT_INVALID_NAME").Errorf("name cannot be empty")
	}
	if !IsEmail(email) {
		return nil, oops.Code("ACCOUNT_INVALID_EMAIL").With("email", email).Errorf("invalid email")
	}
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_PASSWORD_HASH").Errorf("password hash cannot be empty")
	}
	if tokenHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_TOKEN").Errorf("token hash cannot be empty")
	}

	now := time.Now().UTC()
	return &Account{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		TokenHash:    &tokenHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasPendingToken reports whether a confirmation or reset is outstanding.
func (a *Account) HasPendingToken() bool {
	return a.TokenHash != nil
}

// Confirm marks the account confirmed and consumes the pending token.
func (a *Account) Confirm() {
	a.Confirmed = true
	a.TokenHash = nil
	a.touch()
}

// SetPendingToken replaces any outstanding token.
func (a *Account) SetPendingToken(tokenHash string) {
	a.TokenHash = &tokenHash
	a.touch()
}

// ReplacePassword installs a new password hash and consumes the pending token.
func (a *Account) ReplacePassword(passwordHash string) {
	a.PasswordHash = passwordHash
	a.TokenHash = nil
	a.touch()
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now().UTC()
}

// AccountRepository is the credential store. Engine flows read a record,
// mutate it and save it back; implementations only need single-record
// atomicity.
type AccountRepository interface {
	// Create stores a new account.
	// Returns ErrDuplicateEmail if the email is already registered.
	Create(ctx context.Context, account *Account) error

	// GetByEmail retrieves an account by email (case-insensitive).
	// Returns ErrNotFound if no account has the given email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByTokenHash retrieves the account whose pending token has this digest.
	// Returns ErrNotFound if no account holds it.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Account, error)

	// Update persists the mutable fields of an existing account.
	// Returns ErrNotFound if the account does not exist.
	Update(ctx context.Context, account *Account) error
}
