// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

// Package memory provides an in-process auth.AccountRepository for
// development and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/bienesraices/bienesraices/internal/auth"
)

// AccountRepository keeps accounts in a map. Reads return copies so callers
// can mutate what they get back without touching stored state.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[ulid.ULID]*auth.Account
	byEmail  map[string]ulid.ULID
}

// NewAccountRepository creates an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[ulid.ULID]*auth.Account),
		byEmail:  make(map[string]ulid.ULID),
	}
}

func emailKey(email string) string {
	return strings.ToLower(email)
}

func clone(a *auth.Account) *auth.Account {
	c := *a
	if a.TokenHash != nil {
		h := *a.TokenHash
		c.TokenHash = &h
	}
	return &c
}

// Create stores a new account.
func (r *AccountRepository) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(account.Email)
	if _, taken := r.byEmail[key]; taken {
		return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
			With("email", account.Email).
			Wrap(auth.ErrDuplicateEmail)
	}
	if _, exists := r.accounts[account.ID]; exists {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("id", account.ID.String()).
			Errorf("account id already exists")
	}

	r.accounts[account.ID] = clone(account)
	r.byEmail[key] = account.ID
	return nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	return clone(r.accounts[id]), nil
}

// GetByTokenHash retrieves the account holding the pending token digest.
func (r *AccountRepository) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tokenHash != "" {
		for _, a := range r.accounts {
			if a.TokenHash != nil && *a.TokenHash == tokenHash {
				return clone(a), nil
			}
		}
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With("lookup", "token").Wrap(auth.ErrNotFound)
}

// Update replaces the stored account. Email is immutable and is not changed.
func (r *AccountRepository) Update(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[account.ID]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", account.ID.String()).Wrap(auth.ErrNotFound)
	}

	updated := clone(account)
	updated.Email = stored.Email
	updated.CreatedAt = stored.CreatedAt
	r.accounts[account.ID] = updated
	return nil
}

// Len returns the number of stored accounts.
func (r *AccountRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
