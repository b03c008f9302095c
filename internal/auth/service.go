// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Service runs the account credential flows: login, registration,
// confirmation and password reset. Each flow validates input, looks the
// account up, applies its guards and only then mutates state or emits a
// notification.
//
// Flows read an account, change it in memory and save it back without
// locking. Two concurrent flows on the same account may interleave; the last
// Update wins.
type Service struct {
	accounts AccountRepository
	hasher   PasswordHasher
	sessions *SessionIssuer
	notifier Notifier
	logger   *slog.Logger
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Account      *Account
	SessionToken string
}

// NewService creates a Service that logs to slog.Default().
func NewService(accounts AccountRepository, hasher PasswordHasher, sessions *SessionIssuer, notifier Notifier) (*Service, error) {
	return NewServiceWithLogger(accounts, hasher, sessions, notifier, slog.Default())
}

// NewServiceWithLogger creates a Service with an explicit logger.
func NewServiceWithLogger(
	accounts AccountRepository,
	hasher PasswordHasher,
	sessions *SessionIssuer,
	notifier Notifier,
	logger *slog.Logger,
) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("session issuer is required")
	}
	if notifier == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("notifier is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("logger is required")
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
	}, nil
}

// Login authenticates by email and password. Checks run in a fixed order:
// the account must exist, then be confirmed, then the password must match.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if v := ValidateLogin(in); !v.Empty() {
		return nil, invalid(v, Echo{Email: in.Email})
	}

	account, err := s.accounts.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").With("email", in.Email).Wrap(ErrAccountNotFound)
		}
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "get account by email").Wrap(err)
	}

	if !account.Confirmed {
		return nil, oops.Code("AUTH_NOT_CONFIRMED").With("account_id", account.ID.String()).Wrap(ErrNotConfirmed)
	}

	ok, err := s.hasher.Verify(in.Password, account.PasswordHash)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if !ok {
		return nil, oops.Code("AUTH_INCORRECT_PASSWORD").With("account_id", account.ID.String()).Wrap(ErrIncorrectPassword)
	}

	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		s.upgradeHash(ctx, account, in.Password)
	}

	token, err := s.sessions.Issue(account.ID, account.Name)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue session").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account logged in", "account_id", account.ID.String())
	return &LoginResult{Account: account, SessionToken: token}, nil
}

// upgradeHash re-hashes a legacy password. Failures are logged; login
// succeeds regardless.
func (s *Service) upgradeHash(ctx context.Context, account *Account, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "hash_upgrade",
			"account_id", account.ID.String(),
			"error", err.Error())
		return
	}
	previous := account.PasswordHash
	account.PasswordHash = newHash
	account.touch()
	if err := s.accounts.Update(ctx, account); err != nil {
		account.PasswordHash = previous
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"operation", "hash_upgrade",
			"account_id", account.ID.String(),
			"error", err.Error())
	}
}

// Register creates an unconfirmed account and requests a confirmation
// notification carrying a fresh token. An email that is already registered
// is rejected whatever the state of the existing account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	echo := Echo{Name: in.Name, Email: in.Email}
	if v := ValidateRegistration(in); !v.Empty() {
		return nil, invalid(v, echo)
	}

	_, err := s.accounts.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, alreadyRegistered(in.Email)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "get account by email").Wrap(err)
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	token, tokenHash, err := GenerateOpaqueToken()
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "generate token").Wrap(err)
	}

	account, err := NewAccount(in.Name, in.Email, passwordHash, tokenHash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "build account").Wrap(err)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, alreadyRegistered(in.Email)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").With("operation", "create account").Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID.String())

	if err := s.notify(ctx, NotifyRegistration, account, token); err != nil {
		return nil, err
	}
	return account, nil
}

// Confirm marks the account holding token as confirmed and consumes the
// token. A second call with the same token fails with ErrTokenInvalid.
func (s *Service) Confirm(ctx context.Context, token string) (*Account, error) {
	account, err := s.lookupToken(ctx, token, "AUTH_CONFIRM_FAILED")
	if err != nil {
		return nil, err
	}

	account.Confirm()
	if err := s.save(ctx, account, "AUTH_CONFIRM_FAILED"); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account confirmed", "account_id", account.ID.String())
	return account, nil
}

// RequestReset replaces the account's pending token with a fresh one and
// requests reset instructions. Unconfirmed accounts may reset too.
func (s *Service) RequestReset(ctx context.Context, in ResetRequestInput) (*Account, error) {
	if v := ValidateResetRequest(in); !v.Empty() {
		return nil, invalid(v, Echo{Email: in.Email})
	}

	account, err := s.accounts.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_ACCOUNT_NOT_FOUND").With("email", in.Email).Wrap(ErrAccountNotFound)
		}
		return nil, oops.Code("AUTH_RESET_REQUEST_FAILED").With("operation", "get account by email").Wrap(err)
	}

	token, tokenHash, err := GenerateOpaqueToken()
	if err != nil {
		return nil, oops.Code("AUTH_RESET_REQUEST_FAILED").With("operation", "generate token").Wrap(err)
	}

	account.SetPendingToken(tokenHash)
	if err := s.save(ctx, account, "AUTH_RESET_REQUEST_FAILED"); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "password reset requested", "account_id", account.ID.String())

	if err := s.notify(ctx, NotifyPasswordReset, account, token); err != nil {
		return nil, err
	}
	return account, nil
}

// CheckResetToken returns the account holding token without changing it.
func (s *Service) CheckResetToken(ctx context.Context, token string) (*Account, error) {
	return s.lookupToken(ctx, token, "AUTH_RESET_CHECK_FAILED")
}

// ResetPassword installs a new password for the account holding token and
// consumes the token.
func (s *Service) ResetPassword(ctx context.Context, token string, in ResetPasswordInput) (*Account, error) {
	if v := ValidateNewPassword(in); !v.Empty() {
		return nil, invalid(v, Echo{})
	}

	account, err := s.lookupToken(ctx, token, "AUTH_RESET_PASSWORD_FAILED")
	if err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	account.ReplacePassword(passwordHash)
	if err := s.save(ctx, account, "AUTH_RESET_PASSWORD_FAILED"); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "password reset completed", "account_id", account.ID.String())
	return account, nil
}

func (s *Service) lookupToken(ctx context.Context, token, failCode string) (*Account, error) {
	if token == "" {
		return nil, oops.Code("AUTH_TOKEN_INVALID").With("reason", "empty").Wrap(ErrTokenInvalid)
	}
	account, err := s.accounts.GetByTokenHash(ctx, HashOpaqueToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_TOKEN_INVALID").Wrap(ErrTokenInvalid)
		}
		return nil, oops.Code(failCode).With("operation", "get account by token").Wrap(err)
	}
	return account, nil
}

func (s *Service) save(ctx context.Context, account *Account, failCode string) error {
	if err := s.accounts.Update(ctx, account); err != nil {
		return oops.Code(failCode).
			With("operation", "update account").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	return nil
}

// notify dispatches after the mutation is persisted. A failure is reported
// but the mutation stands.
func (s *Service) notify(ctx context.Context, kind NotificationKind, account *Account, token string) error {
	err := s.notifier.Send(ctx, kind, Notification{
		Name:  account.Name,
		Email: account.Email,
		Token: token,
	})
	if err != nil {
		return oops.Code("AUTH_NOTIFY_FAILED").
			With("kind", kind.String()).
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	return nil
}

func invalid(v Violations, echo Echo) error {
	return oops.Code("AUTH_VALIDATION_FAILED").Wrap(&ValidationError{Violations: v, Echo: echo})
}

func alreadyRegistered(email string) error {
	return oops.Code("AUTH_ALREADY_REGISTERED").With("email", email).Wrap(ErrAlreadyRegistered)
}

// ValidationErrorOf extracts the ValidationError carried by err, if any.
func ValidationErrorOf(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
