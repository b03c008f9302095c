// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session defaults.
const (
	DefaultSessionTTL    = 24 * time.Hour
	DefaultSessionIssuer = "bienesraices"
)

// ErrSessionInvalid is returned when a session token fails verification.
var ErrSessionInvalid = errors.New("invalid session")

// SessionClaims asserts an authenticated account identity.
type SessionClaims struct {
	AccountID string `json:"id"`
	Name      string `json:"nombre"`
	jwt.RegisteredClaims
}

// SessionConfig configures a SessionIssuer.
type SessionConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// SessionIssuer signs and verifies HS256 session tokens.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewSessionIssuer creates a SessionIssuer. The secret must not be empty.
func NewSessionIssuer(cfg SessionConfig) (*SessionIssuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, oops.Code("SESSION_CONFIG_INVALID").Errorf("session secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultSessionIssuer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SessionIssuer{
		secret: cfg.Secret,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    cfg.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (s *SessionIssuer) TTL() time.Duration { return s.ttl }

// Issue signs a session token for the account.
func (s *SessionIssuer) Issue(accountID ulid.ULID, name string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		AccountID: accountID.String(),
		Name:      name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("SESSION_SIGN_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry, and returns the
// claims of a valid token.
func (s *SessionIssuer) Verify(token string) (*SessionClaims, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, oops.Code("SESSION_INVALID").
			With("reason", errString(err)).
			Wrap(ErrSessionInvalid)
	}
	if _, err := ulid.Parse(claims.AccountID); err != nil {
		return nil, oops.Code("SESSION_INVALID").
			With("reason", "malformed account id").
			Wrap(ErrSessionInvalid)
	}
	return claims, nil
}

func errString(err error) string {
	if err == nil {
		return "token not valid"
	}
	return err.Error()
}
