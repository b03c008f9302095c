// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bienesraices/bienesraices/internal/auth"
	"github.com/bienesraices/bienesraices/pkg/errutil"
)

func newIssuer(t *testing.T, cfg auth.SessionConfig) *auth.SessionIssuer {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = []byte("test-secret")
	}
	issuer, err := auth.NewSessionIssuer(cfg)
	require.NoError(t, err)
	return issuer
}

func TestNewSessionIssuer(t *testing.T) {
	t.Run("rejects empty secret", func(t *testing.T) {
		issuer, err := auth.NewSessionIssuer(auth.SessionConfig{})
		require.Error(t, err)
		assert.Nil(t, issuer)
		errutil.AssertErrorCode(t, err, "SESSION_CONFIG_INVALID")
	})

	t.Run("defaults ttl to one day", func(t *testing.T) {
		issuer := newIssuer(t, auth.SessionConfig{})
		assert.Equal(t, 24*time.Hour, issuer.TTL())
	})
}

func TestSessionIssuer_RoundTrip(t *testing.T) {
	issuer := newIssuer(t, auth.SessionConfig{})
	id := ulid.Make()

	token, err := issuer.Issue(id, "Ana")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.AccountID)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, auth.DefaultSessionIssuer, claims.Issuer)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestSessionIssuer_Verify_Rejects(t *testing.T) {
	id := ulid.Make()
	now := time.Now()
	issuer := newIssuer(t, auth.SessionConfig{TTL: time.Hour, Now: func() time.Time { return now }})

	valid, err := issuer.Issue(id, "Ana")
	require.NoError(t, err)

	otherSecret := newIssuer(t, auth.SessionConfig{Secret: []byte("other"), TTL: time.Hour})
	forged, err := otherSecret.Issue(id, "Ana")
	require.NoError(t, err)

	otherIssuer := newIssuer(t, auth.SessionConfig{Issuer: "someone-else"})
	foreign, err := otherIssuer.Issue(id, "Ana")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"id": id.String(), "iss": auth.DefaultSessionIssuer, "exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	badID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id": "not-a-ulid", "iss": auth.DefaultSessionIssuer, "exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	later := newIssuer(t, auth.SessionConfig{TTL: time.Hour, Now: func() time.Time { return now.Add(2 * time.Hour) }})

	tests := []struct {
		name   string
		issuer *auth.SessionIssuer
		token  string
	}{
		{"empty token", issuer, ""},
		{"garbage", issuer, "not.a.jwt"},
		{"wrong secret", issuer, forged},
		{"wrong issuer", issuer, foreign},
		{"alg none", issuer, none},
		{"malformed account id", issuer, badID},
		{"expired", later, valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.issuer.Verify(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.True(t, errors.Is(err, auth.ErrSessionInvalid))
			errutil.AssertErrorCode(t, err, "SESSION_INVALID")
		})
	}
}
