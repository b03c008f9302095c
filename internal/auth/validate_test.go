// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bienesraices/bienesraices/internal/auth"
)

func TestIsEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"ana@x.com", true},
		{"first.last+tag@sub.example.org", true},
		{"", false},
		{"ana", false},
		{"ana@x", false},
		{"ana@x.", false},
		{"@x.com", false},
		{" ana@x.com", false},
		{"Ana <ana@x.com>", false},
		{"ana@x.com, bob@y.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.IsEmail(tt.in))
		})
	}
}

func TestValidator_AccumulatesInOrder(t *testing.T) {
	v := &auth.Validator{}
	v.Required("a", "", "first").
		Email("b", "nope", "second").
		MinLength("c", "12345", 6, "third").
		Equals("d", "x", "y", "fourth")

	got := v.Result()
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, got.Messages())
	assert.Equal(t, "a", got[0].Field)
	assert.False(t, got.Empty())
}

func TestValidator_PassingRulesProduceNothing(t *testing.T) {
	v := &auth.Validator{}
	v.Required("a", "x", "m").
		Email("b", "ana@x.com", "m").
		MinLength("c", "123456", 6, "m").
		Equals("d", "x", "x", "m")
	assert.True(t, v.Result().Empty())
}

func TestMinLength_CountsCharacters(t *testing.T) {
	v := &auth.Validator{}
	v.MinLength("password", "ñandú1", 6, "short")
	assert.True(t, v.Result().Empty(), "six runes pass even though they are more than six bytes")
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name string
		in   auth.RegisterInput
		want []string
	}{
		{
			name: "valid",
			in:   auth.RegisterInput{Name: "Ana", Email: "ana@x.com", Password: "secret1", PasswordConfirmation: "secret1"},
			want: []string{},
		},
		{
			name: "everything wrong reports every rule",
			in:   auth.RegisterInput{Name: " ", Email: "bad", Password: "123", PasswordConfirmation: "1234"},
			want: []string{auth.MsgNameRequired, auth.MsgEmailInvalid, auth.MsgPasswordTooShort, auth.MsgPasswordMismatch},
		},
		{
			name: "five character password",
			in:   auth.RegisterInput{Name: "Ana", Email: "ana@x.com", Password: "12345", PasswordConfirmation: "12345"},
			want: []string{auth.MsgPasswordTooShort},
		},
		{
			name: "mismatched confirmation",
			in:   auth.RegisterInput{Name: "Ana", Email: "ana@x.com", Password: "secret1", PasswordConfirmation: "secret2"},
			want: []string{auth.MsgPasswordMismatch},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.ValidateRegistration(tt.in).Messages())
		})
	}
}

func TestValidateLogin(t *testing.T) {
	assert.True(t, auth.ValidateLogin(auth.LoginInput{Email: "ana@x.com", Password: "x"}).Empty())
	assert.Equal(t,
		[]string{auth.MsgEmailRequired, auth.MsgPasswordRequired},
		auth.ValidateLogin(auth.LoginInput{}).Messages())
}

func TestValidateLogin_WhitespacePasswordIsPresent(t *testing.T) {
	const blank = "      "
	require.True(t, auth.ValidateNewPassword(auth.ResetPasswordInput{Password: blank}).Empty())
	assert.True(t, auth.ValidateLogin(auth.LoginInput{Email: "ana@x.com", Password: blank}).Empty())
}

func TestValidateResetRequest(t *testing.T) {
	assert.True(t, auth.ValidateResetRequest(auth.ResetRequestInput{Email: "ana@x.com"}).Empty())
	assert.Equal(t,
		[]string{auth.MsgEmailInvalid},
		auth.ValidateResetRequest(auth.ResetRequestInput{Email: "ana"}).Messages())
}

func TestValidateNewPassword(t *testing.T) {
	assert.True(t, auth.ValidateNewPassword(auth.ResetPasswordInput{Password: "newpass1"}).Empty())
	assert.Equal(t,
		[]string{auth.MsgPasswordTooShort},
		auth.ValidateNewPassword(auth.ResetPasswordInput{Password: "abc"}).Messages())
}
