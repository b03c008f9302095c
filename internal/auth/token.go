// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/samber/oops"
)

// OpaqueTokenBytes is the entropy of confirmation and reset tokens.
const OpaqueTokenBytes = 32 // 64 hex chars

// GenerateOpaqueToken creates an unpredictable one-shot token and its digest.
// The plaintext travels in the notification; only the digest is stored.
func GenerateOpaqueToken() (token, hash string, err error) {
	b := make([]byte, OpaqueTokenBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", oops.Code("TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(b)
	return token, HashOpaqueToken(token), nil
}

// HashOpaqueToken returns the hex SHA-256 digest used to look a token up.
func HashOpaqueToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyOpaqueToken checks token against a stored digest in constant time.
func VerifyOpaqueToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashOpaqueToken(token)), []byte(hash)) == 1
}
