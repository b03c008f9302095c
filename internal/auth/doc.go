// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 BienesRaices Contributors

// Package auth implements account authentication and the credential
// lifecycle: login, registration, email confirmation and password reset.
//
// # Domain Types
//
// Accounts should be created with NewAccount, which validates the name,
// email and hashes it is given. Direct struct initialization bypasses
// validation. Repository implementations receive pre-validated accounts.
//
// # Tokens
//
// Two kinds of token are issued:
//   - opaque tokens (GenerateOpaqueToken) correlate a confirmation or reset
//     link with an account; only their SHA-256 digest is stored
//   - session tokens (SessionIssuer) are signed, expiring assertions of an
//     authenticated account
//
// An account holds at most one pending opaque token. Confirmation and reset
// share that slot, so the newest token wins and either flow accepts it.
//
// # Errors
//
// User-facing failures wrap the Err* sentinels or a *ValidationError;
// ErrorKind classifies them. Anything else is an infrastructure failure.
package auth
