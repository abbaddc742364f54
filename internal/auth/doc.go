// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the account core: password hashing, JWT issuance and
// verification, the user directory and credential checks.
//
// # Components
//
//   - Argon2idHasher - argon2id hashing in PHC format; verification never fails
//   - TokenCodec - RSA-signed access and refresh tokens with a "type" claim
//   - Directory - user lookup and registration
//   - Authenticator - login, refresh, and token-to-user resolution
//
// Failures wrap the kind sentinels in errors.go (ErrInvalidCredentials,
// ErrAccountInactive, ErrInvalidToken, ErrWrongTokenType, ...) so the HTTP
// layer maps them with errors.Is.
package auth
