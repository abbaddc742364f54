// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// Kind sentinels. Errors returned by this package wrap one of these so callers
// classify failures with errors.Is; the oops code carries the finer detail.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a username or email is already taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrHashing is returned when a password hash cannot be produced. It is a
	// server fault, unlike a verification mismatch.
	ErrHashing = errors.New("password hashing failed")

	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so the two cannot be told apart.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountInactive is returned for a correct login on a disabled account.
	ErrAccountInactive = errors.New("user inactive")

	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongTokenType is returned when a valid token of the other kind is
	// presented.
	ErrWrongTokenType = errors.New("wrong token type")
)
