// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package validate holds the field-level input rules applied at the API
// boundary before anything reaches persistence.
//
// Every failure is an oops error whose code names the violated rule and which
// matches one of the kind sentinels below with errors.Is, so callers can map
// failures to responses without inspecting messages.
package validate

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Field limits. MaxPasswordLength caps the input handed to the password
// hasher.
const (
	MinUsernameLength = 6
	MaxUsernameLength = 30
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxEmailLength    = 255
)

// Kind sentinels.
var (
	ErrValidation       = errors.New("validation failed")
	ErrUsername         = fmt.Errorf("invalid username: %w", ErrValidation)
	ErrPassword         = fmt.Errorf("invalid password: %w", ErrValidation)
	ErrPasswordMismatch = fmt.Errorf("passwords do not match: %w", ErrPassword)
	ErrEmail            = fmt.Errorf("invalid email: %w", ErrValidation)
	ErrIdentityRequired = fmt.Errorf("username or email required: %w", ErrValidation)
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// fail builds a validation error for field. msg doubles as the public message.
func fail(code, field string, kind error, msg string) error {
	return oops.In("validate").
		Code(code).
		With("field", field).
		Public(msg).
		Wrapf(kind, "%s", msg)
}

// Username checks length and the [A-Za-z0-9_] charset.
func Username(s string) error {
	n := utf8.RuneCountInString(s)
	switch {
	case n < MinUsernameLength:
		return fail("VALIDATION_USERNAME_TOO_SHORT", "username", ErrUsername,
			fmt.Sprintf("username must be at least %d characters", MinUsernameLength))
	case n > MaxUsernameLength:
		return fail("VALIDATION_USERNAME_TOO_LONG", "username", ErrUsername,
			fmt.Sprintf("username must be at most %d characters", MaxUsernameLength))
	case !usernamePattern.MatchString(s):
		return fail("VALIDATION_USERNAME_CHARSET", "username", ErrUsername,
			"username may contain only letters, digits and underscores")
	}
	return nil
}

// Password enforces the password policy: minimum length, at least one digit,
// one uppercase and one lowercase letter, and no whitespace.
func Password(s string) error {
	n := utf8.RuneCountInString(s)
	if n < MinPasswordLength {
		return fail("VALIDATION_PASSWORD_TOO_SHORT", "password", ErrPassword,
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if n > MaxPasswordLength {
		return fail("VALIDATION_PASSWORD_TOO_LONG", "password", ErrPassword,
			fmt.Sprintf("password must be at most %d characters", MaxPasswordLength))
	}

	var digit, upper, lower bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			return fail("VALIDATION_PASSWORD_WHITESPACE", "password", ErrPassword,
				"password must not contain whitespace")
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}

	switch {
	case !digit:
		return fail("VALIDATION_PASSWORD_NO_DIGIT", "password", ErrPassword,
			"password must contain at least one digit")
	case !upper:
		return fail("VALIDATION_PASSWORD_NO_UPPER", "password", ErrPassword,
			"password must contain at least one uppercase letter")
	case !lower:
		return fail("VALIDATION_PASSWORD_NO_LOWER", "password", ErrPassword,
			"password must contain at least one lowercase letter")
	}
	return nil
}

// PasswordConfirmation checks that the confirmation repeats the password.
func PasswordConfirmation(password, confirmation string) error {
	if password != confirmation {
		return fail("VALIDATION_PASSWORD_MISMATCH", "password_confirmation", ErrPasswordMismatch,
			"passwords do not match")
	}
	return nil
}

// Email checks that s is a bare address (no display name) within length.
func Email(s string) error {
	if s == "" {
		return fail("VALIDATION_EMAIL_REQUIRED", "email", ErrEmail, "email is required")
	}
	if len(s) > MaxEmailLength {
		return fail("VALIDATION_EMAIL_TOO_LONG", "email", ErrEmail,
			fmt.Sprintf("email must be at most %d characters", MaxEmailLength))
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return fail("VALIDATION_EMAIL_FORMAT", "email", ErrEmail, "email address is not valid")
	}
	return nil
}

// LoginIdentity requires at least one of username and email.
func LoginIdentity(username, email string) error {
	if username == "" && email == "" {
		return fail("VALIDATION_LOGIN_IDENTITY_REQUIRED", "username", ErrIdentityRequired,
			"username or email is required")
	}
	return nil
}
