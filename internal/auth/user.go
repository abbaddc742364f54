// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/validate"
)

// User is an account record. ID is the internal key used by foreign keys;
// UUID is the public identifier carried as the token subject.
type User struct {
	ID           int64
	UUID         uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	DateJoined   time.Time
	LastLogin    time.Time
	IsActive     bool
}

// NewUser is the data persisted by UserRepository.Create.
type NewUser struct {
	UUID         uuid.UUID
	Username     string
	Email        string
	PasswordHash string
}

// UserRepository persists users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUUID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create inserts a user in one transaction. A username or email collision
	// returns an error wrapping ErrAlreadyExists.
	Create(ctx context.Context, u *NewUser) (*User, error)

	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// Registration is the input of Directory.Register.
type Registration struct {
	Username             string
	Email                string
	Password             string
	PasswordConfirmation string
}

// Directory looks up and registers users.
type Directory struct {
	users   UserRepository
	hasher  PasswordHasher
	metrics Recorder
	logger  *slog.Logger
}

// NewDirectory creates a Directory. A nil recorder disables metrics and a nil
// logger discards logs.
func NewDirectory(users UserRepository, hasher PasswordHasher, metrics Recorder, logger *slog.Logger) *Directory {
	if metrics == nil {
		metrics = NopRecorder{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Directory{users: users, hasher: hasher, metrics: metrics, logger: logger}
}

// FindByUsername returns the user or nil when no such user exists.
func (d *Directory) FindByUsername(ctx context.Context, username string) (*User, error) {
	return findOrNil(d.users.GetByUsername(ctx, username))
}

// FindByEmail returns the user or nil when no such user exists.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*User, error) {
	return findOrNil(d.users.GetByEmail(ctx, email))
}

// FindByUUID returns the user or nil when no such user exists.
func (d *Directory) FindByUUID(ctx context.Context, id uuid.UUID) (*User, error) {
	return findOrNil(d.users.GetByUUID(ctx, id))
}

func findOrNil(u *User, err error) (*User, error) {
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Register validates r, hashes the password and creates the user.
// Validation failures wrap validate.ErrValidation; a taken username or email
// wraps ErrAlreadyExists.
func (d *Directory) Register(ctx context.Context, r Registration) (*User, error) {
	if err := validateRegistration(r); err != nil {
		d.metrics.RecordRegistration(OutcomeInvalid)
		return nil, err
	}

	hash, err := d.hasher.Hash(r.Password)
	if err != nil {
		d.metrics.RecordRegistration(OutcomeError)
		return nil, oops.With("operation", "hash password").Wrap(err)
	}

	u, err := d.users.Create(ctx, &NewUser{
		UUID:         uuid.New(),
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			d.metrics.RecordRegistration(OutcomeConflict)
		} else {
			d.metrics.RecordRegistration(OutcomeError)
		}
		return nil, err
	}

	d.metrics.RecordRegistration(OutcomeSuccess)
	d.logger.InfoContext(ctx, "user registered",
		"user_uuid", u.UUID.String(),
		"username", u.Username)
	return u, nil
}

func validateRegistration(r Registration) error {
	if err := validate.Username(r.Username); err != nil {
		return err
	}
	if err := validate.Email(r.Email); err != nil {
		return err
	}
	if err := validate.Password(r.Password); err != nil {
		return err
	}
	return validate.PasswordConfirmation(r.Password, r.PasswordConfirmation)
}
