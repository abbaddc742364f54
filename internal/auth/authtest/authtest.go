// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authtest provides in-memory fakes and fixtures for tests of code
// built on package auth.
package authtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gambit/internal/auth"
)

// CheapHashParams keeps argon2 fast in tests.
var CheapHashParams = auth.HashParams{Time: 1, Memory: 64, Parallelism: 1, KeyLength: 32, SaltLength: 16}

var (
	keysOnce sync.Once
	keys     *auth.KeyPair
	keysErr  error
)

// Keys returns an RSA key pair shared by every test in the binary.
func Keys(t testing.TB) *auth.KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		keys, keysErr = auth.GenerateKeyPair(auth.MinKeyBits)
	})
	require.NoError(t, keysErr)
	return keys
}

// Codec returns an RS256 codec over Keys using now as its clock.
// A nil now uses time.Now.
func Codec(t testing.TB, now func() time.Time) *auth.TokenCodec {
	t.Helper()
	codec, err := auth.NewTokenCodec(auth.CodecConfig{
		Algorithm: "RS256",
		Keys:      Keys(t),
		Now:       now,
	})
	require.NoError(t, err)
	return codec
}

// Users is an in-memory auth.UserRepository with the same uniqueness rules
// as the database.
type Users struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*auth.User
}

var _ auth.UserRepository = (*Users)(nil)

// NewUsers creates an empty repository.
func NewUsers() *Users {
	return &Users{byID: make(map[int64]*auth.User)}
}

// Add stores u directly, assigning an ID and UUID when unset.
func (r *Users) Add(u auth.User) *auth.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	if u.ID == 0 {
		u.ID = r.nextID
	}
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	stored := u
	r.byID[u.ID] = &stored
	out := stored
	return &out
}

func (r *Users) find(match func(*auth.User) bool) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

// GetByID implements auth.UserRepository.
func (r *Users) GetByID(_ context.Context, id int64) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.ID == id })
}

// GetByUUID implements auth.UserRepository.
func (r *Users) GetByUUID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.UUID == id })
}

// GetByUsername implements auth.UserRepository.
func (r *Users) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Username == username })
}

// GetByEmail implements auth.UserRepository.
func (r *Users) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	return r.find(func(u *auth.User) bool { return u.Email == email })
}

// Create implements auth.UserRepository.
func (r *Users) Create(_ context.Context, nu *auth.NewUser) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		switch {
		case u.Username == nu.Username:
			return nil, oops.Code("USER_ALREADY_EXISTS").With("constraint", "ix_users_username").Wrap(auth.ErrAlreadyExists)
		case u.Email == nu.Email:
			return nil, oops.Code("USER_ALREADY_EXISTS").With("constraint", "ix_users_email").Wrap(auth.ErrAlreadyExists)
		}
	}
	r.nextID++
	now := time.Now()
	u := &auth.User{
		ID:           r.nextID,
		UUID:         nu.UUID,
		Username:     nu.Username,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		DateJoined:   now,
		LastLogin:    now,
		IsActive:     true,
	}
	r.byID[u.ID] = u
	out := *u
	return &out, nil
}

func (r *Users) update(id int64, fn func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	fn(u)
	return nil
}

// TouchLastLogin implements auth.UserRepository.
func (r *Users) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	return r.update(id, func(u *auth.User) { u.LastLogin = at })
}

// UpdatePasswordHash implements auth.UserRepository.
func (r *Users) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	return r.update(id, func(u *auth.User) { u.PasswordHash = hash })
}

// SetActive implements auth.UserRepository.
func (r *Users) SetActive(_ context.Context, id int64, active bool) error {
	return r.update(id, func(u *auth.User) { u.IsActive = active })
}
