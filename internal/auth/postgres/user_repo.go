// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements the auth repositories on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/auth"
	"github.com/holomush/gambit/internal/store"
)

const userColumns = `id, uuid, username, email, password_hash, date_joined, last_login, is_active`

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	db store.DB
	tx *store.Transactor
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db store.DB) *UserRepository {
	return &UserRepository{db: db, tx: store.NewTransactor(db)}
}

// Create inserts a user inside one transaction. A collision on username or
// email rolls the transaction back and returns auth.ErrAlreadyExists with the
// violated constraint in the error context.
func (r *UserRepository) Create(ctx context.Context, nu *auth.NewUser) (*auth.User, error) {
	var created *auth.User
	err := r.tx.InTransaction(ctx, func(ctx context.Context) error {
		row := store.Conn(ctx, r.db).QueryRow(ctx, `
			INSERT INTO users (uuid, username, email, password_hash)
			VALUES ($1, $2, $3, $4)
			RETURNING `+userColumns,
			nu.UUID, nu.Username, nu.Email, nu.PasswordHash,
		)
		u, err := scanUser(row)
		if err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		if constraint, ok := store.IsUniqueViolation(err); ok {
			return nil, oops.Code("USER_ALREADY_EXISTS").
				With("constraint", constraint).
				With("username", nu.Username).
				Wrap(auth.ErrAlreadyExists)
		}
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", nu.Username).
			Wrap(err)
	}
	return created, nil
}

// GetByID retrieves a user by internal id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	return r.getOne(ctx, "id", id)
}

// GetByUUID retrieves a user by public id.
func (r *UserRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return r.getOne(ctx, "uuid", id)
}

// GetByUsername retrieves a user by exact username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	return r.getOne(ctx, "username", username)
}

// GetByEmail retrieves a user by exact email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, "email", email)
}

// getOne selects by a fixed column name; column is never user input.
func (r *UserRepository) getOne(ctx context.Context, column string, value any) (*auth.User, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(column, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+column).
			Wrap(err)
	}
	return u, nil
}

// TouchLastLogin sets last_login for the user.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, "USER_TOUCH_LOGIN_FAILED", id,
		`UPDATE users SET last_login = $2 WHERE id = $1`, at)
}

// UpdatePasswordHash replaces the stored hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.update(ctx, "USER_UPDATE_PASSWORD_FAILED", id,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, hash)
}

// SetActive enables or disables the account.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, "USER_SET_ACTIVE_FAILED", id,
		`UPDATE users SET is_active = $2 WHERE id = $1`, active)
}

func (r *UserRepository) update(ctx context.Context, code string, id int64, sql string, value any) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, sql, id, value)
	if err != nil {
		return oops.Code(code).With("id", id).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID,
		&u.UUID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.DateJoined,
		&u.LastLogin,
		&u.IsActive,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	return &u, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
