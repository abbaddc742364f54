// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements profile.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/profile"
	"github.com/holomush/gambit/internal/store"
)

const constraintProfileUser = "uq_profiles_user_id"

const (
	profileColumns = `id, user_id, name, surname, gender::text, date_of_birth, biography,
		avatar_url, country_id, rank_id, created_at, updated_at`
	countryColumns = `id, name, code, description, created_at, updated_at`
	rankColumns    = `id, name, abbreviation, description, created_at, updated_at`
)

// Repository implements profile.Repository using PostgreSQL.
type Repository struct {
	db store.DB
}

// NewRepository creates a new Repository.
func NewRepository(db store.DB) *Repository {
	return &Repository{db: db}
}

// CreateProfile inserts the user's profile.
func (r *Repository) CreateProfile(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO profiles (user_id, name, surname, gender, date_of_birth, biography,
		                      avatar_url, country_id, rank_id)
		VALUES ($1, $2, $3, $4::gender_enum, $5, $6, $7, $8, $9)
		RETURNING `+profileColumns,
		p.UserID, p.Name, p.Surname, string(p.Gender), p.DateOfBirth, p.Biography,
		p.AvatarURL, p.CountryID, p.RankID)

	created, err := scanProfile(row)
	if err != nil {
		return nil, writeError(err, "PROFILE_CREATE_FAILED", p.UserID)
	}
	return created, nil
}

// GetProfileByUserID retrieves the user's profile.
func (r *Repository) GetProfileByUserID(ctx context.Context, userID int64) (*profile.Profile, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("user_id", userID).Wrap(profile.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROFILE_GET_FAILED").With("user_id", userID).Wrap(err)
	}
	return p, nil
}

// UpdateProfile replaces the editable fields of the user's profile.
func (r *Repository) UpdateProfile(ctx context.Context, p *profile.Profile) (*profile.Profile, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE profiles
		SET name = $2, surname = $3, gender = $4::gender_enum, date_of_birth = $5,
		    biography = $6, avatar_url = $7, country_id = $8, rank_id = $9
		WHERE user_id = $1
		RETURNING `+profileColumns,
		p.UserID, p.Name, p.Surname, string(p.Gender), p.DateOfBirth, p.Biography,
		p.AvatarURL, p.CountryID, p.RankID)

	updated, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("user_id", p.UserID).Wrap(profile.ErrNotFound)
	}
	if err != nil {
		return nil, writeError(err, "PROFILE_UPDATE_FAILED", p.UserID)
	}
	return updated, nil
}

// writeError classifies a failed profile write.
func writeError(err error, code string, userID int64) error {
	if constraint, ok := store.IsUniqueViolation(err); ok && constraint == constraintProfileUser {
		return oops.Code("PROFILE_ALREADY_EXISTS").
			With("user_id", userID).
			With("constraint", constraint).
			Wrap(profile.ErrAlreadyExists)
	}
	if constraint, ok := store.IsForeignKeyViolation(err); ok {
		return oops.Code("PROFILE_REFERENCE_NOT_FOUND").
			With("user_id", userID).
			With("constraint", constraint).
			Wrap(errors.Join(profile.ErrNotFound, err))
	}
	return oops.Code(code).With("user_id", userID).Wrap(err)
}

// CreateCountry inserts a country. A taken name or code returns
// profile.ErrAlreadyExists.
func (r *Repository) CreateCountry(ctx context.Context, c *profile.Country) (*profile.Country, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO countries (name, code, description) VALUES ($1, $2, $3)
		RETURNING `+countryColumns, c.Name, c.Code, c.Description)
	created, err := scanCountry(row)
	if err != nil {
		if constraint, ok := store.IsUniqueViolation(err); ok {
			return nil, oops.Code("COUNTRY_ALREADY_EXISTS").
				With("country", c.Code).
				With("constraint", constraint).
				Wrap(profile.ErrAlreadyExists)
		}
		return nil, oops.Code("COUNTRY_CREATE_FAILED").With("country", c.Code).Wrap(err)
	}
	return created, nil
}

// GetCountry retrieves a country by id.
func (r *Repository) GetCountry(ctx context.Context, id int64) (*profile.Country, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+countryColumns+` FROM countries WHERE id = $1`, id)
	return oneCountry(row, "id", id)
}

// GetCountryByCode retrieves a country by its two-letter code.
func (r *Repository) GetCountryByCode(ctx context.Context, code string) (*profile.Country, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+countryColumns+` FROM countries WHERE code = $1`, code)
	return oneCountry(row, "code", code)
}

func oneCountry(row pgx.Row, key string, value any) (*profile.Country, error) {
	c, err := scanCountry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("COUNTRY_NOT_FOUND").With(key, value).Wrap(profile.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("COUNTRY_GET_FAILED").With(key, value).Wrap(err)
	}
	return c, nil
}

// ListCountries returns every country ordered by name.
func (r *Repository) ListCountries(ctx context.Context) ([]*profile.Country, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx,
		`SELECT `+countryColumns+` FROM countries ORDER BY name`)
	if err != nil {
		return nil, oops.Code("COUNTRY_LIST_FAILED").Wrap(err)
	}
	return store.CollectRows(rows, scanCountry, "COUNTRY_LIST_FAILED")
}

// CreateRank inserts a rank. A taken name or abbreviation returns
// profile.ErrAlreadyExists.
func (r *Repository) CreateRank(ctx context.Context, rank *profile.Rank) (*profile.Rank, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO ranks (name, abbreviation, description) VALUES ($1, $2, $3)
		RETURNING `+rankColumns, rank.Name, rank.Abbreviation, rank.Description)
	created, err := scanRank(row)
	if err != nil {
		if constraint, ok := store.IsUniqueViolation(err); ok {
			return nil, oops.Code("RANK_ALREADY_EXISTS").
				With("rank", rank.Name).
				With("constraint", constraint).
				Wrap(profile.ErrAlreadyExists)
		}
		return nil, oops.Code("RANK_CREATE_FAILED").With("rank", rank.Name).Wrap(err)
	}
	return created, nil
}

// GetRank retrieves a rank by id.
func (r *Repository) GetRank(ctx context.Context, id int64) (*profile.Rank, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+rankColumns+` FROM ranks WHERE id = $1`, id)
	rank, err := scanRank(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RANK_NOT_FOUND").With("id", id).Wrap(profile.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("RANK_GET_FAILED").With("id", id).Wrap(err)
	}
	return rank, nil
}

// ListRanks returns every rank ordered by name.
func (r *Repository) ListRanks(ctx context.Context) ([]*profile.Rank, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx,
		`SELECT `+rankColumns+` FROM ranks ORDER BY name`)
	if err != nil {
		return nil, oops.Code("RANK_LIST_FAILED").Wrap(err)
	}
	return store.CollectRows(rows, scanRank, "RANK_LIST_FAILED")
}

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	var p profile.Profile
	var gender string
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Surname, &gender, &p.DateOfBirth,
		&p.Biography, &p.AvatarURL, &p.CountryID, &p.RankID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	p.Gender = profile.Gender(gender)
	return &p, nil
}

func scanCountry(row pgx.Row) (*profile.Country, error) {
	var c profile.Country
	err := row.Scan(&c.ID, &c.Name, &c.Code, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	return &c, nil
}

func scanRank(row pgx.Row) (*profile.Rank, error) {
	var rank profile.Rank
	err := row.Scan(&rank.ID, &rank.Name, &rank.Abbreviation, &rank.Description, &rank.CreatedAt, &rank.UpdatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	return &rank, nil
}

var _ profile.Repository = (*Repository)(nil)
