// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package profile holds user profiles and the reference data they point at:
// countries and ranks.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/store"
	"github.com/holomush/gambit/internal/validate"
)

// Field limits for reference data.
const (
	MaxCountryNameLength      = 50
	CountryCodeLength         = 2
	MaxRankNameLength         = 30
	MaxRankAbbreviationLength = 3
	MaxDescriptionLength      = 300
)

// Kind sentinels.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Gender is the closed set of values stored in gender_enum.
type Gender string

// Gender values.
const (
	GenderMale       Gender = "Male"
	GenderFemale     Gender = "Female"
	GenderNotDefined Gender = "Not Defined"
)

// ParseGender maps s onto a Gender. Empty input is GenderNotDefined.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(s); g {
	case "":
		return GenderNotDefined, nil
	case GenderMale, GenderFemale, GenderNotDefined:
		return g, nil
	}
	msg := "gender must be one of Male, Female, Not Defined"
	return "", oops.In("profile").
		Code("VALIDATION_GENDER").
		With("field", "gender").
		With("value", s).
		Public(msg).
		Wrapf(validate.ErrProfile, "%s", msg)
}

// Country is a reference country.
type Country struct {
	ID   int64
	Name string
	Code string
	store.Described
	store.Timestamps
}

// Rank is a reference rank.
type Rank struct {
	ID           int64
	Name         string
	Abbreviation string
	store.Described
	store.Timestamps
}

// Profile is the optional personal data attached to a user. A user has at
// most one.
type Profile struct {
	ID          int64
	UserID      int64
	Name        *string
	Surname     *string
	Gender      Gender
	DateOfBirth *time.Time
	Biography   *string
	AvatarURL   *string
	CountryID   int64
	RankID      *int64
	store.Timestamps
}

// Repository persists profiles and reference data.
type Repository interface {
	// CreateProfile fails with ErrAlreadyExists when the user already has a
	// profile and with ErrNotFound when the country or rank does not exist.
	CreateProfile(ctx context.Context, p *Profile) (*Profile, error)
	GetProfileByUserID(ctx context.Context, userID int64) (*Profile, error)
	// UpdateProfile replaces every editable field of the user's profile.
	UpdateProfile(ctx context.Context, p *Profile) (*Profile, error)

	CreateCountry(ctx context.Context, c *Country) (*Country, error)
	GetCountry(ctx context.Context, id int64) (*Country, error)
	GetCountryByCode(ctx context.Context, code string) (*Country, error)
	ListCountries(ctx context.Context) ([]*Country, error)

	CreateRank(ctx context.Context, r *Rank) (*Rank, error)
	GetRank(ctx context.Context, id int64) (*Rank, error)
	ListRanks(ctx context.Context) ([]*Rank, error)
}
