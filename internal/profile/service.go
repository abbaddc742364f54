// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/store"
	"github.com/holomush/gambit/internal/validate"
)

// DateLayout is the wire format of dates of birth.
const DateLayout = time.DateOnly

// Input is the editable part of a profile as submitted by a client. Empty
// strings mean "not set".
type Input struct {
	Name        string `json:"name"`
	Surname     string `json:"surname"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	Biography   string `json:"biography"`
	AvatarURL   string `json:"avatar_url"`
	CountryID   int64  `json:"country_id"`
	RankID      *int64 `json:"rank_id"`
}

// CountryInput describes a country to create.
type CountryInput struct {
	Name        string  `yaml:"name"`
	Code        string  `yaml:"code"`
	Description *string `yaml:"description"`
}

// RankInput describes a rank to create.
type RankInput struct {
	Name         string  `yaml:"name"`
	Abbreviation string  `yaml:"abbreviation"`
	Description  *string `yaml:"description"`
}

// Service validates profile input and persists it.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service. A nil logger discards logs and a nil clock
// uses time.Now.
func NewService(repo Repository, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, logger: logger, now: now}
}

// Get returns the user's profile.
func (s *Service) Get(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.GetProfileByUserID(ctx, userID)
}

// Create validates in and creates the user's profile.
func (s *Service) Create(ctx context.Context, userID int64, in Input) (*Profile, error) {
	p, err := s.build(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.CreateProfile(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "profile created", "user_id", userID)
	return created, nil
}

// Update validates in and replaces the user's existing profile.
func (s *Service) Update(ctx context.Context, userID int64, in Input) (*Profile, error) {
	p, err := s.build(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateProfile(ctx, p)
}

// Save creates the profile when the user has none and replaces it otherwise.
// The boolean reports whether a profile was created.
func (s *Service) Save(ctx context.Context, userID int64, in Input) (*Profile, bool, error) {
	_, err := s.repo.GetProfileByUserID(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		p, err := s.Create(ctx, userID, in)
		return p, err == nil, err
	case err != nil:
		return nil, false, err
	}
	p, err := s.Update(ctx, userID, in)
	return p, false, err
}

func (s *Service) build(ctx context.Context, userID int64, in Input) (*Profile, error) {
	p := &Profile{UserID: userID, CountryID: in.CountryID, RankID: in.RankID}

	var err error
	if p.Name, err = validate.PersonName("name", in.Name, validate.MinNameLength, validate.MaxNameLength); err != nil {
		return nil, err
	}
	if p.Surname, err = validate.PersonName("surname", in.Surname, validate.MinSurnameLength, validate.MaxSurnameLength); err != nil {
		return nil, err
	}
	if p.Gender, err = ParseGender(in.Gender); err != nil {
		return nil, err
	}

	if in.DateOfBirth != "" {
		dob, parseErr := time.Parse(DateLayout, in.DateOfBirth)
		if parseErr != nil {
			msg := "date of birth must be formatted YYYY-MM-DD"
			return nil, oops.In("profile").
				Code("VALIDATION_DOB_FORMAT").
				With("field", "date_of_birth").
				Public(msg).
				Wrapf(validate.ErrProfile, "%s", msg)
		}
		if err := validate.DateOfBirth(dob, s.now(), validate.MinAge); err != nil {
			return nil, err
		}
		p.DateOfBirth = &dob
	}

	if in.Biography != "" {
		if err := validate.Biography(in.Biography); err != nil {
			return nil, err
		}
		p.Biography = &in.Biography
	}
	if in.AvatarURL != "" {
		if err := validate.AvatarURL(in.AvatarURL); err != nil {
			return nil, err
		}
		p.AvatarURL = &in.AvatarURL
	}

	if in.CountryID <= 0 {
		return nil, validate.Required("country_id", "")
	}
	if _, err := s.repo.GetCountry(ctx, in.CountryID); err != nil {
		return nil, err
	}
	if in.RankID != nil {
		if _, err := s.repo.GetRank(ctx, *in.RankID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ListCountries returns every country.
func (s *Service) ListCountries(ctx context.Context) ([]*Country, error) {
	return s.repo.ListCountries(ctx)
}

// ListRanks returns every rank.
func (s *Service) ListRanks(ctx context.Context) ([]*Rank, error) {
	return s.repo.ListRanks(ctx)
}

// CreateCountry validates and creates a country. The code is upper-cased.
func (s *Service) CreateCountry(ctx context.Context, in CountryInput) (*Country, error) {
	if err := checkReference("country name", in.Name, MaxCountryNameLength, in.Description); err != nil {
		return nil, err
	}
	code := strings.ToUpper(in.Code)
	if len(code) != CountryCodeLength || strings.IndexFunc(code, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		msg := fmt.Sprintf("country code must be %d letters", CountryCodeLength)
		return nil, oops.In("profile").
			Code("VALIDATION_COUNTRY_CODE").
			With("field", "code").
			With("value", in.Code).
			Public(msg).
			Wrapf(validate.ErrValidation, "%s", msg)
	}
	return s.repo.CreateCountry(ctx, &Country{Name: in.Name, Code: code, Described: store.Described{Description: in.Description}})
}

// CreateRank validates and creates a rank.
func (s *Service) CreateRank(ctx context.Context, in RankInput) (*Rank, error) {
	if err := checkReference("rank name", in.Name, MaxRankNameLength, in.Description); err != nil {
		return nil, err
	}
	if err := validate.Required("abbreviation", in.Abbreviation); err != nil {
		return nil, err
	}
	if err := validate.MaxLength("abbreviation", in.Abbreviation, MaxRankAbbreviationLength); err != nil {
		return nil, err
	}
	return s.repo.CreateRank(ctx, &Rank{Name: in.Name, Abbreviation: in.Abbreviation, Described: store.Described{Description: in.Description}})
}

func checkReference(field, name string, limit int, description *string) error {
	if err := validate.Required(field, name); err != nil {
		return err
	}
	if err := validate.MaxLength(field, name, limit); err != nil {
		return err
	}
	if description != nil {
		return validate.MaxLength("description", *description, MaxDescriptionLength)
	}
	return nil
}
