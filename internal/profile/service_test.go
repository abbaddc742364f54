// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package profile_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gambit/internal/profile"
	"github.com/holomush/gambit/internal/profile/profiletest"
	"github.com/holomush/gambit/internal/store"
	"github.com/holomush/gambit/internal/validate"
	"github.com/holomush/gambit/pkg/errutil"
)

var today = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	repo    *profiletest.Repository
	svc     *profile.Service
	country *profile.Country
	rank    *profile.Rank
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := profiletest.NewRepository()
	svc := profile.NewService(repo, nil, func() time.Time { return today })
	ctx := context.Background()

	country, err := svc.CreateCountry(ctx, profile.CountryInput{Name: "Norway", Code: "no"})
	require.NoError(t, err)
	rank, err := svc.CreateRank(ctx, profile.RankInput{Name: "Grandmaster", Abbreviation: "GM"})
	require.NoError(t, err)
	return &fixture{repo: repo, svc: svc, country: country, rank: rank}
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		in   string
		want profile.Gender
	}{
		{"", profile.GenderNotDefined},
		{"Male", profile.GenderMale},
		{"Female", profile.GenderFemale},
		{"Not Defined", profile.GenderNotDefined},
	}
	for _, tt := range tests {
		got, err := profile.ParseGender(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := profile.ParseGender("male")
	errutil.AssertErrorKind(t, err, "VALIDATION_GENDER", validate.ErrProfile)
}

func TestService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, 1, profile.Input{
		Name:        "magnus",
		Surname:     "carlsen-hansen",
		Gender:      "Male",
		DateOfBirth: "1990-11-30",
		Biography:   "Plays chess.",
		AvatarURL:   "https://example.com/a.png",
		CountryID:   f.country.ID,
		RankID:      &f.rank.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, p.Name)
	assert.Equal(t, "Magnus", *p.Name)
	assert.Equal(t, "Carlsen-Hansen", *p.Surname)
	assert.Equal(t, profile.GenderMale, p.Gender)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, "1990-11-30", p.DateOfBirth.Format(profile.DateLayout))
	assert.Equal(t, f.rank.ID, *p.RankID)

	_, err = f.svc.Create(ctx, 1, profile.Input{CountryID: f.country.ID})
	errutil.AssertErrorKind(t, err, "PROFILE_ALREADY_EXISTS", profile.ErrAlreadyExists)
}

func TestService_Create_OptionalFieldsStayNil(t *testing.T) {
	f := newFixture(t)

	p, err := f.svc.Create(context.Background(), 2, profile.Input{CountryID: f.country.ID})
	require.NoError(t, err)
	assert.Nil(t, p.Name)
	assert.Nil(t, p.Surname)
	assert.Nil(t, p.DateOfBirth)
	assert.Nil(t, p.Biography)
	assert.Nil(t, p.AvatarURL)
	assert.Nil(t, p.RankID)
	assert.Equal(t, profile.GenderNotDefined, p.Gender)
}

func TestService_Create_Validation(t *testing.T) {
	f := newFixture(t)
	missingRank := int64(999)

	tests := []struct {
		name     string
		in       profile.Input
		wantCode string
		wantKind error
	}{
		{name: "name with space", in: profile.Input{Name: "Ma gnus"}, wantCode: "VALIDATION_NAME_WHITESPACE", wantKind: validate.ErrName},
		{name: "surname too short", in: profile.Input{Surname: "Li"}, wantCode: "VALIDATION_NAME_LENGTH", wantKind: validate.ErrName},
		{name: "unknown gender", in: profile.Input{Gender: "Other"}, wantCode: "VALIDATION_GENDER", wantKind: validate.ErrProfile},
		{name: "bad date", in: profile.Input{DateOfBirth: "30/11/1990"}, wantCode: "VALIDATION_DOB_FORMAT", wantKind: validate.ErrProfile},
		{name: "future date", in: profile.Input{DateOfBirth: "2024-06-16"}, wantCode: "VALIDATION_DOB_FUTURE", wantKind: validate.ErrDateOfBirthFuture},
		{name: "too young", in: profile.Input{DateOfBirth: "2021-06-16"}, wantCode: "VALIDATION_DOB_MIN_AGE", wantKind: validate.ErrDateOfBirthMinAge},
		{name: "long biography", in: profile.Input{Biography: strings.Repeat("b", 301)}, wantCode: "VALIDATION_BIOGRAPHY_TOO_LONG", wantKind: validate.ErrProfile},
		{name: "relative avatar", in: profile.Input{AvatarURL: "/a.png"}, wantCode: "VALIDATION_AVATAR_URL", wantKind: validate.ErrProfile},
		{name: "missing country", in: profile.Input{}, wantCode: "VALIDATION_REQUIRED", wantKind: validate.ErrValidation},
		{name: "unknown country", in: profile.Input{CountryID: 999}, wantCode: "COUNTRY_NOT_FOUND", wantKind: profile.ErrNotFound},
		{name: "unknown rank", in: profile.Input{RankID: &missingRank}, wantCode: "RANK_NOT_FOUND", wantKind: profile.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			if in.CountryID == 0 && tt.wantCode != "VALIDATION_REQUIRED" {
				in.CountryID = f.country.ID
			}
			_, err := f.svc.Create(context.Background(), 3, in)
			errutil.AssertErrorKind(t, err, tt.wantCode, tt.wantKind)
		})
	}
}

func TestService_Save(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, created, err := f.svc.Save(ctx, 4, profile.Input{Name: "anna", CountryID: f.country.ID})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Anna", *p.Name)

	p, created, err = f.svc.Save(ctx, 4, profile.Input{Surname: "muzychuk", CountryID: f.country.ID})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, p.Name, "save replaces every editable field")
	assert.Equal(t, "Muzychuk", *p.Surname)

	_, err = f.svc.Update(ctx, 5, profile.Input{CountryID: f.country.ID})
	assert.ErrorIs(t, err, profile.ErrNotFound)
}

func TestService_CreateCountry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, "NO", f.country.Code)

	_, err := f.svc.CreateCountry(ctx, profile.CountryInput{Name: "Norway", Code: "NO"})
	assert.ErrorIs(t, err, profile.ErrAlreadyExists)

	for _, code := range []string{"", "N", "NOR", "N1"} {
		_, err := f.svc.CreateCountry(ctx, profile.CountryInput{Name: "Elsewhere", Code: code})
		errutil.AssertErrorKind(t, err, "VALIDATION_COUNTRY_CODE", validate.ErrValidation)
	}

	_, err = f.svc.CreateCountry(ctx, profile.CountryInput{Name: strings.Repeat("n", 51), Code: "XX"})
	errutil.AssertErrorCode(t, err, "VALIDATION_TOO_LONG")
}

func TestService_CreateRank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateRank(ctx, profile.RankInput{Name: "Master", Abbreviation: "FIDE"})
	errutil.AssertErrorCode(t, err, "VALIDATION_TOO_LONG")

	_, err = f.svc.CreateRank(ctx, profile.RankInput{Name: "Master"})
	errutil.AssertErrorCode(t, err, "VALIDATION_REQUIRED")

	ranks, err := f.svc.ListRanks(ctx)
	require.NoError(t, err)
	require.Len(t, ranks, 1)
	assert.Equal(t, "GM", ranks[0].Abbreviation)
}

func TestService_ReferenceDataSharesFieldGroups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	desc := "Caucasus"

	country, err := f.svc.CreateCountry(ctx, profile.CountryInput{Name: "Armenia", Code: "am", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, store.Described{Description: &desc}, country.Described)
	assert.False(t, country.CreatedAt.IsZero())
	assert.Equal(t, country.CreatedAt, country.UpdatedAt)

	rank, err := f.svc.CreateRank(ctx, profile.RankInput{Name: "International Master", Abbreviation: "IM", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, store.Described{Description: &desc}, rank.Described)
	assert.False(t, rank.Timestamps.CreatedAt.IsZero())

	assert.Nil(t, f.rank.Description)

	p, err := f.svc.Create(ctx, 7, profile.Input{CountryID: country.ID})
	require.NoError(t, err)
	assert.False(t, p.Timestamps.CreatedAt.IsZero())
}
