// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package profiletest provides an in-memory profile.Repository for tests.
package profiletest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/profile"
)

// Repository is an in-memory profile.Repository.
type Repository struct {
	mu        sync.Mutex
	nextID    int64
	profiles  map[int64]*profile.Profile // by user id
	countries map[int64]*profile.Country
	ranks     map[int64]*profile.Rank
}

// NewRepository returns an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		profiles:  make(map[int64]*profile.Profile),
		countries: make(map[int64]*profile.Country),
		ranks:     make(map[int64]*profile.Rank),
	}
}

func (r *Repository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *Repository) CreateProfile(_ context.Context, p *profile.Profile) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.UserID]; ok {
		return nil, oops.Code("PROFILE_ALREADY_EXISTS").With("user_id", p.UserID).Wrap(profile.ErrAlreadyExists)
	}
	if err := r.checkRefs(p); err != nil {
		return nil, err
	}
	stored := *p
	stored.ID = r.id()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.profiles[p.UserID] = &stored
	clone := stored
	return &clone, nil
}

func (r *Repository) GetProfileByUserID(_ context.Context, userID int64) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("user_id", userID).Wrap(profile.ErrNotFound)
	}
	clone := *p
	return &clone, nil
}

func (r *Repository) UpdateProfile(_ context.Context, p *profile.Profile) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.profiles[p.UserID]
	if !ok {
		return nil, oops.Code("PROFILE_NOT_FOUND").With("user_id", p.UserID).Wrap(profile.ErrNotFound)
	}
	if err := r.checkRefs(p); err != nil {
		return nil, err
	}
	stored := *p
	stored.ID = existing.ID
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	r.profiles[p.UserID] = &stored
	clone := stored
	return &clone, nil
}

func (r *Repository) checkRefs(p *profile.Profile) error {
	if _, ok := r.countries[p.CountryID]; !ok {
		return oops.Code("PROFILE_REFERENCE_NOT_FOUND").With("country_id", p.CountryID).Wrap(profile.ErrNotFound)
	}
	if p.RankID != nil {
		if _, ok := r.ranks[*p.RankID]; !ok {
			return oops.Code("PROFILE_REFERENCE_NOT_FOUND").With("rank_id", *p.RankID).Wrap(profile.ErrNotFound)
		}
	}
	return nil
}

func (r *Repository) CreateCountry(_ context.Context, c *profile.Country) (*profile.Country, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.countries {
		if existing.Name == c.Name || existing.Code == c.Code {
			return nil, oops.Code("COUNTRY_ALREADY_EXISTS").With("country", c.Code).Wrap(profile.ErrAlreadyExists)
		}
	}
	stored := *c
	stored.ID = r.id()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.countries[stored.ID] = &stored
	clone := stored
	return &clone, nil
}

func (r *Repository) GetCountry(_ context.Context, id int64) (*profile.Country, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.countries[id]
	if !ok {
		return nil, oops.Code("COUNTRY_NOT_FOUND").With("id", id).Wrap(profile.ErrNotFound)
	}
	clone := *c
	return &clone, nil
}

func (r *Repository) GetCountryByCode(_ context.Context, code string) (*profile.Country, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.countries {
		if c.Code == code {
			clone := *c
			return &clone, nil
		}
	}
	return nil, oops.Code("COUNTRY_NOT_FOUND").With("code", code).Wrap(profile.ErrNotFound)
}

func (r *Repository) ListCountries(_ context.Context) ([]*profile.Country, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*profile.Country, 0, len(r.countries))
	for _, c := range r.countries {
		clone := *c
		out = append(out, &clone)
	}
	slices.SortFunc(out, func(a, b *profile.Country) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *Repository) CreateRank(_ context.Context, rank *profile.Rank) (*profile.Rank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.ranks {
		if existing.Name == rank.Name || existing.Abbreviation == rank.Abbreviation {
			return nil, oops.Code("RANK_ALREADY_EXISTS").With("rank", rank.Name).Wrap(profile.ErrAlreadyExists)
		}
	}
	stored := *rank
	stored.ID = r.id()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.ranks[stored.ID] = &stored
	clone := stored
	return &clone, nil
}

func (r *Repository) GetRank(_ context.Context, id int64) (*profile.Rank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rank, ok := r.ranks[id]
	if !ok {
		return nil, oops.Code("RANK_NOT_FOUND").With("id", id).Wrap(profile.ErrNotFound)
	}
	clone := *rank
	return &clone, nil
}

func (r *Repository) ListRanks(_ context.Context) ([]*profile.Rank, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*profile.Rank, 0, len(r.ranks))
	for _, rank := range r.ranks {
		clone := *rank
		out = append(out, &clone)
	}
	slices.SortFunc(out, func(a, b *profile.Rank) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

var _ profile.Repository = (*Repository)(nil)
