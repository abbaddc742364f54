// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/holomush/gambit/internal/auth"
	"github.com/holomush/gambit/internal/authz"
	"github.com/holomush/gambit/internal/profile"
)

type registerRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type userResponse struct {
	UUID       uuid.UUID `json:"uuid"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	DateJoined time.Time `json:"date_joined"`
	IsActive   bool      `json:"is_active"`
}

type profileResponse struct {
	Name        *string   `json:"name"`
	Surname     *string   `json:"surname"`
	Gender      string    `json:"gender"`
	DateOfBirth *string   `json:"date_of_birth"`
	Biography   *string   `json:"biography"`
	AvatarURL   *string   `json:"avatar_url"`
	CountryID   int64     `json:"country_id"`
	RankID      *int64    `json:"rank_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type countryResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	Description *string `json:"description"`
}

type rankResponse struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Abbreviation string  `json:"abbreviation"`
	Description  *string `json:"description"`
}

type privilegeResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		UUID:       u.UUID,
		Username:   u.Username,
		Email:      u.Email,
		DateJoined: u.DateJoined,
		IsActive:   u.IsActive,
	}
}

func newProfileResponse(p *profile.Profile) profileResponse {
	resp := profileResponse{
		Name:      p.Name,
		Surname:   p.Surname,
		Gender:    string(p.Gender),
		Biography: p.Biography,
		AvatarURL: p.AvatarURL,
		CountryID: p.CountryID,
		RankID:    p.RankID,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.DateOfBirth != nil {
		dob := p.DateOfBirth.Format(profile.DateLayout)
		resp.DateOfBirth = &dob
	}
	return resp
}

// handleRegister creates an account from a JSON registration.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Register(r.Context(), auth.Registration{
		Username:             req.Username,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(u))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(p))
}

// handleSaveProfile creates the profile (201) or replaces it (200).
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var in profile.Input
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, created, err := s.profiles.Save(r.Context(), currentUser(r.Context()).ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, newProfileResponse(p))
}

func (s *Server) handleMyPrivileges(w http.ResponseWriter, r *http.Request) {
	privs, err := s.roles.PrivilegesForUser(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, privilegeResponses(privs))
}

func privilegeResponses(privs []*authz.Privilege) []privilegeResponse {
	out := make([]privilegeResponse, 0, len(privs))
	for _, p := range privs {
		out = append(out, privilegeResponse{ID: p.ID, Name: p.Name, Description: p.Description})
	}
	return out
}

func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := s.profiles.ListCountries(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]countryResponse, 0, len(countries))
	for _, c := range countries {
		out = append(out, countryResponse{ID: c.ID, Name: c.Name, Code: c.Code, Description: c.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRanks(w http.ResponseWriter, r *http.Request) {
	ranks, err := s.profiles.ListRanks(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]rankResponse, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, rankResponse{ID: rank.ID, Name: rank.Name, Abbreviation: rank.Abbreviation, Description: rank.Description})
	}
	writeJSON(w, http.StatusOK, out)
}
