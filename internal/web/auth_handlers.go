// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/auth"
)

type meResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// handleIssueTokens authenticates form credentials and returns a token pair.
func (s *Server) handleIssueTokens(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		kind := errBadRequest
		if errors.As(err, &tooLarge) {
			kind = errTooLarge
		}
		s.writeError(w, r, oops.Code("REQUEST_MALFORMED").
			Public("request body must be form encoded").
			Wrap(errors.Join(kind, err)))
		return
	}

	_, pair, err := s.authn.Login(r.Context(), auth.LoginInput{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleRefresh exchanges the bearer refresh token for a new access token.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pair, err := s.authn.Refresh(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// handleMe returns the authenticated user's username and email.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r.Context())
	writeJSON(w, http.StatusOK, meResponse{Username: u.Username, Email: u.Email})
}
