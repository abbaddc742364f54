// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/auth"
)

// targetUser resolves the {uuid} path parameter.
func (s *Server) targetUser(r *http.Request) (*auth.User, error) {
	raw := chi.URLParam(r, "uuid")
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, oops.Code("REQUEST_MALFORMED").
			With("uuid", raw).
			Public("user id must be a uuid").
			Wrap(errors.Join(errBadRequest, err))
	}
	u, err := s.users.FindByUUID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, oops.Code("USER_NOT_FOUND").
			With("uuid", raw).
			Public("user not found").
			Wrap(auth.ErrNotFound)
	}
	return u, nil
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	u, err := s.targetUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.roles.AssignRoleByName(r.Context(), u.ID, chi.URLParam(r, "role")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	u, err := s.targetUser(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.roles.RevokeRoleByName(r.Context(), u.ID, chi.URLParam(r, "role")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
