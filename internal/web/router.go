// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/authz"
)

// maxRequestBodySize caps request bodies at 1 MiB.
const maxRequestBodySize = 1 << 20

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	// cors treats an empty origin list as "*", so no list means no CORS.
	if len(s.cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, oops.Code("ROUTE_NOT_FOUND").Wrap(errNoRoute))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, oops.Code("METHOD_NOT_ALLOWED").Wrap(errMethodNotAllowed))
	})

	r.Route("/jwt", func(r chi.Router) {
		r.Post("/token/", s.handleIssueTokens)
		r.Post("/refresh/", s.handleRefresh)
		r.With(s.authMiddleware).Get("/users/me/", s.handleMe)
	})

	r.Post("/users/", s.handleRegister)
	r.Get("/countries/", s.handleListCountries)
	r.Get("/ranks/", s.handleListRanks)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/users/me/profile/", s.handleGetProfile)
		r.Put("/users/me/profile/", s.handleSaveProfile)
		r.Get("/users/me/privileges/", s.handleMyPrivileges)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authz.RequirePrivilege(s.checker, PrivilegeAssignRoles, subjectID, s.writeError))
			r.Post("/users/{uuid}/roles/{role}", s.handleAssignRole)
			r.Delete("/users/{uuid}/roles/{role}", s.handleRevokeRole)
		})
	})

	return r
}
