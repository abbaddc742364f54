// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authz

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// PrivilegeSource lists the privileges a user holds.
type PrivilegeSource interface {
	PrivilegesForUser(ctx context.Context, userID int64) ([]*Privilege, error)
}

// Checker answers privilege checks from the store.
//
// A held privilege name containing glob metacharacters is a pattern over
// dot-separated labels: "profiles.*" grants "profiles.edit" but not
// "profiles.edit.avatar", and "**" grants everything.
type Checker struct {
	source PrivilegeSource
	logger *slog.Logger
}

// NewChecker creates a Checker. A nil logger discards logs.
func NewChecker(source PrivilegeSource, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Checker{source: source, logger: logger}
}

// HasPrivilege reports whether the user holds privilege through any role.
func (c *Checker) HasPrivilege(ctx context.Context, userID int64, privilege string) (bool, error) {
	held, err := c.source.PrivilegesForUser(ctx, userID)
	if err != nil {
		return false, oops.Code("AUTHZ_CHECK_FAILED").
			With("user_id", userID).
			With("privilege", privilege).
			Wrap(err)
	}

	for _, p := range held {
		if c.grants(p.Name, privilege) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Checker) grants(held, wanted string) bool {
	if held == wanted {
		return true
	}
	if !strings.ContainsAny(held, "*?[{") {
		return false
	}
	g, err := glob.Compile(held, '.')
	if err != nil {
		c.logger.Warn("ignoring invalid privilege pattern",
			"pattern", held,
			"error", err)
		return false
	}
	return g.Match(wanted)
}

// SubjectFunc extracts the authenticated user's internal id from a request.
type SubjectFunc func(r *http.Request) (userID int64, ok bool)

// DenyFunc writes the response for a refused request.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// RequirePrivilege returns middleware that lets the request through only when
// the authenticated user holds privilege. A missing subject is denied with
// ErrUnauthenticated and a missing privilege with ErrForbidden.
func RequirePrivilege(c *Checker, privilege string, subject SubjectFunc, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := subject(r)
			if !ok {
				deny(w, r, oops.Code("UNAUTHENTICATED").Wrap(ErrUnauthenticated))
				return
			}

			allowed, err := c.HasPrivilege(r.Context(), userID, privilege)
			if err != nil {
				deny(w, r, err)
				return
			}
			if !allowed {
				deny(w, r, oops.Code("FORBIDDEN").
					With("privilege", privilege).
					Wrapf(ErrForbidden, "missing privilege %s", privilege))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
