// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/validate"
)

// Service validates input and manages the graph by name.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a Service. A nil logger discards logs.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Repository returns the underlying store.
func (s *Service) Repository() Repository {
	return s.repo
}

// CreateRole validates and creates a role.
func (s *Service) CreateRole(ctx context.Context, name string, description *string) (*Role, error) {
	if err := checkLabel("role name", name, MaxRoleNameLength, description); err != nil {
		return nil, err
	}
	return s.repo.CreateRole(ctx, name, description)
}

// CreatePrivilege validates and creates a privilege.
func (s *Service) CreatePrivilege(ctx context.Context, name string, description *string) (*Privilege, error) {
	if err := checkLabel("privilege name", name, MaxPrivilegeNameLength, description); err != nil {
		return nil, err
	}
	return s.repo.CreatePrivilege(ctx, name, description)
}

// EnsureRole returns the named role, creating it when absent.
func (s *Service) EnsureRole(ctx context.Context, name string, description *string) (*Role, bool, error) {
	role, err := s.repo.GetRoleByName(ctx, name)
	if err == nil {
		return role, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	role, err = s.CreateRole(ctx, name, description)
	if err != nil {
		return nil, false, err
	}
	return role, true, nil
}

// EnsurePrivilege returns the first privilege with name, creating it when
// absent. Privilege names are not unique in the store.
func (s *Service) EnsurePrivilege(ctx context.Context, name string, description *string) (*Privilege, bool, error) {
	found, err := s.repo.FindPrivilegesByName(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if len(found) > 0 {
		return found[0], false, nil
	}
	p, err := s.CreatePrivilege(ctx, name, description)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// AssignRoleByName gives the user the named role.
func (s *Service) AssignRoleByName(ctx context.Context, userID int64, roleName string) (*UserRole, error) {
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	ur, err := s.repo.AssignRole(ctx, userID, role.ID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "role assigned", "user_id", userID, "role", roleName)
	return ur, nil
}

// RevokeRoleByName removes the named role from the user.
func (s *Service) RevokeRoleByName(ctx context.Context, userID int64, roleName string) error {
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	if err := s.repo.RevokeRole(ctx, userID, role.ID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "role revoked", "user_id", userID, "role", roleName)
	return nil
}

// PrivilegesForUser lists the privileges the user holds through any role.
func (s *Service) PrivilegesForUser(ctx context.Context, userID int64) ([]*Privilege, error) {
	return s.repo.PrivilegesForUser(ctx, userID)
}

func checkLabel(field, name string, limit int, description *string) error {
	if err := validate.Required(field, name); err != nil {
		return err
	}
	if err := validate.MaxLength(field, name, limit); err != nil {
		return err
	}
	if description != nil {
		if err := validate.MaxLength("description", *description, MaxDescriptionLength); err != nil {
			return oops.With("label", name).Wrap(err)
		}
	}
	return nil
}
