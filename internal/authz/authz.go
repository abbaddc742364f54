// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authz models the user-role-privilege graph and answers privilege
// checks against it.
//
// Users hold roles and roles hold privileges, both through assignment records
// that carry the time the link was made. Assignments are only ever created or
// deleted. Every check reads the store; nothing is cached in process.
package authz

import (
	"context"
	"errors"
	"time"

	"github.com/holomush/gambit/internal/store"
)

// Field limits.
const (
	MaxRoleNameLength      = 50
	MaxPrivilegeNameLength = 100
	MaxDescriptionLength   = 300
)

// Kind sentinels.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrAssignmentExists = errors.New("assignment already exists")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

// Role is a named bundle of privileges.
type Role struct {
	ID   int64
	Name string
	store.Described
	store.Timestamps
}

// Privilege is a permission label such as "profiles.edit".
type Privilege struct {
	ID   int64
	Name string
	store.Described
	store.Timestamps
}

// UserRole records that a user holds a role.
type UserRole struct {
	UserID     int64
	RoleID     int64
	AssignedAt time.Time
}

// RolePrivilege records that a role grants a privilege.
type RolePrivilege struct {
	RoleID      int64
	PrivilegeID int64
	AssignedAt  time.Time
}

// Repository persists the authorization graph.
type Repository interface {
	CreateRole(ctx context.Context, name string, description *string) (*Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]*Role, error)
	DeleteRole(ctx context.Context, id int64) error

	CreatePrivilege(ctx context.Context, name string, description *string) (*Privilege, error)
	GetPrivilege(ctx context.Context, id int64) (*Privilege, error)
	FindPrivilegesByName(ctx context.Context, name string) ([]*Privilege, error)
	ListPrivileges(ctx context.Context) ([]*Privilege, error)
	DeletePrivilege(ctx context.Context, id int64) error

	// AssignRole fails with ErrAssignmentExists when the user already holds
	// the role and with ErrNotFound when either side does not exist.
	AssignRole(ctx context.Context, userID, roleID int64) (*UserRole, error)
	RevokeRole(ctx context.Context, userID, roleID int64) error
	// GrantPrivilege fails with ErrAssignmentExists when the role already
	// grants the privilege and with ErrNotFound when either side does not exist.
	GrantPrivilege(ctx context.Context, roleID, privilegeID int64) (*RolePrivilege, error)
	RevokePrivilege(ctx context.Context, roleID, privilegeID int64) error

	RolesForUser(ctx context.Context, userID int64) ([]*Role, error)
	UsersWithRole(ctx context.Context, roleID int64) ([]int64, error)
	PrivilegesForRole(ctx context.Context, roleID int64) ([]*Privilege, error)
	PrivilegesForUser(ctx context.Context, userID int64) ([]*Privilege, error)
}
