// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authztest provides an in-memory authz.Repository for tests.
package authztest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/authz"
	"github.com/holomush/gambit/internal/store"
)

type userRole struct{ user, role int64 }
type rolePriv struct{ role, priv int64 }

// Repository is an in-memory authz.Repository. Users are not tracked, so
// assigning a role to any user id succeeds.
type Repository struct {
	mu         sync.Mutex
	nextID     int64
	roles      map[int64]*authz.Role
	privileges map[int64]*authz.Privilege
	userRoles  map[userRole]time.Time
	rolePrivs  map[rolePriv]time.Time
}

// NewRepository returns an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		roles:      make(map[int64]*authz.Role),
		privileges: make(map[int64]*authz.Privilege),
		userRoles:  make(map[userRole]time.Time),
		rolePrivs:  make(map[rolePriv]time.Time),
	}
}

// Grant creates (or reuses) the role and privileges and links them to user.
func (r *Repository) Grant(userID int64, roleName string, privileges ...string) {
	ctx := context.Background()
	role, err := r.GetRoleByName(ctx, roleName)
	if err != nil {
		role, _ = r.CreateRole(ctx, roleName, nil)
	}
	_, _ = r.AssignRole(ctx, userID, role.ID)
	for _, name := range privileges {
		p, _ := r.CreatePrivilege(ctx, name, nil)
		_, _ = r.GrantPrivilege(ctx, role.ID, p.ID)
	}
}

func (r *Repository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *Repository) CreateRole(_ context.Context, name string, description *string) (*authz.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.Name == name {
			return nil, oops.Code("ROLE_ALREADY_EXISTS").With("role", name).Wrap(authz.ErrAlreadyExists)
		}
	}
	now := time.Now()
	role := &authz.Role{ID: r.id(), Name: name, Described: store.Described{Description: description},
		Timestamps: store.Timestamps{CreatedAt: now, UpdatedAt: now}}
	r.roles[role.ID] = role
	clone := *role
	return &clone, nil
}

func (r *Repository) GetRole(_ context.Context, id int64) (*authz.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, oops.Code("ROLE_NOT_FOUND").With("id", id).Wrap(authz.ErrNotFound)
	}
	clone := *role
	return &clone, nil
}

func (r *Repository) GetRoleByName(_ context.Context, name string) (*authz.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range r.roles {
		if role.Name == name {
			clone := *role
			return &clone, nil
		}
	}
	return nil, oops.Code("ROLE_NOT_FOUND").With("role", name).Wrap(authz.ErrNotFound)
}

func (r *Repository) ListRoles(_ context.Context) ([]*authz.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedRoles(r.roles, func(*authz.Role) bool { return true }), nil
}

func (r *Repository) DeleteRole(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return oops.Code("ROLE_NOT_FOUND").With("id", id).Wrap(authz.ErrNotFound)
	}
	delete(r.roles, id)
	for k := range r.userRoles {
		if k.role == id {
			delete(r.userRoles, k)
		}
	}
	for k := range r.rolePrivs {
		if k.role == id {
			delete(r.rolePrivs, k)
		}
	}
	return nil
}

func (r *Repository) CreatePrivilege(_ context.Context, name string, description *string) (*authz.Privilege, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	p := &authz.Privilege{ID: r.id(), Name: name, Described: store.Described{Description: description},
		Timestamps: store.Timestamps{CreatedAt: now, UpdatedAt: now}}
	r.privileges[p.ID] = p
	clone := *p
	return &clone, nil
}

func (r *Repository) GetPrivilege(_ context.Context, id int64) (*authz.Privilege, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.privileges[id]
	if !ok {
		return nil, oops.Code("PRIVILEGE_NOT_FOUND").With("id", id).Wrap(authz.ErrNotFound)
	}
	clone := *p
	return &clone, nil
}

func (r *Repository) FindPrivilegesByName(_ context.Context, name string) ([]*authz.Privilege, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := sortedPrivileges(r.privileges, func(p *authz.Privilege) bool { return p.Name == name })
	slices.SortFunc(found, func(a, b *authz.Privilege) int { return int(a.ID - b.ID) })
	return found, nil
}

func (r *Repository) ListPrivileges(_ context.Context) ([]*authz.Privilege, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedPrivileges(r.privileges, func(*authz.Privilege) bool { return true }), nil
}

func (r *Repository) DeletePrivilege(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.privileges[id]; !ok {
		return oops.Code("PRIVILEGE_NOT_FOUND").With("id", id).Wrap(authz.ErrNotFound)
	}
	delete(r.privileges, id)
	for k := range r.rolePrivs {
		if k.priv == id {
			delete(r.rolePrivs, k)
		}
	}
	return nil
}

func (r *Repository) AssignRole(_ context.Context, userID, roleID int64) (*authz.UserRole, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[roleID]; !ok {
		return nil, oops.Code("ROLE_ASSIGN_FAILED").With("role_id", roleID).Wrap(authz.ErrNotFound)
	}
	key := userRole{userID, roleID}
	if _, ok := r.userRoles[key]; ok {
		return nil, oops.Code("ROLE_ALREADY_ASSIGNED").
			With("user_id", userID).
			With("role_id", roleID).
			Wrap(authz.ErrAssignmentExists)
	}
	now := time.Now()
	r.userRoles[key] = now
	return &authz.UserRole{UserID: userID, RoleID: roleID, AssignedAt: now}, nil
}

func (r *Repository) RevokeRole(_ context.Context, userID, roleID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userRole{userID, roleID}
	if _, ok := r.userRoles[key]; !ok {
		return oops.Code("ROLE_ASSIGNMENT_NOT_FOUND").Wrap(authz.ErrNotFound)
	}
	delete(r.userRoles, key)
	return nil
}

func (r *Repository) GrantPrivilege(_ context.Context, roleID, privilegeID int64) (*authz.RolePrivilege, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, roleOK := r.roles[roleID]
	_, privOK := r.privileges[privilegeID]
	if !roleOK || !privOK {
		return nil, oops.Code("PRIVILEGE_GRANT_FAILED").Wrap(authz.ErrNotFound)
	}
	key := rolePriv{roleID, privilegeID}
	if _, ok := r.rolePrivs[key]; ok {
		return nil, oops.Code("PRIVILEGE_ALREADY_GRANTED").Wrap(authz.ErrAssignmentExists)
	}
	now := time.Now()
	r.rolePrivs[key] = now
	return &authz.RolePrivilege{RoleID: roleID, PrivilegeID: privilegeID, AssignedAt: now}, nil
}

func (r *Repository) RevokePrivilege(_ context.Context, roleID, privilegeID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := rolePriv{roleID, privilegeID}
	if _, ok := r.rolePrivs[key]; !ok {
		return oops.Code("PRIVILEGE_GRANT_NOT_FOUND").Wrap(authz.ErrNotFound)
	}
	delete(r.rolePrivs, key)
	return nil
}

func (r *Repository) RolesForUser(_ context.Context, userID int64) ([]*authz.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedRoles(r.roles, func(role *authz.Role) bool {
		_, ok := r.userRoles[userRole{userID, role.ID}]
		return ok
	}), nil
}

func (r *Repository) UsersWithRole(_ context.Context, roleID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for k := range r.userRoles {
		if k.role == roleID {
			ids = append(ids, k.user)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *Repository) PrivilegesForRole(_ context.Context, roleID int64) ([]*authz.Privilege, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedPrivileges(r.privileges, func(p *authz.Privilege) bool {
		_, ok := r.rolePrivs[rolePriv{roleID, p.ID}]
		return ok
	}), nil
}

func (r *Repository) PrivilegesForUser(_ context.Context, userID int64) ([]*authz.Privilege, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedPrivileges(r.privileges, func(p *authz.Privilege) bool {
		for k := range r.rolePrivs {
			if k.priv != p.ID {
				continue
			}
			if _, ok := r.userRoles[userRole{userID, k.role}]; ok {
				return true
			}
		}
		return false
	}), nil
}

func sortedRoles(all map[int64]*authz.Role, keep func(*authz.Role) bool) []*authz.Role {
	var out []*authz.Role
	for _, role := range all {
		if keep(role) {
			clone := *role
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *authz.Role) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func sortedPrivileges(all map[int64]*authz.Privilege, keep func(*authz.Privilege) bool) []*authz.Privilege {
	var out []*authz.Privilege
	for _, p := range all {
		if keep(p) {
			clone := *p
			out = append(out, &clone)
		}
	}
	slices.SortFunc(out, func(a, b *authz.Privilege) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return out
}

var _ authz.Repository = (*Repository)(nil)
