// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gambit/internal/auth"
	authpg "github.com/holomush/gambit/internal/auth/postgres"
	"github.com/holomush/gambit/internal/authz"
	"github.com/holomush/gambit/internal/authz/postgres"
)

func createUser(t *testing.T, username string) *auth.User {
	t.Helper()
	u, err := authpg.NewUserRepository(testDB.Pool).Create(context.Background(), &auth.NewUser{
		UUID:         uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$v=19$m=64,t=1,p=1$c2FsdA$aGFzaA",
	})
	require.NoError(t, err)
	return u
}

func TestRepository_Integration_Graph(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := postgres.NewRepository(testDB.Pool)
	user := createUser(t, "magnus_c")

	admin, err := repo.CreateRole(ctx, "admin", nil)
	require.NoError(t, err)
	editor, err := repo.CreateRole(ctx, "editor", nil)
	require.NoError(t, err)

	edit, err := repo.CreatePrivilege(ctx, "profiles.edit", nil)
	require.NoError(t, err)
	assign, err := repo.CreatePrivilege(ctx, "roles.assign", nil)
	require.NoError(t, err)

	_, err = repo.GrantPrivilege(ctx, admin.ID, edit.ID)
	require.NoError(t, err)
	_, err = repo.GrantPrivilege(ctx, admin.ID, assign.ID)
	require.NoError(t, err)
	_, err = repo.GrantPrivilege(ctx, editor.ID, edit.ID)
	require.NoError(t, err)

	ur, err := repo.AssignRole(ctx, user.ID, admin.ID)
	require.NoError(t, err)
	assert.False(t, ur.AssignedAt.IsZero())
	_, err = repo.AssignRole(ctx, user.ID, editor.ID)
	require.NoError(t, err)

	roles, err := repo.RolesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "admin", roles[0].Name)

	privs, err := repo.PrivilegesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, privs, 2, "privileges reachable through two roles are listed once")

	members, err := repo.UsersWithRole(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{user.ID}, members)

	require.NoError(t, repo.RevokeRole(ctx, user.ID, admin.ID))
	privs, err = repo.PrivilegesForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, privs, 1)
	assert.Equal(t, "profiles.edit", privs[0].Name)
}

func TestRepository_Integration_Constraints(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repo := postgres.NewRepository(testDB.Pool)
	user := createUser(t, "helena_r")

	role, err := repo.CreateRole(ctx, "staff", nil)
	require.NoError(t, err)

	_, err = repo.CreateRole(ctx, "staff", nil)
	assert.ErrorIs(t, err, authz.ErrAlreadyExists)

	_, err = repo.AssignRole(ctx, user.ID, role.ID)
	require.NoError(t, err)
	_, err = repo.AssignRole(ctx, user.ID, role.ID)
	assert.ErrorIs(t, err, authz.ErrAssignmentExists)

	_, err = repo.AssignRole(ctx, user.ID, role.ID+100)
	assert.ErrorIs(t, err, authz.ErrNotFound)

	// Privilege names are not unique.
	first, err := repo.CreatePrivilege(ctx, "profiles.view", nil)
	require.NoError(t, err)
	_, err = repo.CreatePrivilege(ctx, "profiles.view", nil)
	require.NoError(t, err)
	found, err := repo.FindPrivilegesByName(ctx, "profiles.view")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, first.ID, found[0].ID)

	_, err = repo.GrantPrivilege(ctx, role.ID, first.ID)
	require.NoError(t, err)
	_, err = repo.GrantPrivilege(ctx, role.ID, first.ID)
	assert.ErrorIs(t, err, authz.ErrAssignmentExists)

	require.NoError(t, repo.DeleteRole(ctx, role.ID))
	roles, err := repo.RolesForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)
}
