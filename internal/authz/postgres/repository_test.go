// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gambit/internal/authz"
	"github.com/holomush/gambit/internal/authz/postgres"
	"github.com/holomush/gambit/pkg/errutil"
)

var labelCols = []string{"id", "name", "description", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func strPtr(s string) *string { return &s }

func TestRepository_CreateRole(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	desc := strPtr("site staff")

	t.Run("returns the stored row", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO roles`).
			WithArgs("staff", desc).
			WillReturnRows(pgxmock.NewRows(labelCols).AddRow(int64(3), "staff", desc, now, now))

		role, err := postgres.NewRepository(mock).CreateRole(ctx, "staff", desc)
		require.NoError(t, err)
		assert.Equal(t, int64(3), role.ID)
		assert.Equal(t, "staff", role.Name)
		require.NotNil(t, role.Description)
		assert.Equal(t, "site staff", *role.Description)
		assert.Equal(t, now, role.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate name", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO roles`).
			WithArgs("staff", desc).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "uq_roles_name"})

		_, err := postgres.NewRepository(mock).CreateRole(ctx, "staff", desc)
		errutil.AssertErrorKind(t, err, "ROLE_ALREADY_EXISTS", authz.ErrAlreadyExists)
		errutil.AssertErrorContext(t, err, "role", "staff")
	})

	t.Run("other failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO roles`).
			WithArgs("staff", desc).
			WillReturnError(errors.New("connection reset"))

		_, err := postgres.NewRepository(mock).CreateRole(ctx, "staff", desc)
		errutil.AssertErrorCode(t, err, "ROLE_CREATE_FAILED")
		assert.NotErrorIs(t, err, authz.ErrAlreadyExists)
	})
}

func TestRepository_GetRoleByName(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM roles WHERE name = \$1`).
			WithArgs("admin").
			WillReturnRows(pgxmock.NewRows(labelCols).AddRow(int64(1), "admin", nil, now, now))

		role, err := postgres.NewRepository(mock).GetRoleByName(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, int64(1), role.ID)
		assert.Nil(t, role.Description)
	})

	t.Run("missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM roles WHERE name = \$1`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := postgres.NewRepository(mock).GetRoleByName(ctx, "ghost")
		errutil.AssertErrorKind(t, err, "ROLE_NOT_FOUND", authz.ErrNotFound)
	})

	t.Run("query failure", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM roles WHERE id = \$1`).
			WithArgs(int64(9)).
			WillReturnError(errors.New("timeout"))

		_, err := postgres.NewRepository(mock).GetRole(ctx, 9)
		errutil.AssertErrorCode(t, err, "ROLE_GET_FAILED")
	})
}

func TestRepository_AssignRole(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("records assignment time", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO users_roles_association_table`).
			WithArgs(int64(7), int64(2)).
			WillReturnRows(pgxmock.NewRows([]string{"assigned_at"}).AddRow(now))

		ur, err := postgres.NewRepository(mock).AssignRole(ctx, 7, 2)
		require.NoError(t, err)
		assert.Equal(t, authz.UserRole{UserID: 7, RoleID: 2, AssignedAt: now}, *ur)
	})

	t.Run("already assigned", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO users_roles_association_table`).
			WithArgs(int64(7), int64(2)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "idx_unique_user_role"})

		_, err := postgres.NewRepository(mock).AssignRole(ctx, 7, 2)
		errutil.AssertErrorKind(t, err, "ROLE_ALREADY_ASSIGNED", authz.ErrAssignmentExists)
		errutil.AssertErrorContext(t, err, "user_id", int64(7))
	})

	t.Run("unknown user or role", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO users_roles_association_table`).
			WithArgs(int64(7), int64(99)).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "users_roles_association_table_role_id_fkey"})

		_, err := postgres.NewRepository(mock).AssignRole(ctx, 7, 99)
		errutil.AssertErrorKind(t, err, "ROLE_ASSIGN_FAILED", authz.ErrNotFound)
	})
}

func TestRepository_GrantPrivilege(t *testing.T) {
	ctx := context.Background()

	mock := newMock(t)
	mock.ExpectQuery(`INSERT INTO roles_privileges_association_table`).
		WithArgs(int64(2), int64(5)).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "idx_unique_role_privilege"})

	_, err := postgres.NewRepository(mock).GrantPrivilege(ctx, 2, 5)
	errutil.AssertErrorKind(t, err, "PRIVILEGE_ALREADY_GRANTED", authz.ErrAssignmentExists)
	errutil.AssertErrorContext(t, err, "privilege_id", int64(5))
}

func TestRepository_Revoke(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		affected int64
		wantCode string
	}{
		{name: "removes the link", affected: 1},
		{name: "missing link", affected: 0, wantCode: "ROLE_ASSIGNMENT_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectExec(`DELETE FROM users_roles_association_table`).
				WithArgs(int64(7), int64(2)).
				WillReturnResult(pgxmock.NewResult("DELETE", tt.affected))

			err := postgres.NewRepository(mock).RevokeRole(ctx, 7, 2)
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorKind(t, err, tt.wantCode, authz.ErrNotFound)
		})
	}

	t.Run("privilege grant missing", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM roles_privileges_association_table`).
			WithArgs(int64(2), int64(5)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := postgres.NewRepository(mock).RevokePrivilege(ctx, 2, 5)
		errutil.AssertErrorKind(t, err, "PRIVILEGE_GRANT_NOT_FOUND", authz.ErrNotFound)
	})
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()

	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM roles WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`DELETE FROM privileges WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnError(errors.New("boom"))

	repo := postgres.NewRepository(mock)
	errutil.AssertErrorKind(t, repo.DeleteRole(ctx, 4), "ROLE_NOT_FOUND", authz.ErrNotFound)
	errutil.AssertErrorCode(t, repo.DeletePrivilege(ctx, 4), "PRIVILEGE_DELETE_FAILED")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_PrivilegesForUser(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("collects rows", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT DISTINCT p.id`).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows(labelCols).
				AddRow(int64(1), "profiles.edit", nil, now, now).
				AddRow(int64(2), "roles.assign", strPtr("grant roles"), now, now))

		got, err := postgres.NewRepository(mock).PrivilegesForUser(ctx, 7)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "profiles.edit", got[0].Name)
		assert.Equal(t, "roles.assign", got[1].Name)
	})

	t.Run("no roles yields empty", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT DISTINCT p.id`).
			WithArgs(int64(8)).
			WillReturnRows(pgxmock.NewRows(labelCols))

		got, err := postgres.NewRepository(mock).PrivilegesForUser(ctx, 8)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("row error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT DISTINCT p.id`).
			WithArgs(int64(7)).
			WillReturnRows(pgxmock.NewRows(labelCols).
				AddRow(int64(1), "profiles.edit", nil, now, now).
				RowError(0, errors.New("network")))

		_, err := postgres.NewRepository(mock).PrivilegesForUser(ctx, 7)
		errutil.AssertErrorCode(t, err, "PRIVILEGE_LIST_FAILED")
	})
}

func TestRepository_UsersWithRole(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT user_id FROM users_roles_association_table`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(3)).AddRow(int64(9)))

	ids, err := postgres.NewRepository(mock).UsersWithRole(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, ids)
}
