// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements authz.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/authz"
	"github.com/holomush/gambit/internal/store"
)

// Constraint names from the schema.
const (
	constraintRoleName         = "uq_roles_name"
	constraintUniqueUserRole   = "idx_unique_user_role"
	constraintUniqueRolePrivil = "idx_unique_role_privilege"
)

const (
	roleColumns      = `id, name, description, created_at, updated_at`
	privilegeColumns = `id, name, description, created_at, updated_at`
)

// Repository implements authz.Repository using PostgreSQL.
type Repository struct {
	db store.DB
}

// NewRepository creates a new Repository.
func NewRepository(db store.DB) *Repository {
	return &Repository{db: db}
}

// CreateRole inserts a role. A taken name returns authz.ErrAlreadyExists.
func (r *Repository) CreateRole(ctx context.Context, name string, description *string) (*authz.Role, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO roles (name, description) VALUES ($1, $2)
		RETURNING `+roleColumns, name, description)

	role, err := scanRole(row)
	if err != nil {
		if constraint, ok := store.IsUniqueViolation(err); ok && constraint == constraintRoleName {
			return nil, oops.Code("ROLE_ALREADY_EXISTS").
				With("role", name).
				Wrap(authz.ErrAlreadyExists)
		}
		return nil, oops.Code("ROLE_CREATE_FAILED").With("role", name).Wrap(err)
	}
	return role, nil
}

// GetRole retrieves a role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (*authz.Role, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return r.oneRole(row, "id", id)
}

// GetRoleByName retrieves a role by its unique name.
func (r *Repository) GetRoleByName(ctx context.Context, name string) (*authz.Role, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
	return r.oneRole(row, "role", name)
}

func (r *Repository) oneRole(row pgx.Row, key string, value any) (*authz.Role, error) {
	role, err := scanRole(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROLE_NOT_FOUND").With(key, value).Wrap(authz.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROLE_GET_FAILED").With(key, value).Wrap(err)
	}
	return role, nil
}

// ListRoles returns every role ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]*authz.Role, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, oops.Code("ROLE_LIST_FAILED").Wrap(err)
	}
	return store.CollectRows(rows, scanRole, "ROLE_LIST_FAILED")
}

// DeleteRole removes a role and, by cascade, its assignments.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	return r.deleteOne(ctx, "ROLE", `DELETE FROM roles WHERE id = $1`, id)
}

// CreatePrivilege inserts a privilege. Names are not unique.
func (r *Repository) CreatePrivilege(ctx context.Context, name string, description *string) (*authz.Privilege, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO privileges (name, description) VALUES ($1, $2)
		RETURNING `+privilegeColumns, name, description)

	p, err := scanPrivilege(row)
	if err != nil {
		return nil, oops.Code("PRIVILEGE_CREATE_FAILED").With("privilege", name).Wrap(err)
	}
	return p, nil
}

// GetPrivilege retrieves a privilege by id.
func (r *Repository) GetPrivilege(ctx context.Context, id int64) (*authz.Privilege, error) {
	row := store.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+privilegeColumns+` FROM privileges WHERE id = $1`, id)
	p, err := scanPrivilege(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PRIVILEGE_NOT_FOUND").With("id", id).Wrap(authz.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PRIVILEGE_GET_FAILED").With("id", id).Wrap(err)
	}
	return p, nil
}

// FindPrivilegesByName returns every privilege with name, oldest first.
func (r *Repository) FindPrivilegesByName(ctx context.Context, name string) ([]*authz.Privilege, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx,
		`SELECT `+privilegeColumns+` FROM privileges WHERE name = $1 ORDER BY id`, name)
	if err != nil {
		return nil, oops.Code("PRIVILEGE_LIST_FAILED").With("privilege", name).Wrap(err)
	}
	return store.CollectRows(rows, scanPrivilege, "PRIVILEGE_LIST_FAILED")
}

// ListPrivileges returns every privilege ordered by name.
func (r *Repository) ListPrivileges(ctx context.Context) ([]*authz.Privilege, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx,
		`SELECT `+privilegeColumns+` FROM privileges ORDER BY name, id`)
	if err != nil {
		return nil, oops.Code("PRIVILEGE_LIST_FAILED").Wrap(err)
	}
	return store.CollectRows(rows, scanPrivilege, "PRIVILEGE_LIST_FAILED")
}

// DeletePrivilege removes a privilege and, by cascade, its grants.
func (r *Repository) DeletePrivilege(ctx context.Context, id int64) error {
	return r.deleteOne(ctx, "PRIVILEGE", `DELETE FROM privileges WHERE id = $1`, id)
}

// AssignRole records that the user holds the role.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) (*authz.UserRole, error) {
	ur := &authz.UserRole{UserID: userID, RoleID: roleID}
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO users_roles_association_table (user_id, role_id)
		VALUES ($1, $2)
		RETURNING assigned_at`, userID, roleID).Scan(&ur.AssignedAt)
	if err != nil {
		return nil, assignmentError(err, "ROLE_ALREADY_ASSIGNED", constraintUniqueUserRole, "ROLE_ASSIGN_FAILED").
			With("user_id", userID).
			With("role_id", roleID).
			Wrap(cause(err))
	}
	return ur, nil
}

// RevokeRole deletes the user's role assignment.
func (r *Repository) RevokeRole(ctx context.Context, userID, roleID int64) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		DELETE FROM users_roles_association_table WHERE user_id = $1 AND role_id = $2`,
		userID, roleID)
	if err != nil {
		return oops.Code("ROLE_REVOKE_FAILED").With("user_id", userID).With("role_id", roleID).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ROLE_ASSIGNMENT_NOT_FOUND").
			With("user_id", userID).
			With("role_id", roleID).
			Wrap(authz.ErrNotFound)
	}
	return nil
}

// GrantPrivilege records that the role grants the privilege.
func (r *Repository) GrantPrivilege(ctx context.Context, roleID, privilegeID int64) (*authz.RolePrivilege, error) {
	rp := &authz.RolePrivilege{RoleID: roleID, PrivilegeID: privilegeID}
	err := store.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO roles_privileges_association_table (role_id, privilege_id)
		VALUES ($1, $2)
		RETURNING assigned_at`, roleID, privilegeID).Scan(&rp.AssignedAt)
	if err != nil {
		return nil, assignmentError(err, "PRIVILEGE_ALREADY_GRANTED", constraintUniqueRolePrivil, "PRIVILEGE_GRANT_FAILED").
			With("role_id", roleID).
			With("privilege_id", privilegeID).
			Wrap(cause(err))
	}
	return rp, nil
}

// RevokePrivilege deletes the role's privilege grant.
func (r *Repository) RevokePrivilege(ctx context.Context, roleID, privilegeID int64) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, `
		DELETE FROM roles_privileges_association_table WHERE role_id = $1 AND privilege_id = $2`,
		roleID, privilegeID)
	if err != nil {
		return oops.Code("PRIVILEGE_REVOKE_FAILED").With("role_id", roleID).With("privilege_id", privilegeID).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PRIVILEGE_GRANT_NOT_FOUND").
			With("role_id", roleID).
			With("privilege_id", privilegeID).
			Wrap(authz.ErrNotFound)
	}
	return nil
}

// RolesForUser lists the user's roles ordered by name.
func (r *Repository) RolesForUser(ctx context.Context, userID int64) ([]*authz.Role, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN users_roles_association_table ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, oops.Code("ROLE_LIST_FAILED").With("user_id", userID).Wrap(err)
	}
	return store.CollectRows(rows, scanRole, "ROLE_LIST_FAILED")
}

// UsersWithRole lists the ids of users holding the role.
func (r *Repository) UsersWithRole(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `
		SELECT user_id FROM users_roles_association_table
		WHERE role_id = $1
		ORDER BY user_id`, roleID)
	if err != nil {
		return nil, oops.Code("ROLE_MEMBERS_FAILED").With("role_id", roleID).Wrap(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, oops.Code("ROLE_MEMBERS_FAILED").With("role_id", roleID).Wrap(err)
	}
	return ids, nil
}

// PrivilegesForRole lists the privileges granted by the role.
func (r *Repository) PrivilegesForRole(ctx context.Context, roleID int64) ([]*authz.Privilege, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `
		SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		FROM privileges p
		JOIN roles_privileges_association_table rp ON rp.privilege_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name, p.id`, roleID)
	if err != nil {
		return nil, oops.Code("PRIVILEGE_LIST_FAILED").With("role_id", roleID).Wrap(err)
	}
	return store.CollectRows(rows, scanPrivilege, "PRIVILEGE_LIST_FAILED")
}

// PrivilegesForUser lists the distinct privileges the user holds through any role.
func (r *Repository) PrivilegesForUser(ctx context.Context, userID int64) ([]*authz.Privilege, error) {
	rows, err := store.Conn(ctx, r.db).Query(ctx, `
		SELECT DISTINCT p.id, p.name, p.description, p.created_at, p.updated_at
		FROM privileges p
		JOIN roles_privileges_association_table rp ON rp.privilege_id = p.id
		JOIN users_roles_association_table ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.name, p.id`, userID)
	if err != nil {
		return nil, oops.Code("PRIVILEGE_LIST_FAILED").With("user_id", userID).Wrap(err)
	}
	return store.CollectRows(rows, scanPrivilege, "PRIVILEGE_LIST_FAILED")
}

func (r *Repository) deleteOne(ctx context.Context, entity, sql string, id int64) error {
	result, err := store.Conn(ctx, r.db).Exec(ctx, sql, id)
	if err != nil {
		return oops.Code(entity+"_DELETE_FAILED").With("id", id).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(entity+"_NOT_FOUND").With("id", id).Wrap(authz.ErrNotFound)
	}
	return nil
}

// assignmentError picks the code for a failed assignment insert.
func assignmentError(err error, duplicateCode, constraint, failCode string) oops.OopsErrorBuilder {
	if name, ok := store.IsUniqueViolation(err); ok && name == constraint {
		return oops.Code(duplicateCode).With("constraint", name)
	}
	if name, ok := store.IsForeignKeyViolation(err); ok {
		return oops.Code(failCode).With("constraint", name)
	}
	return oops.Code(failCode)
}

// cause maps a failed assignment insert onto the authz kind sentinels.
func cause(err error) error {
	if _, ok := store.IsUniqueViolation(err); ok {
		return errors.Join(authz.ErrAssignmentExists, err)
	}
	if _, ok := store.IsForeignKeyViolation(err); ok {
		return errors.Join(authz.ErrNotFound, err)
	}
	return err
}

func scanRole(row pgx.Row) (*authz.Role, error) {
	var role authz.Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	return &role, nil
}

func scanPrivilege(row pgx.Row) (*authz.Privilege, error) {
	var p authz.Privilege
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context-specific info
	}
	return &p, nil
}

// Compile-time interface check.
var _ authz.Repository = (*Repository)(nil)
