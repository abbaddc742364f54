// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/gambit/internal/auth"
	authpg "github.com/holomush/gambit/internal/auth/postgres"
	"github.com/holomush/gambit/internal/authz"
	authzpg "github.com/holomush/gambit/internal/authz/postgres"
	"github.com/holomush/gambit/internal/store"
)

const defaultAdminTimeout = 10 * time.Second

// userStore is the part of auth.UserRepository the admin commands use.
type userStore interface {
	GetByUsername(ctx context.Context, username string) (*auth.User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// admin performs operator actions on users and their roles.
type admin struct {
	users userStore
	roles *authz.Service
}

func (a *admin) user(ctx context.Context, username string) (*auth.User, error) {
	u, err := a.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, oops.With("username", username).Wrap(err)
	}
	return u, nil
}

func (a *admin) assign(ctx context.Context, username, role string) error {
	u, err := a.user(ctx, username)
	if err != nil {
		return err
	}
	_, err = a.roles.AssignRoleByName(ctx, u.ID, role)
	return err
}

func (a *admin) revoke(ctx context.Context, username, role string) error {
	u, err := a.user(ctx, username)
	if err != nil {
		return err
	}
	return a.roles.RevokeRoleByName(ctx, u.ID, role)
}

// describe returns the user's role names and privilege names.
func (a *admin) describe(ctx context.Context, username string) (roles, privileges []string, err error) {
	u, err := a.user(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	held, err := a.roles.Repository().RolesForUser(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, r := range held {
		roles = append(roles, r.Name)
	}
	privs, err := a.roles.PrivilegesForUser(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range privs {
		privileges = append(privileges, p.Name)
	}
	return roles, privileges, nil
}

func (a *admin) setActive(ctx context.Context, username string, active bool) error {
	u, err := a.user(ctx, username)
	if err != nil {
		return err
	}
	return a.users.SetActive(ctx, u.ID, active)
}

// withAdmin connects to the database and runs fn with an admin bound to it.
func withAdmin(cmd *cobra.Command, fn func(ctx context.Context, a *admin) error) error {
	databaseURL, err := getDatabaseURL(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), defaultAdminTimeout)
	defer cancel()

	pool, err := store.Connect(ctx, databaseURL, 0)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	return fn(ctx, &admin{
		users: authpg.NewUserRepository(pool),
		roles: authz.NewService(authzpg.NewRepository(pool), nil),
	})
}

// NewRoleCmd creates the role command group.
func NewRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage user roles",
		Long: `Assign and revoke roles from the command line. Used to bootstrap the
first administrator, who can then manage roles through the API.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "assign USERNAME ROLE",
		Short: "Give a user a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, func(ctx context.Context, a *admin) error {
				if err := a.assign(ctx, args[0], args[1]); err != nil {
					return err
				}
				cmd.Printf("Assigned role %s to %s\n", args[1], args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "revoke USERNAME ROLE",
		Short: "Take a role from a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, func(ctx context.Context, a *admin) error {
				if err := a.revoke(ctx, args[0], args[1]); err != nil {
					return err
				}
				cmd.Printf("Revoked role %s from %s\n", args[1], args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show USERNAME",
		Short: "List a user's roles and effective privileges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, func(ctx context.Context, a *admin) error {
				roles, privileges, err := a.describe(ctx, args[0])
				if err != nil {
					return err
				}
				cmd.Println("Roles:      " + joinOrNone(roles))
				cmd.Println("Privileges: " + joinOrNone(privileges))
				return nil
			})
		},
	})

	return cmd
}

// NewUserCmd creates the user command group.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	for _, active := range []bool{true, false} {
		use, verb := "enable USERNAME", "Enabled"
		short := "Allow a user to log in again"
		if !active {
			use, verb = "disable USERNAME", "Disabled"
			short = "Block a user from logging in"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withAdmin(cmd, func(ctx context.Context, a *admin) error {
					if err := a.setActive(ctx, args[0], active); err != nil {
						return err
					}
					cmd.Printf("%s user %s\n", verb, args[0])
					return nil
				})
			},
		})
	}

	return cmd
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}
