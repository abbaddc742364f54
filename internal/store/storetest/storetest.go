// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

// Package storetest starts a migrated PostgreSQL container for integration
// tests of the repositories.
package storetest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/holomush/gambit/internal/store"
)

// Database is a running, fully migrated test database.
type Database struct {
	Pool    *pgxpool.Pool
	ConnStr string

	container *postgres.PostgresContainer
}

// Start launches postgres:16-alpine, applies every migration and opens a pool.
func Start(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gambit_test"),
		postgres.WithUsername("gambit"),
		postgres.WithPassword("gambit"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, oops.With("operation", "start postgres container").Wrap(err)
	}

	db := &Database{container: container}
	fail := func(op string, err error) (*Database, error) {
		db.Close(ctx)
		return nil, oops.With("operation", op).Wrap(err)
	}

	db.ConnStr, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return fail("get connection string", err)
	}

	migrator, err := store.NewMigrator(db.ConnStr)
	if err != nil {
		return fail("create migrator", err)
	}
	upErr := migrator.Up()
	_ = migrator.Close() //nolint:errcheck // migration result takes precedence
	if upErr != nil {
		return fail("run migrations", upErr)
	}

	db.Pool, err = pgxpool.New(ctx, db.ConnStr)
	if err != nil {
		return fail("create pool", err)
	}
	return db, nil
}

// Truncate empties every application table and resets identities.
func (d *Database) Truncate(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, `
		TRUNCATE users_roles_association_table, roles_privileges_association_table,
		         profiles, roles, privileges, countries, ranks, users
		RESTART IDENTITY CASCADE`)
	if err != nil {
		return oops.With("operation", "truncate tables").Wrap(err)
	}
	return nil
}

// Close releases the pool and terminates the container.
func (d *Database) Close(ctx context.Context) {
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.container != nil {
		_ = d.container.Terminate(ctx) //nolint:errcheck // best effort teardown
	}
}
