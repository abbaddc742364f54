// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/holomush/gambit/internal/authz"
	authzpg "github.com/holomush/gambit/internal/authz/postgres"
	"github.com/holomush/gambit/internal/profile"
	profilepg "github.com/holomush/gambit/internal/profile/postgres"
	"github.com/holomush/gambit/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

//go:embed reference.yaml
var defaultReferenceData []byte

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout     time.Duration
	file        string
	skipMigrate bool
}

// referenceData is the seed file layout.
type referenceData struct {
	Countries  []profile.CountryInput `yaml:"countries"`
	Ranks      []profile.RankInput    `yaml:"ranks"`
	Privileges []seedLabel            `yaml:"privileges"`
	Roles      []seedRole             `yaml:"roles"`
}

type seedLabel struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description"`
}

type seedRole struct {
	Name        string   `yaml:"name"`
	Description *string  `yaml:"description"`
	Privileges  []string `yaml:"privileges"`
}

// seedReport counts what a seed run created and what already existed.
type seedReport struct {
	Created int
	Skipped int
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data",
		Long: `Creates countries, ranks, privileges and roles, and grants each role
its privileges. Uses the built-in reference data unless --file is given.
This command is idempotent - existing rows are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	cmd.Flags().StringVar(&cfg.file, "file", "", "YAML reference data file")
	cmd.Flags().BoolVar(&cfg.skipMigrate, "skip-migrate", false, "do not apply pending migrations first")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	data, err := readReferenceData(cfg.file)
	if err != nil {
		return err
	}

	databaseURL, err := getDatabaseURL(cmd)
	if err != nil {
		return err
	}

	if !cfg.skipMigrate {
		cmd.Println("Running migrations...")
		if err := withMigrator(cmd, func(m migrator) error { return m.Up() }); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
		}
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, databaseURL, 0)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	logger := slog.Default()
	s := &seeder{
		profiles: profile.NewService(profilepg.NewRepository(pool), logger, nil),
		roles:    authz.NewService(authzpg.NewRepository(pool), logger),
	}

	report, err := s.apply(ctx, data)
	if err != nil {
		return oops.Code("SEED_FAILED").Wrap(err)
	}

	cmd.Printf("Seeding complete: %d created, %d already present\n", report.Created, report.Skipped)
	return nil
}

// readReferenceData decodes the seed file at path, or the built-in data when
// path is empty. Unknown keys are rejected.
func readReferenceData(path string) (*referenceData, error) {
	raw := defaultReferenceData
	if path != "" {
		var err error
		raw, err = os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, oops.Code("SEED_FILE_INVALID").With("path", path).Wrap(err)
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var data referenceData
	if err := dec.Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return nil, oops.Code("SEED_FILE_INVALID").With("path", path).Wrap(err)
	}
	return &data, nil
}

// seeder applies reference data through the domain services so the same
// validation applies as for API writes.
type seeder struct {
	profiles *profile.Service
	roles    *authz.Service
}

func (s *seeder) apply(ctx context.Context, data *referenceData) (seedReport, error) {
	var report seedReport

	for _, c := range data.Countries {
		_, err := s.profiles.CreateCountry(ctx, c)
		if err := report.count(err, profile.ErrAlreadyExists); err != nil {
			return report, oops.With("country", c.Name).Wrap(err)
		}
	}

	for _, r := range data.Ranks {
		_, err := s.profiles.CreateRank(ctx, r)
		if err := report.count(err, profile.ErrAlreadyExists); err != nil {
			return report, oops.With("rank", r.Name).Wrap(err)
		}
	}

	for _, p := range data.Privileges {
		if _, err := s.ensurePrivilege(ctx, &report, p.Name, p.Description); err != nil {
			return report, err
		}
	}

	for _, r := range data.Roles {
		if err := s.applyRole(ctx, &report, r); err != nil {
			return report, err
		}
	}

	return report, nil
}

func (s *seeder) applyRole(ctx context.Context, report *seedReport, r seedRole) error {
	role, created, err := s.roles.EnsureRole(ctx, r.Name, r.Description)
	if err != nil {
		return oops.With("role", r.Name).Wrap(err)
	}
	report.tally(created)

	repo := s.roles.Repository()
	for _, name := range r.Privileges {
		p, err := s.ensurePrivilege(ctx, report, name, nil)
		if err != nil {
			return err
		}
		_, err = repo.GrantPrivilege(ctx, role.ID, p.ID)
		if err := report.count(err, authz.ErrAssignmentExists); err != nil {
			return oops.With("role", r.Name).With("privilege", name).Wrap(err)
		}
	}
	return nil
}

func (s *seeder) ensurePrivilege(ctx context.Context, report *seedReport, name string, description *string) (*authz.Privilege, error) {
	p, created, err := s.roles.EnsurePrivilege(ctx, name, description)
	if err != nil {
		return nil, oops.With("privilege", name).Wrap(err)
	}
	report.tally(created)
	return p, nil
}

// count records a create result: nil counts as created, an error matching
// exists counts as skipped, anything else is returned.
func (r *seedReport) count(err, exists error) error {
	switch {
	case err == nil:
		r.Created++
	case errors.Is(err, exists):
		r.Skipped++
	default:
		return err
	}
	return nil
}

func (r *seedReport) tally(created bool) {
	if created {
		r.Created++
	} else {
		r.Skipped++
	}
}
