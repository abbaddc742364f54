// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/gambit/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and check configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the config file JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			cmd.Println(string(schema))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [FILE]",
		Short: "Check a config file without starting the service",
		Long: `Checks FILE (or the --config file) against the schema, then loads it with
the environment and flags applied and checks the resulting values.
Exits with code 0 on success, non-zero on failure.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigValidate,
	})

	return cmd
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		path = args[0]
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := config.ValidateYAML(data); err != nil {
			return oops.With("path", path).Wrap(err)
		}
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if path == "" {
		cmd.Println("Configuration is valid (defaults and environment only)")
	} else {
		cmd.Println("Configuration is valid: " + path)
	}
	return nil
}
