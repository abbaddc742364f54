// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/gambit/internal/config"
	"github.com/holomush/gambit/internal/logging"
	"github.com/holomush/gambit/internal/xdg"
)

// serviceName tags every log record.
const serviceName = "gambit"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the gambit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gambit",
		Short: "gambit - user accounts, tokens and privileges",
		Long: `gambit is a user-account service: registration, argon2id password
storage, RSA-signed JWT access and refresh tokens, user profiles and a
role/privilege authorization graph behind a JSON HTTP API.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL (overrides config and DATABASE_URL)")
	cmd.PersistentFlags().String("log-format", "", "log format: json or text")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())
	cmd.AddCommand(NewKeygenCmd())
	cmd.AddCommand(NewRoleCmd())
	cmd.AddCommand(NewUserCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// configPath returns the --config value, or the per-user config file when
// the flag is unset and that file exists.
func configPath() (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	return xdg.ConfigFile()
}

// loadFile reads the layered configuration without validating it.
func loadFile(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path, cmd.Flags())
}

// loadConfig reads the layered configuration for cmd and validates it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadFile(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default.
func setupLogging(cfg config.LogConfig) (*slog.Logger, error) {
	return logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Format,
		Level:   cfg.Level,
	})
}
