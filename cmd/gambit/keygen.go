// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/holomush/gambit/internal/auth"
)

const defaultKeyBits = 3072

type keygenConfig struct {
	bits        int
	privatePath string
	publicPath  string
}

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	cfg := &keygenConfig{}

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the JWT signing key pair",
		Long: `Generates an RSA key pair for signing tokens and writes it as PEM files
to the configured jwt.private_key_path and jwt.public_key_path. Existing
files are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(cmd, args, cfg)
		},
	}

	cmd.Flags().IntVar(&cfg.bits, "bits", defaultKeyBits, "RSA key size in bits")
	cmd.Flags().StringVar(&cfg.privatePath, "private", "", "private key path (overrides config)")
	cmd.Flags().StringVar(&cfg.publicPath, "public", "", "public key path (overrides config)")

	return cmd
}

func runKeygen(cmd *cobra.Command, _ []string, cfg *keygenConfig) error {
	conf, err := loadFile(cmd)
	if err != nil {
		return err
	}
	jwtCfg := conf.JWT
	if cfg.privatePath != "" {
		jwtCfg.PrivateKeyPath = cfg.privatePath
	}
	if cfg.publicPath != "" {
		jwtCfg.PublicKeyPath = cfg.publicPath
	}
	if err := jwtCfg.Validate(); err != nil {
		return err
	}

	cmd.Printf("Generating %d-bit RSA key pair...\n", cfg.bits)
	keys, err := auth.GenerateKeyPair(cfg.bits)
	if err != nil {
		return err
	}
	if err := keys.Write(jwtCfg.PrivateKeyPath, jwtCfg.PublicKeyPath); err != nil {
		return err
	}

	cmd.Println("Private key: " + jwtCfg.PrivateKeyPath)
	cmd.Println("Public key:  " + jwtCfg.PublicKeyPath)
	return nil
}
