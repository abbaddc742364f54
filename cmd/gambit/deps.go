// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/holomush/gambit/internal/auth"
	"github.com/holomush/gambit/internal/observability"
	"github.com/holomush/gambit/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, url string, retries uint64) (Pool, error)

	// KeyLoader reads the JWT signing key pair.
	// Default: auth.LoadKeyPair
	KeyLoader func(privatePath, publicPath string) (*auth.KeyPair, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer
}

// Pool is the part of *pgxpool.Pool the serve command uses.
type Pool interface {
	store.DB
	Ping(ctx context.Context) error
	Close()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *ServeDeps) withDefaults() {
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, url string, retries uint64) (Pool, error) {
			return store.Connect(ctx, url, retries)
		}
	}
	if d.KeyLoader == nil {
		d.KeyLoader = auth.LoadKeyPair
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
}
