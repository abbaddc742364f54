// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/holomush/gambit/internal/auth"
	authpg "github.com/holomush/gambit/internal/auth/postgres"
	"github.com/holomush/gambit/internal/authz"
	authzpg "github.com/holomush/gambit/internal/authz/postgres"
	"github.com/holomush/gambit/internal/config"
	"github.com/holomush/gambit/internal/observability"
	"github.com/holomush/gambit/internal/profile"
	profilepg "github.com/holomush/gambit/internal/profile/postgres"
	"github.com/holomush/gambit/internal/store"
	"github.com/holomush/gambit/internal/web"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmd(nil)
}

func newServeCmd(deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the public JSON API together with the metrics and health probe
listener. Runs until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps == nil {
				deps = &ServeDeps{}
			}
			return runServe(cmd, args, deps)
		},
	}

	cmd.Flags().String("http-addr", "", "API listen address (overrides config)")
	cmd.Flags().String("metrics-addr", "", "metrics listen address, empty in config disables it")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string, deps *ServeDeps) error {
	deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := setupLogging(cfg.Log)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "set up logging").Wrap(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting api",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"jwt_algorithm", cfg.JWT.Algorithm,
	)

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, cfg.Database.ConnectRetries)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	keys, err := deps.KeyLoader(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		obsServer ObservabilityServer
		recorder  *observability.Metrics
	)
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, pool.Ping, logger)
		recorder = obsServer.Metrics()
	}

	api, err := newAPI(cfg, pool, keys, recorder, logger)
	if err != nil {
		return err
	}

	if obsServer != nil {
		obsErrCh, startErr := obsServer.Start()
		if startErr != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	apiErrCh, err := api.Start()
	if err != nil {
		stopServer(logger, "observability", obsServer)
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	cmd.Println("API listening on " + api.Addr())
	logger.Info("api ready", "addr", api.Addr())

	<-ctx.Done()
	logger.Info("shutting down...")

	stopServer(logger, "api", api)
	stopServer(logger, "observability", obsServer)

	logger.Info("shutdown complete")
	return nil
}

// newAPI wires the repositories and services into the API server. A nil
// recorder disables metrics.
func newAPI(cfg *config.Config, db store.DB, keys *auth.KeyPair, recorder *observability.Metrics, logger *slog.Logger) (*web.Server, error) {
	codec, err := auth.NewTokenCodec(auth.CodecConfig{
		Algorithm:  cfg.JWT.Algorithm,
		Keys:       keys,
		AccessTTL:  time.Duration(cfg.JWT.AccessTokenExpireMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshTokenExpireDays) * 24 * time.Hour,
	})
	if err != nil {
		return nil, err
	}

	var (
		authRecorder auth.Recorder = auth.NopRecorder{}
		httpRecorder web.RequestRecorder
	)
	if recorder != nil {
		authRecorder = recorder
		httpRecorder = recorder
	}

	hasher := auth.NewArgon2idHasher(hashParams(cfg.Hash), logger)
	users := authpg.NewUserRepository(db)

	authn, err := auth.NewAuthenticator(auth.AuthenticatorConfig{
		Users:   users,
		Hasher:  hasher,
		Tokens:  codec,
		Metrics: authRecorder,
		Logger:  logger,
		Tracer:  otel.Tracer("github.com/holomush/gambit/internal/auth"),
	})
	if err != nil {
		return nil, err
	}

	roles := authz.NewService(authzpg.NewRepository(db), logger)

	return web.New(web.Deps{
		Config:        cfg.HTTP,
		Logger:        logger,
		Authenticator: authn,
		Directory:     auth.NewDirectory(users, hasher, authRecorder, logger),
		Profiles:      profile.NewService(profilepg.NewRepository(db), logger, nil),
		Roles:         roles,
		Checker:       authz.NewChecker(roles, logger),
		Metrics:       httpRecorder,
	})
}

func hashParams(h config.HashConfig) auth.HashParams {
	return auth.HashParams{
		Time:        h.TimeCost,
		Memory:      h.MemoryCost,
		Parallelism: h.Parallelism,
		KeyLength:   h.HashLength,
		SaltLength:  h.SaltLength,
	}
}

type stopper interface {
	Stop(ctx context.Context) error
}

func stopServer(logger *slog.Logger, name string, s stopper) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when the server reports an error. It exits
// when an error arrives, the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
