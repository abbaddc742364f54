// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the account service over HTTP.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/auth"
	"github.com/holomush/gambit/internal/authz"
	"github.com/holomush/gambit/internal/config"
	"github.com/holomush/gambit/internal/profile"
)

// PrivilegeAssignRoles guards the role administration routes.
const PrivilegeAssignRoles = "roles.assign"

// RequestRecorder counts served requests.
type RequestRecorder interface {
	RecordRequest(method, route string, status int)
}

// Deps are the services behind the API.
type Deps struct {
	Config        config.HTTPConfig
	Logger        *slog.Logger
	Authenticator *auth.Authenticator
	Directory     *auth.Directory
	Profiles      *profile.Service
	Roles         *authz.Service
	Checker       *authz.Checker
	// Metrics is optional.
	Metrics RequestRecorder
}

// Server is the public API server.
type Server struct {
	cfg      config.HTTPConfig
	logger   *slog.Logger
	authn    *auth.Authenticator
	users    *auth.Directory
	profiles *profile.Service
	roles    *authz.Service
	checker  *authz.Checker
	metrics  RequestRecorder

	handler    http.Handler
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// New validates deps and builds the router.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Authenticator == nil:
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("authenticator is required")
	case deps.Directory == nil:
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("user directory is required")
	case deps.Profiles == nil:
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("profile service is required")
	case deps.Roles == nil || deps.Checker == nil:
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("authorization services are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:      deps.Config,
		logger:   logger,
		authn:    deps.Authenticator,
		users:    deps.Directory,
		profiles: deps.Profiles,
		roles:    deps.Roles,
		checker:  deps.Checker,
		metrics:  deps.Metrics,
	}
	s.handler = s.buildRouter()
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
// The returned channel receives a serve error, if any, and is closed when the
// server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_ALREADY_RUNNING").Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.Code("WEB_SHUTDOWN_FAILED").Wrap(err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
