// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/holomush/gambit/internal/validate"
)

// LoginInput is a login attempt. At least one of Username and Email is set;
// Username wins when both are.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// AuthenticatorConfig holds the dependencies of an Authenticator.
type AuthenticatorConfig struct {
	Users   UserRepository
	Hasher  PasswordHasher
	Tokens  *TokenCodec
	Metrics Recorder
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Now     func() time.Time
}

// Authenticator checks credentials and turns tokens back into users.
type Authenticator struct {
	users   UserRepository
	hasher  PasswordHasher
	tokens  *TokenCodec
	metrics Recorder
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	// dummyHash is verified when the user does not exist so both failure
	// paths cost one hash verification.
	dummyHash string
}

// NewAuthenticator creates an Authenticator. Users, Hasher and Tokens are
// required; the remaining fields have no-op defaults.
func NewAuthenticator(cfg AuthenticatorConfig) (*Authenticator, error) {
	if cfg.Users == nil || cfg.Hasher == nil || cfg.Tokens == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("users, hasher and tokens are required")
	}

	a := &Authenticator{
		users:   cfg.Users,
		hasher:  cfg.Hasher,
		tokens:  cfg.Tokens,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		tracer:  cfg.Tracer,
		now:     cfg.Now,
	}
	if a.metrics == nil {
		a.metrics = NopRecorder{}
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	if a.tracer == nil {
		a.tracer = noop.NewTracerProvider().Tracer("")
	}
	if a.now == nil {
		a.now = time.Now
	}

	dummy, err := a.hasher.Hash("dummy-" + ulid.Make().String())
	if err != nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").With("operation", "prepare dummy hash").Wrap(err)
	}
	a.dummyHash = dummy

	return a, nil
}

// Authenticate verifies username and password.
//
// An unknown username and a wrong password both fail with
// ErrInvalidCredentials. A correct password on a disabled account fails with
// ErrAccountInactive.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*User, error) {
	ctx, span := a.tracer.Start(ctx, "Authenticator.Authenticate",
		trace.WithAttributes(attribute.String("auth.identity", "username")))
	defer span.End()

	u, err := a.authenticate(ctx, password, func(ctx context.Context) (*User, error) {
		return a.users.GetByUsername(ctx, username)
	})
	recordSpanError(span, err)
	return u, err
}

// AuthenticateLogin is Authenticate for a login form that may carry an email
// instead of a username.
func (a *Authenticator) AuthenticateLogin(ctx context.Context, in LoginInput) (*User, error) {
	if err := validate.LoginIdentity(in.Username, in.Email); err != nil {
		return nil, err
	}
	if in.Username != "" {
		return a.Authenticate(ctx, in.Username, in.Password)
	}

	ctx, span := a.tracer.Start(ctx, "Authenticator.Authenticate",
		trace.WithAttributes(attribute.String("auth.identity", "email")))
	defer span.End()

	u, err := a.authenticate(ctx, in.Password, func(ctx context.Context) (*User, error) {
		return a.users.GetByEmail(ctx, in.Email)
	})
	recordSpanError(span, err)
	return u, err
}

func (a *Authenticator) authenticate(
	ctx context.Context,
	password string,
	lookup func(context.Context) (*User, error),
) (*User, error) {
	u, err := lookup(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		a.metrics.RecordLogin(OutcomeError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "look up user").Wrap(err)
	}

	target := a.dummyHash
	if u != nil {
		target = u.PasswordHash
	}
	verified := a.hasher.Verify(password, target)

	if u == nil || !verified {
		a.metrics.RecordLogin(OutcomeInvalid)
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	if !u.IsActive {
		a.metrics.RecordLogin(OutcomeInactive)
		return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("user_uuid", u.UUID.String()).
			Wrap(ErrAccountInactive)
	}

	a.afterLogin(ctx, u, password)
	a.metrics.RecordLogin(OutcomeSuccess)
	return u, nil
}

// afterLogin records the login time and upgrades the stored hash. Failures
// are logged and do not fail the login.
func (a *Authenticator) afterLogin(ctx context.Context, u *User, password string) {
	now := a.now()
	if err := a.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		a.logger.WarnContext(ctx, "failed to record last login",
			"user_uuid", u.UUID.String(),
			"error", err)
	} else {
		u.LastLogin = now
	}

	if !a.hasher.NeedsRehash(u.PasswordHash) {
		return
	}
	hash, err := a.hasher.Hash(password)
	if err != nil {
		a.logger.WarnContext(ctx, "failed to rehash password",
			"user_uuid", u.UUID.String(),
			"error", err)
		return
	}
	if err := a.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		a.logger.WarnContext(ctx, "failed to store rehashed password",
			"user_uuid", u.UUID.String(),
			"error", err)
		return
	}
	u.PasswordHash = hash
}

// Login authenticates in and issues an access and refresh token pair.
func (a *Authenticator) Login(ctx context.Context, in LoginInput) (*User, *TokenPair, error) {
	u, err := a.AuthenticateLogin(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	pair, err := a.tokens.IssuePair(u)
	if err != nil {
		return nil, nil, oops.With("operation", "issue token pair").Wrap(err)
	}
	a.metrics.RecordTokenIssued(TokenAccess)
	a.metrics.RecordTokenIssued(TokenRefresh)

	a.logger.InfoContext(ctx, "user logged in", "user_uuid", u.UUID.String())
	return u, pair, nil
}

// Refresh exchanges a refresh token for a new access token.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	u, err := a.ResolveRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	access, err := a.tokens.IssueAccess(u)
	if err != nil {
		return nil, oops.With("operation", "issue access token").Wrap(err)
	}
	a.metrics.RecordTokenIssued(TokenAccess)
	return &TokenPair{AccessToken: access, TokenType: TokenTypeBearer}, nil
}

// ResolveAccess returns the active user named by an access token.
func (a *Authenticator) ResolveAccess(ctx context.Context, token string) (*User, error) {
	return a.resolve(ctx, token, TokenAccess)
}

// ResolveRefresh returns the active user named by a refresh token.
func (a *Authenticator) ResolveRefresh(ctx context.Context, token string) (*User, error) {
	return a.resolve(ctx, token, TokenRefresh)
}

func (a *Authenticator) resolve(ctx context.Context, token string, kind TokenKind) (*User, error) {
	ctx, span := a.tracer.Start(ctx, "Authenticator.Resolve",
		trace.WithAttributes(attribute.String("token.type", string(kind))))
	defer span.End()

	u, err := a.resolveUser(ctx, token, kind)
	recordSpanError(span, err)
	return u, err
}

func (a *Authenticator) resolveUser(ctx context.Context, token string, kind TokenKind) (*User, error) {
	payload, err := a.tokens.Decode(token)
	if err != nil {
		return nil, err
	}
	if err := payload.Expect(kind); err != nil {
		return nil, err
	}

	u, err := a.users.GetByUsername(ctx, payload.Username)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", "unknown user").
			Wrap(ErrInvalidToken)
	}
	if err != nil {
		return nil, oops.Code("AUTH_RESOLVE_FAILED").With("operation", "look up user").Wrap(err)
	}
	if u.UUID != payload.Subject {
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", "subject mismatch").
			Wrap(ErrInvalidToken)
	}
	if !u.IsActive {
		return nil, oops.Code("AUTH_ACCOUNT_INACTIVE").
			With("user_uuid", u.UUID.String()).
			Wrap(ErrAccountInactive)
	}
	return u, nil
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
