// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

// Token kinds carried in the "type" claim.
const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "Bearer"

// Default token lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// Claims is the caller-supplied part of a token. Each kind has its own struct
// so the set of claims it may carry is fixed at compile time.
type Claims interface {
	Kind() TokenKind
	wire() wireClaims
}

// AccessClaims are carried by access tokens.
type AccessClaims struct {
	Subject  uuid.UUID
	Username string
	Email    string
}

// Kind implements Claims.
func (AccessClaims) Kind() TokenKind { return TokenAccess }

func (c AccessClaims) wire() wireClaims {
	return wireClaims{
		Type:             TokenAccess,
		Username:         c.Username,
		Email:            c.Email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: c.Subject.String()},
	}
}

// RefreshClaims are carried by refresh tokens. They omit the email.
type RefreshClaims struct {
	Subject  uuid.UUID
	Username string
}

// Kind implements Claims.
func (RefreshClaims) Kind() TokenKind { return TokenRefresh }

func (c RefreshClaims) wire() wireClaims {
	return wireClaims{
		Type:             TokenRefresh,
		Username:         c.Username,
		RegisteredClaims: jwt.RegisteredClaims{Subject: c.Subject.String()},
	}
}

// wireClaims is the serialized payload shared by both kinds.
type wireClaims struct {
	Type     TokenKind `json:"type"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Payload is a verified token.
type Payload struct {
	Kind      TokenKind
	ID        string
	Subject   uuid.UUID
	Username  string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expect fails with ErrWrongTokenType unless the payload is of kind.
func (p *Payload) Expect(kind TokenKind) error {
	if p.Kind != kind {
		return oops.Code("TOKEN_WRONG_TYPE").
			With("expected", string(kind)).
			With("actual", string(p.Kind)).
			Wrapf(ErrWrongTokenType, "invalid token type %s expected %s", p.Kind, kind)
	}
	return nil
}

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// CodecConfig configures a TokenCodec.
type CodecConfig struct {
	// Algorithm is RS256, RS384 or RS512.
	Algorithm  string
	Keys       *KeyPair
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenCodec signs and verifies tokens with an RSA key pair. It holds no
// mutable state and is safe for concurrent use.
type TokenCodec struct {
	method     *jwt.SigningMethodRSA
	keys       *KeyPair
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec creates a codec. Zero TTLs fall back to the defaults.
func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	var method *jwt.SigningMethodRSA
	switch cfg.Algorithm {
	case "RS256":
		method = jwt.SigningMethodRS256
	case "RS384":
		method = jwt.SigningMethodRS384
	case "RS512":
		method = jwt.SigningMethodRS512
	default:
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("algorithm", cfg.Algorithm).
			Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.Keys == nil || cfg.Keys.Private == nil || cfg.Keys.Public == nil {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing keys are required")
	}

	c := &TokenCodec{
		method:     method,
		keys:       cfg.Keys,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}
	if c.accessTTL <= 0 {
		c.accessTTL = DefaultAccessTTL
	}
	if c.refreshTTL <= 0 {
		c.refreshTTL = DefaultRefreshTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// TTL returns the default lifetime of kind.
func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	if kind == TokenRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}

// Encode signs claims with a fresh jti, iat and exp. A zero ttl uses the
// default for the claims' kind.
func (c *TokenCodec) Encode(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = c.TTL(claims.Kind())
	}

	now := c.now()
	w := claims.wire()
	w.ID = ulid.Make().String()
	w.IssuedAt = jwt.NewNumericDate(now)
	w.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	signed, err := jwt.NewWithClaims(c.method, w).SignedString(c.keys.Private)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("type", string(claims.Kind())).
			Wrap(err)
	}
	return signed, nil
}

// Decode verifies the signature, structure and expiry of token. It does not
// check the token kind; use DecodeAccess, DecodeRefresh or Payload.Expect.
func (c *TokenCodec) Decode(token string) (*Payload, error) {
	var w wireClaims
	_, err := jwt.ParseWithClaims(token, &w,
		func(*jwt.Token) (any, error) { return c.keys.Public, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", invalidReason(err)).
			Wrap(fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}

	if w.Type != TokenAccess && w.Type != TokenRefresh {
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", "type").
			Wrapf(ErrInvalidToken, "unknown token type %q", w.Type)
	}
	subject, err := uuid.Parse(w.Subject)
	if err != nil {
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", "subject").
			Wrap(fmt.Errorf("%w: %w", ErrInvalidToken, err))
	}
	if w.Username == "" || w.ID == "" {
		return nil, oops.Code("TOKEN_INVALID").
			With("reason", "claims").
			Wrapf(ErrInvalidToken, "token is missing required claims")
	}

	p := &Payload{
		Kind:      w.Type,
		ID:        w.ID,
		Subject:   subject,
		Username:  w.Username,
		Email:     w.Email,
		ExpiresAt: w.ExpiresAt.Time,
	}
	if w.IssuedAt != nil {
		p.IssuedAt = w.IssuedAt.Time
	}
	return p, nil
}

// DecodeAccess decodes token and requires it to be an access token.
func (c *TokenCodec) DecodeAccess(token string) (*Payload, error) {
	return c.decodeKind(token, TokenAccess)
}

// DecodeRefresh decodes token and requires it to be a refresh token.
func (c *TokenCodec) DecodeRefresh(token string) (*Payload, error) {
	return c.decodeKind(token, TokenRefresh)
}

func (c *TokenCodec) decodeKind(token string, kind TokenKind) (*Payload, error) {
	p, err := c.Decode(token)
	if err != nil {
		return nil, err
	}
	if err := p.Expect(kind); err != nil {
		return nil, err
	}
	return p, nil
}

// IssueAccess mints an access token for u.
func (c *TokenCodec) IssueAccess(u *User) (string, error) {
	return c.Encode(AccessClaims{Subject: u.UUID, Username: u.Username, Email: u.Email}, 0)
}

// IssueRefresh mints a refresh token for u.
func (c *TokenCodec) IssueRefresh(u *User) (string, error) {
	return c.Encode(RefreshClaims{Subject: u.UUID, Username: u.Username}, 0)
}

// IssuePair mints an access and a refresh token for u.
func (c *TokenCodec) IssuePair(u *User) (*TokenPair, error) {
	access, err := c.IssueAccess(u)
	if err != nil {
		return nil, err
	}
	refresh, err := c.IssueRefresh(u)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: TokenTypeBearer}, nil
}

func invalidReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "claims"
	default:
		return "invalid"
	}
}
