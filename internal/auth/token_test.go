// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gambit/internal/auth"
	"github.com/holomush/gambit/internal/auth/authtest"
	"github.com/holomush/gambit/pkg/errutil"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newClockCodec(t *testing.T) (*auth.TokenCodec, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)}
	return authtest.Codec(t, c.Now), c
}

func decodeSegment(t *testing.T, token string) map[string]any {
	t.Helper()
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var claims map[string]any
	require.NoError(t, json.Unmarshal(raw, &claims))
	return claims
}

func TestTokenCodec_AccessRoundTrip(t *testing.T) {
	codec, clk := newClockCodec(t)
	subject := uuid.New()

	token, err := codec.Encode(auth.AccessClaims{Subject: subject, Username: "magnus", Email: "magnus@example.com"}, time.Minute)
	require.NoError(t, err)

	clk.t = clk.t.Add(59 * time.Second)
	p, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenAccess, p.Kind)
	assert.Equal(t, subject, p.Subject)
	assert.Equal(t, "magnus", p.Username)
	assert.Equal(t, "magnus@example.com", p.Email)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, time.Date(2024, time.June, 15, 12, 1, 0, 0, time.UTC), p.ExpiresAt.UTC())
}

func TestTokenCodec_ExpiredTokenIsInvalid(t *testing.T) {
	codec, clk := newClockCodec(t)
	token, err := codec.Encode(auth.AccessClaims{Subject: uuid.New(), Username: "magnus", Email: "m@example.com"}, time.Minute)
	require.NoError(t, err)

	clk.t = clk.t.Add(2 * time.Minute)
	_, err = codec.Decode(token)
	errutil.AssertErrorKind(t, err, "TOKEN_INVALID", auth.ErrInvalidToken)
	errutil.AssertErrorContext(t, err, "reason", "expired")
}

func TestTokenCodec_WireClaims(t *testing.T) {
	codec, _ := newClockCodec(t)
	u := &auth.User{UUID: uuid.New(), Username: "magnus", Email: "magnus@example.com"}

	pair, err := codec.IssuePair(u)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	access := decodeSegment(t, pair.AccessToken)
	assert.Equal(t, "access", access["type"])
	assert.Equal(t, u.UUID.String(), access["sub"])
	assert.Equal(t, "magnus", access["username"])
	assert.Equal(t, "magnus@example.com", access["email"])
	for _, k := range []string{"jti", "iat", "exp"} {
		assert.Contains(t, access, k)
	}

	refresh := decodeSegment(t, pair.RefreshToken)
	assert.Equal(t, "refresh", refresh["type"])
	assert.Equal(t, u.UUID.String(), refresh["sub"])
	assert.Equal(t, "magnus", refresh["username"])
	assert.NotContains(t, refresh, "email")

	assert.NotEqual(t, access["jti"], refresh["jti"])
}

func TestTokenCodec_DefaultTTLs(t *testing.T) {
	codec, clk := newClockCodec(t)
	u := &auth.User{UUID: uuid.New(), Username: "magnus", Email: "magnus@example.com"}

	access, err := codec.IssueAccess(u)
	require.NoError(t, err)
	refresh, err := codec.IssueRefresh(u)
	require.NoError(t, err)

	ap, err := codec.Decode(access)
	require.NoError(t, err)
	rp, err := codec.Decode(refresh)
	require.NoError(t, err)

	assert.Equal(t, clk.t.Add(auth.DefaultAccessTTL), ap.ExpiresAt.UTC())
	assert.Equal(t, clk.t.Add(auth.DefaultRefreshTTL), rp.ExpiresAt.UTC())
}

func TestTokenCodec_ConfiguredTTLs(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	codec, err := auth.NewTokenCodec(auth.CodecConfig{
		Algorithm:  "RS512",
		Keys:       authtest.Keys(t),
		AccessTTL:  5 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, codec.TTL(auth.TokenAccess))
	assert.Equal(t, 7*24*time.Hour, codec.TTL(auth.TokenRefresh))
}

func TestTokenCodec_WrongTypeIsDistinguishable(t *testing.T) {
	codec, _ := newClockCodec(t)
	u := &auth.User{UUID: uuid.New(), Username: "magnus", Email: "magnus@example.com"}
	pair, err := codec.IssuePair(u)
	require.NoError(t, err)

	_, err = codec.DecodeAccess(pair.RefreshToken)
	errutil.AssertErrorKind(t, err, "TOKEN_WRONG_TYPE", auth.ErrWrongTokenType)
	assert.NotErrorIs(t, err, auth.ErrInvalidToken)
	assert.Contains(t, err.Error(), "invalid token type refresh expected access")

	_, err = codec.DecodeRefresh(pair.AccessToken)
	errutil.AssertErrorKind(t, err, "TOKEN_WRONG_TYPE", auth.ErrWrongTokenType)

	p, err := codec.DecodeAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenAccess, p.Kind)
	p, err = codec.DecodeRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenRefresh, p.Kind)
}

func TestTokenCodec_RejectsTampering(t *testing.T) {
	codec, _ := newClockCodec(t)
	token, err := codec.Encode(auth.AccessClaims{Subject: uuid.New(), Username: "magnus", Email: "m@example.com"}, 0)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forgedPayload := base64.RawURLEncoding.EncodeToString([]byte(
		`{"type":"access","username":"admin","sub":"` + uuid.NewString() + `","jti":"x","iat":1718452800,"exp":4102444800}`))

	tests := []struct {
		name   string
		token  string
		reason string
	}{
		{"garbage", "not-a-token", "malformed"},
		{"empty", "", "malformed"},
		{"swapped payload", parts[0] + "." + forgedPayload + "." + parts[2], "signature"},
		{"truncated signature", parts[0] + "." + parts[1] + "." + parts[2][:10], "signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.token)
			errutil.AssertErrorKind(t, err, "TOKEN_INVALID", auth.ErrInvalidToken)
			errutil.AssertErrorContext(t, err, "reason", tt.reason)
		})
	}
}

func TestTokenCodec_RejectsOtherAlgorithms(t *testing.T) {
	codec, clk := newClockCodec(t)

	hmac := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"type": "access", "username": "magnus", "sub": uuid.NewString(), "jti": "x",
		"iat": clk.t.Unix(), "exp": clk.t.Add(time.Hour).Unix(),
	})
	signed, err := hmac.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = codec.Decode(signed)
	errutil.AssertErrorKind(t, err, "TOKEN_INVALID", auth.ErrInvalidToken)

	rs512, err := auth.NewTokenCodec(auth.CodecConfig{Algorithm: "RS512", Keys: authtest.Keys(t), Now: clk.Now})
	require.NoError(t, err)
	other, err := rs512.Encode(auth.AccessClaims{Subject: uuid.New(), Username: "magnus", Email: "m@example.com"}, 0)
	require.NoError(t, err)
	_, err = codec.Decode(other)
	errutil.AssertErrorKind(t, err, "TOKEN_INVALID", auth.ErrInvalidToken)
}

func TestTokenCodec_RejectsForeignKey(t *testing.T) {
	other, err := auth.GenerateKeyPair(auth.MinKeyBits)
	require.NoError(t, err)
	foreign, err := auth.NewTokenCodec(auth.CodecConfig{Algorithm: "RS256", Keys: other})
	require.NoError(t, err)

	token, err := foreign.Encode(auth.AccessClaims{Subject: uuid.New(), Username: "magnus", Email: "m@example.com"}, 0)
	require.NoError(t, err)

	_, err = authtest.Codec(t, nil).Decode(token)
	errutil.AssertErrorKind(t, err, "TOKEN_INVALID", auth.ErrInvalidToken)
	errutil.AssertErrorContext(t, err, "reason", "signature")
}

func TestTokenCodec_RejectsBadClaims(t *testing.T) {
	keys := authtest.Keys(t)
	now := time.Now()
	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(keys.Private)
		require.NoError(t, err)
		return s
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"type": "access", "username": "magnus", "sub": uuid.NewString(), "jti": "id",
			"iat": now.Unix(), "exp": now.Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		reason string
	}{
		{"unknown type", func(c jwt.MapClaims) { c["type"] = "session" }, "type"},
		{"non uuid subject", func(c jwt.MapClaims) { c["sub"] = "42" }, "subject"},
		{"missing username", func(c jwt.MapClaims) { delete(c, "username") }, "claims"},
		{"missing jti", func(c jwt.MapClaims) { delete(c, "jti") }, "claims"},
		{"missing exp", func(c jwt.MapClaims) { delete(c, "exp") }, "claims"},
	}
	codec := authtest.Codec(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := base()
			tt.mutate(claims)
			_, err := codec.Decode(sign(claims))
			errutil.AssertErrorKind(t, err, "TOKEN_INVALID", auth.ErrInvalidToken)
			errutil.AssertErrorContext(t, err, "reason", tt.reason)
		})
	}
}

func TestNewTokenCodec_Validation(t *testing.T) {
	_, err := auth.NewTokenCodec(auth.CodecConfig{Algorithm: "HS256", Keys: authtest.Keys(t)})
	errutil.AssertErrorCode(t, err, "TOKEN_CONFIG_INVALID")

	_, err = auth.NewTokenCodec(auth.CodecConfig{Algorithm: "RS256"})
	errutil.AssertErrorCode(t, err, "TOKEN_CONFIG_INVALID")
}
