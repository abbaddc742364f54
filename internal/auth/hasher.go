// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// maxMemoryKiB bounds the memory parameter accepted from a stored hash so a
// corrupted row cannot make verification allocate without limit.
const maxMemoryKiB = 4 * 1024 * 1024

// HashParams are the argon2id cost parameters.
type HashParams struct {
	Time        uint32 // iterations
	Memory      uint32 // KiB
	Parallelism uint8
	KeyLength   uint32 // output bytes
	SaltLength  uint32 // bytes
}

// DefaultHashParams returns the parameters used when none are configured.
func DefaultHashParams() HashParams {
	return HashParams{
		Time:        3,
		Memory:      64 * 1024,
		Parallelism: 4,
		KeyLength:   32,
		SaltLength:  16,
	}
}

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces an encoded hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches the encoded hash. It never
	// fails: every problem degrades to false.
	Verify(password, encoded string) bool

	// NeedsRehash reports whether encoded was produced with parameters other
	// than the hasher's current ones.
	NeedsRehash(encoded string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id and the PHC string
// format $argon2id$v=19$m=<KiB>,t=<iterations>,p=<lanes>$<salt>$<hash>.
type Argon2idHasher struct {
	params HashParams
	logger *slog.Logger
	rand   io.Reader
}

// NewArgon2idHasher creates a hasher with params. A nil logger discards logs.
func NewArgon2idHasher(params HashParams, logger *slog.Logger) *Argon2idHasher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Argon2idHasher{
		params: params,
		logger: logger,
		rand:   rand.Reader,
	}
}

// Params returns the configured parameters.
func (h *Argon2idHasher) Params() HashParams {
	return h.params
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (encoded string, err error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	defer func() {
		if r := recover(); r != nil {
			encoded = ""
			err = oops.Code("AUTH_HASHING_FAILED").
				With("operation", "derive key").
				Wrap(fmt.Errorf("%w: %v", ErrHashing, r))
		}
	}()

	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", oops.Code("AUTH_HASHING_FAILED").
			With("operation", "generate salt").
			Wrap(fmt.Errorf("%w: %w", ErrHashing, err))
	}

	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks the password against the encoded hash using the parameters
// recorded in the hash.
func (h *Argon2idHasher) Verify(password, encoded string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("password verification failed unexpectedly",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			ok = false
		}
	}()

	decoded, err := decodeHash(encoded)
	if err != nil {
		h.logger.Error("stored password hash is malformed", "error", err)
		return false
	}

	computed := argon2.IDKey([]byte(password), decoded.salt,
		decoded.params.Time, decoded.params.Memory, decoded.params.Parallelism, decoded.params.KeyLength)

	if subtle.ConstantTimeCompare(computed, decoded.key) != 1 {
		h.logger.Debug("password does not match")
		return false
	}
	return true
}

// NeedsRehash reports whether encoded differs from the configured parameters.
// Malformed hashes always need rehashing.
func (h *Argon2idHasher) NeedsRehash(encoded string) bool {
	decoded, err := decodeHash(encoded)
	if err != nil {
		return true
	}
	got := decoded.params
	want := h.params
	return got.Time != want.Time ||
		got.Memory != want.Memory ||
		got.Parallelism != want.Parallelism ||
		got.KeyLength != want.KeyLength ||
		got.SaltLength != want.SaltLength
}

type decodedHash struct {
	params HashParams
	salt   []byte
	key    []byte
}

func decodeHash(encoded string) (*decodedHash, error) {
	if encoded == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("hash is empty")
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported argon2 version: %d", version)
	}

	var memory, iterations, lanes uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &lanes); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if lanes > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("parallelism %d exceeds uint8 max", lanes)
	}
	if memory > maxMemoryKiB {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("memory parameter %d KiB exceeds limit", memory)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if len(key) == 0 || len(key) > 1<<30 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(key))
	}

	return &decodedHash{
		params: HashParams{
			Time:        iterations,
			Memory:      memory,
			Parallelism: uint8(lanes),
			KeyLength:   uint32(len(key)), //nolint:gosec // bounded above
			SaltLength:  uint32(len(salt)), //nolint:gosec // bounded by input length
		},
		salt: salt,
		key:  key,
	}, nil
}
