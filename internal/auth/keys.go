// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// MinKeyBits is the smallest RSA modulus accepted for token signing.
const MinKeyBits = 2048

// KeyPair holds the RSA keys used to sign and verify tokens.
type KeyPair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// LoadKeyPair reads a PEM private key (PKCS#1 or PKCS#8) and a PEM public key
// (PKIX or PKCS#1) and checks that they belong together.
func LoadKeyPair(privatePath, publicPath string) (*KeyPair, error) {
	privPEM, err := os.ReadFile(privatePath) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, oops.Code("KEY_LOAD_FAILED").With("path", privatePath).Wrap(err)
	}
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, oops.Code("KEY_LOAD_FAILED").With("path", privatePath).Wrap(err)
	}

	pubPEM, err := os.ReadFile(publicPath) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, oops.Code("KEY_LOAD_FAILED").With("path", publicPath).Wrap(err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, oops.Code("KEY_LOAD_FAILED").With("path", publicPath).Wrap(err)
	}

	if !priv.PublicKey.Equal(pub) {
		return nil, oops.Code("KEY_MISMATCH").
			With("private_key_path", privatePath).
			With("public_key_path", publicPath).
			Errorf("public key does not match private key")
	}
	if priv.N.BitLen() < MinKeyBits {
		return nil, oops.Code("KEY_TOO_SMALL").
			With("bits", priv.N.BitLen()).
			Errorf("rsa key must be at least %d bits", MinKeyBits)
	}

	return &KeyPair{Private: priv, Public: pub}, nil
}

// GenerateKeyPair creates a fresh RSA key pair.
func GenerateKeyPair(bits int) (*KeyPair, error) {
	if bits < MinKeyBits {
		return nil, oops.Code("KEY_TOO_SMALL").
			With("bits", bits).
			Errorf("rsa key must be at least %d bits", MinKeyBits)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, oops.Code("KEY_GENERATE_FAILED").With("bits", bits).Wrap(err)
	}
	return &KeyPair{Private: priv, Public: &priv.PublicKey}, nil
}

// Write stores the pair as PKCS#8 and PKIX PEM files. Existing files are
// never overwritten. The private key is written with mode 0600 and removed
// again when the public key cannot be written.
func (k *KeyPair) Write(privatePath, publicPath string) error {
	privDER, err := x509.MarshalPKCS8PrivateKey(k.Private)
	if err != nil {
		return oops.Code("KEY_WRITE_FAILED").With("operation", "encode private key").Wrap(err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(k.Public)
	if err != nil {
		return oops.Code("KEY_WRITE_FAILED").With("operation", "encode public key").Wrap(err)
	}

	if err := writePEM(privatePath, "PRIVATE KEY", privDER, 0o600); err != nil {
		return err
	}
	if err := writePEM(publicPath, "PUBLIC KEY", pubDER, 0o644); err != nil {
		if rmErr := os.Remove(privatePath); rmErr != nil {
			return oops.With("cleanup_path", privatePath, "cleanup_error", rmErr.Error()).Wrap(err)
		}
		return err
	}
	return nil
}

func writePEM(path, blockType string, der []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return oops.Code("KEY_WRITE_FAILED").With("path", path).Wrap(err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode) //nolint:gosec // path comes from operator config
	if err != nil {
		return oops.Code("KEY_WRITE_FAILED").With("path", path).Wrap(err)
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		_ = f.Close() //nolint:errcheck // encode error takes precedence
		return oops.Code("KEY_WRITE_FAILED").With("path", path).Wrap(err)
	}
	if err := f.Close(); err != nil {
		return oops.Code("KEY_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}
