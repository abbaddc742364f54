// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the service configuration.
//
// The configuration is read once at process start and passed explicitly to
// every component that needs it. Sources are layered, later ones winning:
// built-in defaults, the YAML config file, the DATABASE_URL environment
// variable, and command-line flags.
package config

import (
	"os"
	"slices"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/gambit/internal/logging"
)

// DatabaseURLEnv names the environment variable that overrides database.url.
const DatabaseURLEnv = "DATABASE_URL"

// Supported JWT signing algorithms.
var supportedAlgorithms = []string{"RS256", "RS384", "RS512"}

// Config is the complete service configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database" json:"database,omitempty" jsonschema:"description=PostgreSQL connection settings"`
	Hash     HashConfig     `koanf:"hash" json:"hash,omitempty" jsonschema:"description=argon2id password hashing parameters"`
	JWT      JWTConfig      `koanf:"jwt" json:"jwt,omitempty" jsonschema:"description=JWT signing and lifetime settings"`
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty" jsonschema:"description=public API listener"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" jsonschema:"description=metrics and health probe listener"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL            string `koanf:"url" json:"url,omitempty" jsonschema:"description=postgres:// connection URL"`
	ConnectRetries uint64 `koanf:"connect_retries" json:"connect_retries,omitempty" jsonschema:"minimum=0"`
}

// HashConfig holds the argon2id parameters.
type HashConfig struct {
	TimeCost    uint32 `koanf:"time_cost" json:"time_cost,omitempty" jsonschema:"minimum=1"`
	MemoryCost  uint32 `koanf:"memory_cost" json:"memory_cost,omitempty" jsonschema:"minimum=8,description=memory in KiB"`
	Parallelism uint8  `koanf:"parallelism" json:"parallelism,omitempty" jsonschema:"minimum=1,maximum=255"`
	HashLength  uint32 `koanf:"hash_length" json:"hash_length,omitempty" jsonschema:"minimum=16"`
	SaltLength  uint32 `koanf:"salt_length" json:"salt_length,omitempty" jsonschema:"minimum=8"`
	Encoding    string `koanf:"encoding" json:"encoding,omitempty" jsonschema:"enum=utf-8"`
}

// JWTConfig holds the token signing settings.
type JWTConfig struct {
	Algorithm                string `koanf:"algorithm" json:"algorithm,omitempty" jsonschema:"enum=RS256,enum=RS384,enum=RS512"`
	PrivateKeyPath           string `koanf:"private_key_path" json:"private_key_path,omitempty"`
	PublicKeyPath            string `koanf:"public_key_path" json:"public_key_path,omitempty"`
	AccessTokenExpireMinutes int    `koanf:"access_token_expire_minutes" json:"access_token_expire_minutes,omitempty" jsonschema:"minimum=1"`
	RefreshTokenExpireDays   int    `koanf:"refresh_token_expire_days" json:"refresh_token_expire_days,omitempty" jsonschema:"minimum=1"`
}

// HTTPConfig holds the API listener settings. CORSAllowedOrigins lists the
// browser origins allowed cross-origin access; when empty, no CORS headers are
// sent and browsers only permit same-origin calls.
type HTTPConfig struct {
	Addr               string   `koanf:"addr" json:"addr,omitempty"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" json:"cors_allowed_origins,omitempty"`
}

// MetricsConfig holds the observability listener settings. An empty address
// disables the listener.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{ConnectRetries: 5},
		Hash: HashConfig{
			TimeCost:    3,
			MemoryCost:  64 * 1024,
			Parallelism: 4,
			HashLength:  32,
			SaltLength:  16,
			Encoding:    "utf-8",
		},
		JWT: JWTConfig{
			Algorithm:                "RS256",
			PrivateKeyPath:           "certs/jwt-private.pem",
			PublicKeyPath:            "certs/jwt-public.pem",
			AccessTokenExpireMinutes: 15,
			RefreshTokenExpireDays:   30,
		},
		HTTP:    HTTPConfig{Addr: "127.0.0.1:8000"},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty), the DATABASE_URL environment variable and the changed
// flags in fs (may be nil). Flag names are mapped to keys through FlagKeys.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "read config file").
				With("path", path).
				Wrap(err)
		}
	}

	if url := os.Getenv(DatabaseURLEnv); url != "" {
		if err := k.Set("database.url", url); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "apply environment").Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "apply flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	return &cfg, nil
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"database-url": "database.url",
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return invalid("database.url", "database url is required (config file or %s)", DatabaseURLEnv)
	}
	if err := c.Hash.Validate(); err != nil {
		return err
	}
	if err := c.JWT.Validate(); err != nil {
		return err
	}
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "http address is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "%v", err)
	}
	return nil
}

// Validate checks the hashing parameters.
func (h HashConfig) Validate() error {
	switch {
	case h.TimeCost == 0:
		return invalid("hash.time_cost", "time cost must be at least 1")
	case h.MemoryCost < 8*uint32(max(h.Parallelism, 1)):
		return invalid("hash.memory_cost", "memory cost must be at least 8 KiB per lane")
	case h.Parallelism == 0:
		return invalid("hash.parallelism", "parallelism must be at least 1")
	case h.HashLength < 16:
		return invalid("hash.hash_length", "hash length must be at least 16 bytes")
	case h.SaltLength < 8:
		return invalid("hash.salt_length", "salt length must be at least 8 bytes")
	case h.Encoding != "utf-8":
		return invalid("hash.encoding", "unsupported password encoding %q", h.Encoding)
	}
	return nil
}

// Validate checks the JWT settings.
func (j JWTConfig) Validate() error {
	switch {
	case !slices.Contains(supportedAlgorithms, j.Algorithm):
		return invalid("jwt.algorithm", "unsupported signing algorithm %q", j.Algorithm)
	case j.PrivateKeyPath == "" || j.PublicKeyPath == "":
		return invalid("jwt.private_key_path", "both key paths are required")
	case j.AccessTokenExpireMinutes <= 0:
		return invalid("jwt.access_token_expire_minutes", "access token lifetime must be positive")
	case j.RefreshTokenExpireDays <= 0:
		return invalid("jwt.refresh_token_expire_days", "refresh token lifetime must be positive")
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}
