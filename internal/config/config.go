// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

// Package config loads the server configuration from defaults, an optional
// YAML file, the environment and command-line flags, in that order.
package config

import (
	"net/url"
	"slices"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Error codes returned by this package.
const (
	CodeInvalid    = "CONFIG_INVALID"
	CodeLoadFailed = "CONFIG_LOAD_FAILED"
	CodeSchema     = "CONFIG_SCHEMA"
)

// FallbackJWTSecret signs tokens when no secret is configured. Tokens issued
// by earlier deployments that ran without JWT_SECRET were signed with it.
const FallbackJWTSecret = "somerandomsecretstring123"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the complete server configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty" yaml:"http"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty" yaml:"metrics"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty" yaml:"log"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty" yaml:"database"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty" yaml:"auth"`
	Detect   DetectConfig   `koanf:"detect" json:"detect,omitempty" yaml:"detect"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr" json:"addr,omitempty" yaml:"addr" jsonschema:"description=API listen address"`
	CORSOrigins       []string      `koanf:"cors_origins" json:"cors_origins,omitempty" yaml:"cors_origins" jsonschema:"description=Allowed CORS origins as glob patterns"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" json:"read_header_timeout,omitempty" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout"`
}

// MetricsConfig configures the metrics and health listener.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty" yaml:"addr" jsonschema:"description=Metrics listen address; empty disables the listener"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" yaml:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig configures the credential store.
type DatabaseConfig struct {
	Driver          string `koanf:"driver" json:"driver,omitempty" yaml:"driver" jsonschema:"enum=postgres,enum=memory"`
	URL             string `koanf:"url" json:"url,omitempty" yaml:"url"`
	MaxConns        int32  `koanf:"max_conns" json:"max_conns,omitempty" yaml:"max_conns" jsonschema:"minimum=1"`
	MinConns        int32  `koanf:"min_conns" json:"min_conns,omitempty" yaml:"min_conns" jsonschema:"minimum=0"`
	ConnectAttempts uint64 `koanf:"connect_attempts" json:"connect_attempts,omitempty" yaml:"connect_attempts" jsonschema:"minimum=1"`
	AutoMigrate     bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty" yaml:"auto_migrate"`
}

// AuthConfig configures password hashing and session tokens.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret" json:"jwt_secret,omitempty" yaml:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl" json:"token_ttl,omitempty" yaml:"token_ttl"`
	Hasher     string        `koanf:"hasher" json:"hasher,omitempty" yaml:"hasher" jsonschema:"enum=bcrypt,enum=argon2id"`
	BcryptCost int           `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" yaml:"bcrypt_cost"`
}

// DetectConfig configures the fraud scoring proxy.
type DetectConfig struct {
	MLURL   string        `koanf:"ml_url" json:"ml_url,omitempty" yaml:"ml_url"`
	Timeout time.Duration `koanf:"timeout" json:"timeout,omitempty" yaml:"timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":5001",
			CORSOrigins:       []string{"http://localhost:3000"},
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   5 * time.Second,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			MaxConns:        20,
			MinConns:        2,
			ConnectAttempts: 5,
			AutoMigrate:     true,
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			Hasher:     "bcrypt",
			BcryptCost: bcrypt.DefaultCost,
		},
		Detect: DetectConfig{
			MLURL:   "http://127.0.0.1:5000/predict",
			Timeout: 10 * time.Second,
		},
	}
}

// JWTSecret returns the signing key and whether the fallback constant is in use.
func (c *Config) JWTSecret() ([]byte, bool) {
	if c.Auth.JWTSecret == "" {
		return []byte(FallbackJWTSecret), true
	}
	return []byte(c.Auth.JWTSecret), false
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	errb := oops.Code(CodeInvalid)

	if c.HTTP.Addr == "" {
		return errb.Errorf("http.addr is required")
	}
	for _, origin := range c.HTTP.CORSOrigins {
		if _, err := glob.Compile(origin); err != nil {
			return errb.With("origin", origin).Wrapf(err, "http.cors_origins has an invalid pattern")
		}
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return errb.Errorf("http.read_header_timeout must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return errb.Errorf("http.shutdown_timeout must be positive")
	}

	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return errb.Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return errb.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errb.Errorf("database.url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return errb.Errorf("database.driver must be 'postgres' or 'memory', got %q", c.Database.Driver)
	}
	if c.Database.MaxConns < 1 {
		return errb.Errorf("database.max_conns must be at least 1")
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return errb.Errorf("database.min_conns must be between 0 and database.max_conns")
	}
	if c.Database.ConnectAttempts < 1 {
		return errb.Errorf("database.connect_attempts must be at least 1")
	}

	if c.Auth.TokenTTL <= 0 {
		return errb.Errorf("auth.token_ttl must be positive")
	}
	switch c.Auth.Hasher {
	case "bcrypt":
		if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
			return errb.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
		}
	case "argon2id":
	default:
		return errb.Errorf("auth.hasher must be 'bcrypt' or 'argon2id', got %q", c.Auth.Hasher)
	}

	u, err := url.Parse(c.Detect.MLURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errb.With("ml_url", c.Detect.MLURL).Errorf("detect.ml_url must be an absolute http(s) URL")
	}
	if c.Detect.Timeout <= 0 {
		return errb.Errorf("detect.timeout must be positive")
	}
	return nil
}
