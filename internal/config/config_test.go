// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudguard/fraudguard/pkg/errutil"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_ValidWithMemoryDriver(t *testing.T) {
	cfg := Default()
	cfg.Database.Driver = DriverMemory
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":5001", cfg.HTTP.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.Detect.Timeout)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.HTTP.Addr = "" }},
		{"bad cors pattern", func(c *Config) { c.HTTP.CORSOrigins = []string{"http://["} }},
		{"zero read header timeout", func(c *Config) { c.HTTP.ReadHeaderTimeout = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres; c.Database.URL = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mongo" }},
		{"zero max conns", func(c *Config) { c.Database.MaxConns = 0 }},
		{"min above max", func(c *Config) { c.Database.MinConns = 50 }},
		{"zero connect attempts", func(c *Config) { c.Database.ConnectAttempts = 0 }},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"unknown hasher", func(c *Config) { c.Auth.Hasher = "md5" }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"relative ml url", func(c *Config) { c.Detect.MLURL = "/predict" }},
		{"non-http ml url", func(c *Config) { c.Detect.MLURL = "ftp://host/predict" }},
		{"zero detect timeout", func(c *Config) { c.Detect.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.Driver = DriverMemory
			tt.mutate(&cfg)
			errutil.AssertErrorCode(t, cfg.Validate(), CodeInvalid)
		})
	}
}

func TestConfig_JWTSecret(t *testing.T) {
	cfg := Default()
	secret, fallback := cfg.JWTSecret()
	assert.True(t, fallback)
	assert.Equal(t, []byte(FallbackJWTSecret), secret)

	cfg.Auth.JWTSecret = "s3cret"
	secret, fallback = cfg.JWTSecret()
	assert.False(t, fallback)
	assert.Equal(t, []byte("s3cret"), secret)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(Options{Getenv: envMap(map[string]string{"DATABASE_URL": "postgres://localhost/fg"})})
	require.NoError(t, err)

	want := Default()
	want.Database.URL = "postgres://localhost/fg"
	assert.Equal(t, &want, cfg)
}

func TestLoad_PostgresWithoutURLFails(t *testing.T) {
	_, err := Load(Options{Getenv: envMap(nil)})
	errutil.AssertErrorCode(t, err, CodeInvalid)
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, "config.yaml", `
http:
  addr: ":8080"
  cors_origins:
    - "https://*.example.com"
database:
  driver: memory
auth:
  token_ttl: 1h
  hasher: argon2id
detect:
  timeout: 3s
`)

	cfg, err := Load(Options{File: path, Getenv: envMap(nil)})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://*.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "argon2id", cfg.Auth.Hasher)
	assert.Equal(t, 3*time.Second, cfg.Detect.Timeout)
	// untouched keys keep their defaults
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, 20, int(cfg.Database.MaxConns))
}

func TestLoad_FileSchemaViolation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "http:\n  port: 5001\n"},
		{"wrong type", "database:\n  max_conns: lots\n"},
		{"bad enum", "log:\n  format: xml\n"},
		{"numeric duration", "auth:\n  token_ttl: 3600\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "config.yaml", tt.content)
			_, err := Load(Options{File: path, Getenv: envMap(nil)})
			errutil.AssertErrorCode(t, err, CodeSchema)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "absent.yaml"), Getenv: envMap(nil)})
	errutil.AssertErrorCode(t, err, CodeLoadFailed)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
http:
  addr: ":8080"
database:
  driver: postgres
  url: postgres://file/db
detect:
  ml_url: http://file:5000/predict
`)

	cfg, err := Load(Options{
		File: path,
		Getenv: envMap(map[string]string{
			"PORT":         "6001",
			"DATABASE_URL": "postgres://env/db",
			"JWT_SECRET":   "from-env",
			"ML_API_URL":   "http://ml:5000/predict",
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, ":6001", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "http://ml:5000/predict", cfg.Detect.MLURL)
}

func TestLoad_DotenvFillsGapsOnly(t *testing.T) {
	envFile := writeFile(t, ".env", "JWT_SECRET=dotenv-secret\nDATABASE_URL=postgres://dotenv/db\n")

	cfg, err := Load(Options{
		EnvFile: envFile,
		Getenv:  envMap(map[string]string{"DATABASE_URL": "postgres://process/db"}),
	})
	require.NoError(t, err)

	assert.Equal(t, "dotenv-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "postgres://process/db", cfg.Database.URL)
}

func TestLoad_MissingDotenvIgnored(t *testing.T) {
	_, err := Load(Options{
		EnvFile: filepath.Join(t.TempDir(), ".env"),
		Getenv:  envMap(map[string]string{"DATABASE_URL": "postgres://localhost/fg"}),
	})
	require.NoError(t, err)
}

func TestLoad_ChangedFlagsOverrideEverything(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", ":7000", "--db-driver", "memory"}))

	path := writeFile(t, "config.yaml", "log:\n  format: text\n")
	cfg, err := Load(Options{
		File:   path,
		Flags:  fs,
		Getenv: envMap(map[string]string{"PORT": "6001"}),
	})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	// unchanged flags do not clobber the file value with their default
	assert.Equal(t, "text", cfg.Log.Format)
}
