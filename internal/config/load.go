// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// envKeys maps the environment variables the server honors to config keys.
var envKeys = map[string]string{
	"DATABASE_URL": "database.url",
	"JWT_SECRET":   "auth.jwt_secret",
	"ML_API_URL":   "detect.ml_url",
}

// Flag names registered by RegisterFlags, mapped to config keys.
var flagKeys = map[string]string{
	"addr":         "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"db-driver":    "database.driver",
	"database-url": "database.url",
	"ml-url":       "detect.ml_url",
}

// Options controls where Load reads from.
type Options struct {
	// File is an optional YAML config path. A missing file is an error.
	File string
	// EnvFile is a dotenv file merged under the process environment.
	// A missing EnvFile is ignored.
	EnvFile string
	// Flags holds flags registered by RegisterFlags. Only flags set on the
	// command line override other sources.
	Flags *pflag.FlagSet
	// Getenv reads the process environment. Defaults to os.Getenv.
	Getenv func(string) string
}

// RegisterFlags adds the config override flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("addr", d.HTTP.Addr, "API listen address")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("db-driver", d.Database.Driver, "credential store driver (postgres or memory)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("ml-url", d.Detect.MLURL, "fraud scoring endpoint URL")
}

// Load builds the effective configuration and validates it.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if opts.File != "" {
		fp := file.Provider(opts.File)
		data, err := fp.ReadBytes()
		if err != nil {
			return nil, oops.Code(CodeLoadFailed).With("path", opts.File).Wrapf(err, "read config file")
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.With("path", opts.File).Wrap(err)
		}
		if err := k.Load(fp, yaml.Parser()); err != nil {
			return nil, oops.Code(CodeLoadFailed).With("path", opts.File).Wrapf(err, "parse config file")
		}
	}

	getenv, err := envLookup(opts)
	if err != nil {
		return nil, err
	}
	if port := getenv("PORT"); port != "" {
		if err := k.Set("http.addr", ":"+port); err != nil {
			return nil, oops.Code(CodeLoadFailed).Wrapf(err, "apply PORT")
		}
	}
	for env, key := range envKeys {
		if v := getenv(env); v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, oops.Code(CodeLoadFailed).With("env", env).Wrapf(err, "apply environment")
			}
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeLoadFailed).Wrapf(err, "apply flags")
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code(CodeLoadFailed).Wrapf(err, "decode config")
	}
	// Decoding into a pre-filled slice keeps trailing defaults.
	if k.Exists("http.cors_origins") {
		cfg.HTTP.CORSOrigins = k.Strings("http.cors_origins")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envLookup returns a getter that prefers the process environment and falls
// back to the dotenv file.
func envLookup(opts Options) (func(string) string, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if opts.EnvFile == "" {
		return getenv, nil
	}

	dotenv, err := godotenv.Read(opts.EnvFile)
	if errors.Is(err, fs.ErrNotExist) {
		return getenv, nil
	}
	if err != nil {
		return nil, oops.Code(CodeLoadFailed).With("path", opts.EnvFile).Wrapf(err, "read env file")
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}, nil
}
