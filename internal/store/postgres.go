// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

// Package store provides PostgreSQL connection management and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pool defaults, applied when PoolConfig leaves a field zero. MinConns has
// no default: zero keeps no idle connections.
const (
	DefaultMaxConns        = 20
	DefaultMaxConnLifetime = time.Hour
	DefaultMaxConnIdleTime = 30 * time.Minute
	DefaultConnectAttempts = 5
	DefaultRetryBaseDelay  = 500 * time.Millisecond
	pingTimeout            = 5 * time.Second
)

// PoolConfig configures Connect.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	// ConnectAttempts is the number of pings tried before giving up.
	ConnectAttempts uint64
	RetryBaseDelay  time.Duration
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connect opens a pgx pool and waits for the database to answer a ping,
// retrying with exponential backoff.
func Connect(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("database URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := parsePoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	if err := PingWithRetry(ctx, pool, cfg.ConnectAttempts, cfg.RetryBaseDelay, logger); err != nil {
		pool.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "connected to database",
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns,
	)
	return pool, nil
}

func parsePoolConfig(cfg PoolConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	poolCfg.MaxConns = orDefault(cfg.MaxConns, DefaultMaxConns)
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = orDefault(cfg.MaxConnLifetime, DefaultMaxConnLifetime)
	poolCfg.MaxConnIdleTime = orDefault(cfg.MaxConnIdleTime, DefaultMaxConnIdleTime)
	if poolCfg.MinConns > poolCfg.MaxConns {
		return nil, oops.Code("DB_CONFIG_INVALID").
			With("min_conns", poolCfg.MinConns).
			With("max_conns", poolCfg.MaxConns).
			Errorf("min_conns cannot exceed max_conns")
	}
	return poolCfg, nil
}

// PingWithRetry pings until success, attempts are exhausted, or ctx ends.
func PingWithRetry(ctx context.Context, db Pinger, attempts uint64, base time.Duration, logger *slog.Logger) error {
	made, err := Retry(ctx, attempts, base, logger, "ping database", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		return db.Ping(pingCtx)
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("attempts", made).Wrap(err)
	}
	return nil
}

// Retry runs fn until it succeeds, attempts are exhausted, or ctx ends,
// backing off exponentially from base. Every error from fn is retried. It
// returns the number of attempts made. Zero attempts or base select the
// connect defaults.
func Retry(ctx context.Context, attempts uint64, base time.Duration, logger *slog.Logger, operation string, fn func(context.Context) error) (uint64, error) {
	attempts = orDefault(attempts, DefaultConnectAttempts)
	base = orDefault(base, DefaultRetryBaseDelay)
	if logger == nil {
		logger = slog.Default()
	}

	backoff := retry.WithMaxRetries(attempts-1, retry.WithCappedDuration(10*time.Second, retry.NewExponential(base)))

	var attempt uint64
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			logger.WarnContext(ctx, "database not reachable",
				"operation", operation,
				"attempt", attempt,
				"max_attempts", attempts,
				"error", err,
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	return attempt, err
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
