// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fraudguard/fraudguard/internal/auth/postgres"
	"github.com/fraudguard/fraudguard/internal/detect"
	"github.com/fraudguard/fraudguard/internal/observability"
	"github.com/fraudguard/fraudguard/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the connection pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, cfg store.PoolConfig, logger *slog.Logger) (Database, error)

	// MigratorFactory creates a schema migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessCheck, logger *slog.Logger) ObservabilityServer

	// APIServerFactory creates the public API server.
	// Default: httpapi.NewServer
	APIServerFactory func(addr string, handler http.Handler, readHeaderTimeout time.Duration, logger *slog.Logger) APIServer

	// ConnectRetryDelay is the initial backoff between startup connect
	// attempts. Default: store.DefaultRetryBaseDelay
	ConnectRetryDelay time.Duration

	// HTTPClient sends scoring requests.
	// Default: a client without its own timeout; the scorer bounds each call.
	HTTPClient detect.Doer

	// LogWriter receives log output.
	// Default: os.Stderr
	LogWriter io.Writer
}

// Database is the pool used by the postgres credential store.
type Database interface {
	postgres.DB
	store.Pinger
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (*store.Status, error)
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// APIServer wraps the methods used from httpapi.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
