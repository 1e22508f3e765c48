// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fraudguard/fraudguard/internal/auth"
	"github.com/fraudguard/fraudguard/internal/auth/memory"
	"github.com/fraudguard/fraudguard/internal/auth/postgres"
	"github.com/fraudguard/fraudguard/internal/config"
	"github.com/fraudguard/fraudguard/internal/detect"
	"github.com/fraudguard/fraudguard/internal/httpapi"
	"github.com/fraudguard/fraudguard/internal/logging"
	"github.com/fraudguard/fraudguard/internal/observability"
	"github.com/fraudguard/fraudguard/internal/store"
	"github.com/fraudguard/fraudguard/pkg/errutil"
)

// codeServerFailed marks a shutdown caused by a listener failing.
const codeServerFailed = "SERVER_FAILED"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server: authentication endpoints, the transaction
scoring proxy, and the metrics and health listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}
}

// runServeWithDeps runs the server until ctx is cancelled or a listener
// fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = withServeDefaults(deps)

	if err := cfg.Validate(); err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	logger := logging.SetDefault(logging.Options{
		Service: "fraudguard",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  deps.LogWriter,
	})
	logger.Info("starting fraudguard",
		"http_addr", cfg.HTTP.Addr,
		"database_driver", cfg.Database.Driver,
	)

	users, ready, closeStore, err := openUserStore(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	obsServer := deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready, logger)
	metrics := obsServer.Metrics()

	svc, err := newAuthService(cfg, users, metrics, logger)
	if err != nil {
		return err
	}

	scorer, err := detect.NewScorer(cfg.Detect.MLURL,
		detect.WithTimeout(cfg.Detect.Timeout),
		detect.WithClient(deps.HTTPClient),
		detect.WithLogger(logger),
		detect.WithRecorder(metrics),
	)
	if err != nil {
		return oops.Wrapf(err, "create scorer")
	}

	origins, err := httpapi.CompileOrigins(cfg.HTTP.CORSOrigins)
	if err != nil {
		return err
	}
	api, err := httpapi.New(httpapi.Config{
		Auth:        svc,
		Analyzer:    scorer,
		Observer:    metrics,
		Logger:      logger,
		CORSOrigins: origins,
	})
	if err != nil {
		return oops.Wrapf(err, "create api")
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	apiServer := deps.APIServerFactory(cfg.HTTP.Addr, api.Handler(), cfg.HTTP.ReadHeaderTimeout, logger)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.Code("SERVER_START_FAILED").With("addr", cfg.HTTP.Addr).Wrapf(err, "start api server")
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api", logger)

	if cfg.Metrics.Addr != "" {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer shutdownCancel()
			if stopErr := apiServer.Stop(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop api server during cleanup", "error", stopErr)
			}
			return oops.Code("SERVER_START_FAILED").With("addr", cfg.Metrics.Addr).Wrapf(err, "start observability server")
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
	}

	cmd.Printf("FraudGuard server running on %s\n", apiServer.Addr())
	logger.Info("fraudguard ready", "http_addr", apiServer.Addr(), "metrics_addr", obsServer.Addr())

	<-ctx.Done()
	cause := context.Cause(ctx)
	logger.Info("shutting down", "reason", cause.Error())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}

	logger.Info("shutdown complete")
	if errutil.HasCode(cause, codeServerFailed) {
		return cause
	}
	return nil
}

func withServeDefaults(deps *ServeDeps) *ServeDeps {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = func(ctx context.Context, cfg store.PoolConfig, logger *slog.Logger) (Database, error) {
			return store.Connect(ctx, cfg, logger)
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string) (Migrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessCheck, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger)
		}
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(addr string, handler http.Handler, readHeaderTimeout time.Duration, logger *slog.Logger) APIServer {
			return httpapi.NewServer(addr, handler, readHeaderTimeout, logger)
		}
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{}
	}
	return deps
}

// openUserStore opens the configured credential store and returns it with
// its readiness check and a close function.
func openUserStore(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (auth.UserRepository, observability.ReadinessCheck, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory credential store; accounts are lost on restart")
		repo := memory.NewUserRepository()
		return repo, repo.Ping, func() {}, nil
	}

	db, err := deps.DatabaseFactory(ctx, store.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnectAttempts: cfg.Database.ConnectAttempts,
		RetryBaseDelay:  deps.ConnectRetryDelay,
	}, logger)
	if err != nil {
		return nil, nil, nil, oops.With("operation", "connect to database").Wrap(err)
	}
	logger.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := migrateUp(ctx, cfg.Database.URL, cfg.Database.ConnectAttempts, deps.ConnectRetryDelay, deps.MigratorFactory, logger); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
	}
	return postgres.NewUserRepository(db), db.Ping, db.Close, nil
}

// migrateUp applies pending migrations. Creating the migrator connects to
// the database, so it is retried within the startup connect budget.
func migrateUp(ctx context.Context, databaseURL string, attempts uint64, base time.Duration, factory func(string) (Migrator, error), logger *slog.Logger) error {
	var migrator Migrator
	_, err := store.Retry(ctx, attempts, base, logger, "create migrator", func(context.Context) error {
		m, err := factory(databaseURL)
		if err != nil {
			return err
		}
		migrator = m
		return nil
	})
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	logger.Info("database schema up to date")
	return nil
}

func newAuthService(cfg *config.Config, users auth.UserRepository, recorder auth.Recorder, logger *slog.Logger) (*auth.Service, error) {
	hasher, err := auth.NewHasher(cfg.Auth.Hasher, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, oops.Wrapf(err, "create password hasher")
	}

	secret, fallback := cfg.JWTSecret()
	if fallback {
		logger.Warn("JWT_SECRET is not set; signing tokens with the built-in fallback secret")
	}
	issuer, err := auth.NewTokenIssuer(secret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, oops.Wrapf(err, "create token issuer")
	}

	svc, err := auth.NewService(users, hasher, issuer,
		auth.WithLogger(logger),
		auth.WithRecorder(recorder),
	)
	if err != nil {
		return nil, oops.Wrapf(err, "create auth service")
	}
	return svc, nil
}

// monitorServerErrors cancels ctx with a SERVER_FAILED cause when a server
// reports an error. It returns when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelCauseFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok || err == nil {
			return
		}
		logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
		cancel(oops.Code(codeServerFailed).With("server", serverName).Wrap(err))
	case <-ctx.Done():
	}
}
