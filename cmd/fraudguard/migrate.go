// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/fraudguard/fraudguard/internal/config"
	"github.com/fraudguard/fraudguard/internal/store"
)

type migratorFactory func(databaseURL string) (Migrator, error)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmd(func(databaseURL string) (Migrator, error) {
		return store.NewMigrator(databaseURL)
	})
}

func newMigrateCmd(factory migratorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the credential store schema",
		Long:  `Apply, roll back or inspect the PostgreSQL schema migrations.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(factory, func(cmd *cobra.Command, m Migrator, _ []string) error {
			cmd.Println("Running migrations...")
			if err := m.Up(); err != nil {
				return oops.With("operation", "run migrations").Wrap(err)
			}
			cmd.Println("Migrations completed successfully")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations (drops all accounts)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(factory, func(cmd *cobra.Command, m Migrator, _ []string) error {
			cmd.Println("Rolling back migrations...")
			if err := m.Down(); err != nil {
				return oops.With("operation", "roll back migrations").Wrap(err)
			}
			cmd.Println("Rollback completed successfully")
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(factory, func(cmd *cobra.Command, m Migrator, _ []string) error {
			status, err := m.Status()
			if err != nil {
				return oops.With("operation", "read migration status").Wrap(err)
			}
			printStatus(cmd, status)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it (dirty state recovery)",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(factory, func(cmd *cobra.Command, m Migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return oops.With("operation", "force version").Wrap(err)
			}
			cmd.Printf("Forced schema version to %d\n", version)
			return nil
		}),
	})

	return cmd
}

// withMigrator loads config, opens a migrator for the configured database
// and closes it after fn returns.
func withMigrator(factory migratorFactory, fn func(*cobra.Command, Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Database.Driver != config.DriverPostgres {
			return oops.Code("CONFIG_INVALID").Errorf("migrations require the postgres driver, got %q", cfg.Database.Driver)
		}

		m, err := factory(cfg.Database.URL)
		if err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		return fn(cmd, m, args)
	}
}

func printStatus(cmd *cobra.Command, status *store.Status) {
	state := "clean"
	if status.Dirty {
		state = "DIRTY"
	}
	cmd.Printf("Schema version: %d (%s)\n", status.Version, state)
	for _, mig := range status.Applied {
		cmd.Printf("  [applied] %06d %s\n", mig.Version, mig.Name)
	}
	for _, mig := range status.Pending {
		cmd.Printf("  [pending] %06d %s\n", mig.Version, mig.Name)
	}
}

// parseForceVersion parses a non-negative migration version.
func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || version < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be a non-negative integer, got %q", s)
	}
	return version, nil
}
