// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/fraudguard/fraudguard/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(databaseURL)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = migrator.Close() })
	})

	It("starts at version 0 with everything pending", func() {
		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(Equal(uint(0)))
		Expect(status.Pending).NotTo(BeEmpty())
	})

	It("applies all migrations", func() {
		Expect(migrator.Up()).To(Succeed())
		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Pending).To(BeEmpty())
		Expect(status.Dirty).To(BeFalse())
	})

	It("is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("enforces unique usernames", func() {
		ctx := context.Background()
		pool, err := store.Connect(ctx, store.PoolConfig{URL: databaseURL, ConnectAttempts: 3},
			slog.New(slog.NewTextHandler(io.Discard, nil)))
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		_, err = pool.Exec(ctx, `INSERT INTO users (id, username, password_hash) VALUES ('a', 'carol', 'x')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = pool.Exec(ctx, `INSERT INTO users (id, username, password_hash) VALUES ('b', 'carol', 'y')`)

		var pgErr *pgconn.PgError
		Expect(errors.As(err, &pgErr)).To(BeTrue())
		Expect(pgErr.Code).To(Equal(pgerrcode.UniqueViolation))
		Expect(pgErr.ConstraintName).To(Equal("users_username_key"))
	})

	It("rolls back and re-applies one step", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(0)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))
	})

	It("rolls everything back", func() {
		Expect(migrator.Down()).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(0)))
		Expect(dirty).To(BeFalse())
	})
})
