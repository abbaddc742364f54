// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/gambit/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(suiteConnStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = migrator.Close() })
	})

	It("starts at version zero with everything pending", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(HaveLen(4))
	})

	It("applies, steps back and reapplies", func() {
		Expect(migrator.Up()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(4)))

		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(3)))

		Expect(migrator.Up()).To(Succeed())
	})

	It("enforces unique constraints and refreshes updated_at", func() {
		pool := newPool()
		DeferCleanup(pool.Close)

		_, err := pool.Exec(suiteCtx, `INSERT INTO roles (name) VALUES ('moderator')`)
		Expect(err).NotTo(HaveOccurred())

		_, err = pool.Exec(suiteCtx, `INSERT INTO roles (name) VALUES ('moderator')`)
		name, ok := store.IsUniqueViolation(err)
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("uq_roles_name"))

		var before, after any
		Expect(pool.QueryRow(suiteCtx, `SELECT updated_at FROM roles WHERE name = 'moderator'`).Scan(&before)).To(Succeed())
		_, err = pool.Exec(suiteCtx, `UPDATE roles SET description = 'moderates' WHERE name = 'moderator'`)
		Expect(err).NotTo(HaveOccurred())
		Expect(pool.QueryRow(suiteCtx, `SELECT updated_at FROM roles WHERE name = 'moderator'`).Scan(&after)).To(Succeed())
		Expect(after).NotTo(Equal(before))
	})

	It("rolls everything back", func() {
		Expect(migrator.Down()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
	})
})
