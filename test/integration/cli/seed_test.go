// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Seed Command", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		Expect(db.Truncate(ctx)).To(Succeed())
	})

	Describe("Reference data", func() {
		It("creates countries, ranks, roles and grants", func() {
			output, err := gambit(ctx, true, "seed")
			Expect(err).NotTo(HaveOccurred(), "seed command failed: %s", output)
			Expect(output).To(ContainSubstring("Seeding complete"))

			var countries, ranks int
			Expect(db.Pool.QueryRow(ctx, "SELECT count(*) FROM countries").Scan(&countries)).To(Succeed())
			Expect(db.Pool.QueryRow(ctx, "SELECT count(*) FROM ranks").Scan(&ranks)).To(Succeed())
			Expect(countries).To(BeNumerically(">", 0))
			Expect(ranks).To(BeNumerically(">", 0))

			var granted int
			Expect(db.Pool.QueryRow(ctx, `
				SELECT count(*)
				FROM roles_privileges_association_table rp
				JOIN roles r ON r.id = rp.role_id
				JOIN privileges p ON p.id = rp.privilege_id
				WHERE r.name = 'admin' AND p.name = 'roles.assign'`).Scan(&granted)).To(Succeed())
			Expect(granted).To(Equal(1))
		})

		It("is idempotent", func() {
			_, err := gambit(ctx, true, "seed")
			Expect(err).NotTo(HaveOccurred())

			output, err := gambit(ctx, true, "seed")
			Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", output)
			Expect(output).To(ContainSubstring("Seeding complete: 0 created"))
		})
	})

	Describe("Error handling", func() {
		It("fails with a config error when no database url is set", func() {
			output, err := gambit(ctx, false, "seed")
			Expect(err).To(HaveOccurred())
			Expect(output).To(ContainSubstring("database url is required"))
		})
	})
})

var _ = Describe("Role Command", func() {
	It("assigns a seeded role to an existing user", func() {
		ctx := context.Background()
		Expect(db.Truncate(ctx)).To(Succeed())

		_, err := gambit(ctx, true, "seed", "--skip-migrate")
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Pool.Exec(ctx, `
			INSERT INTO users (uuid, username, email, password_hash)
			VALUES (gen_random_uuid(), 'operator', 'operator@example.com', 'x')`)
		Expect(err).NotTo(HaveOccurred())

		output, err := gambit(ctx, true, "role", "assign", "operator", "admin")
		Expect(err).NotTo(HaveOccurred(), "role assign failed: %s", output)

		output, err = gambit(ctx, true, "role", "show", "operator")
		Expect(err).NotTo(HaveOccurred())
		Expect(output).To(ContainSubstring("Roles:      admin"))
		Expect(output).To(ContainSubstring("roles.assign"))
	})
})
