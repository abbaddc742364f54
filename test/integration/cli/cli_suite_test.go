// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"context"
	"os/exec"
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/gambit/internal/store/storetest"
)

func TestCLI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "CLI Integration Suite")
}

var db *storetest.Database

var _ = BeforeSuite(func() {
	var err error
	db, err = storetest.Start(context.Background())
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if db != nil {
		db.Close(context.Background())
	}
})

// gambit runs the CLI from source with DATABASE_URL pointing at the test
// database unless withDB is false.
func gambit(ctx context.Context, withDB bool, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "."}, args...)...)
	cmd.Dir = "../../../cmd/gambit"
	cmd.Env = append(cmd.Environ(), "XDG_CONFIG_HOME="+GinkgoT().TempDir(), "DATABASE_URL=")
	if withDB {
		cmd.Env = append(cmd.Env, "DATABASE_URL="+db.ConnStr)
	}
	out, err := cmd.CombinedOutput()
	return string(out), err
}
