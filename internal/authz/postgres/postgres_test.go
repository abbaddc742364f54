// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/holomush/gambit/internal/store/storetest"
)

var testDB *storetest.Database

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := storetest.Start(ctx)
	if err != nil {
		panic("failed to start test database: " + err.Error())
	}
	testDB = db

	code := m.Run()
	db.Close(ctx)
	os.Exit(code)
}

func resetDB(t *testing.T) {
	t.Helper()
	if err := testDB.Truncate(context.Background()); err != nil {
		t.Fatal(err)
	}
}
