// Copyright (c) 2025 ToeiRei
// Certmaster - SSH certificate authority service
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil provides shared helpers for tests in other packages.
package testutil

import (
	"strings"
	"testing"

	"github.com/toeirei/certmaster/internal/db"
)

// NewTestStore opens a fresh in-memory sqlite store, migrated and ready to
// use. Each test gets its own database, keyed by the test name.
func NewTestStore(t *testing.T) db.Store {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	s, err := db.NewStoreFromDSN("sqlite", dsn)
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	return s
}
