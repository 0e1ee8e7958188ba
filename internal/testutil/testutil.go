// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers.
package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/olegiv/translatables/internal/i18n"
	"github.com/olegiv/translatables/internal/store"
)

// TestDriver is the database/sql driver used by TestDB.
const TestDriver = "sqlite"

// TestLogger creates a test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a logger that discards everything.
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database with all migrations applied.
// It is closed when the test ends.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "translatables-test.db")
	db, err := store.Open(TestDriver, dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db, TestDriver); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// TestLocales returns a registry accepting en and nl, defaulting to en.
func TestLocales(t *testing.T) *i18n.Registry {
	t.Helper()

	r, err := i18n.NewRegistry([]string{"en", "nl"}, "en")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}
