// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/translatables/internal/testutil"
	"github.com/olegiv/translatables/internal/translatable"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// item is a minimal host backed by a products row.
type item struct {
	id      int64
	touched time.Time
}

func (i *item) TranslationKey() int64 { return i.id }
func (i *item) Touched(at time.Time)  { i.touched = at }

type modelOption func(*translatable.ModelConfig)

func withLocalizable(attrs ...string) modelOption {
	return func(c *translatable.ModelConfig) { c.Localizable = attrs }
}

func withSoftDeletes() modelOption {
	return func(c *translatable.ModelConfig) { c.SoftDeletes = true }
}

func withColumns(l translatable.ColumnLister) modelOption {
	return func(c *translatable.ModelConfig) { c.Columns = l }
}

func newTestModel(t *testing.T, db *sql.DB, opts ...modelOption) *translatable.Model {
	t.Helper()

	cfg := translatable.ModelConfig{
		Table:       "products",
		Localizable: []string{"title", "description"},
		Locales:     testutil.TestLocales(t),
		DB:          db,
		Dialect:     translatable.SQLite{},
		Logger:      testutil.TestLoggerSilent(),
		Now:         func() time.Time { return fixedNow },
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	m, err := translatable.NewModel(cfg)
	require.NoError(t, err)
	return m
}

func insertProduct(t *testing.T, db *sql.DB, sku string) *item {
	t.Helper()

	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res, err := db.Exec("INSERT INTO products (sku, price, created_at, updated_at) VALUES (?, 0, ?, ?)",
		sku, created, created)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return &item{id: id}
}

func insertTranslation(t *testing.T, db *sql.DB, id int64, locale, title, description string) {
	t.Helper()

	_, err := db.Exec("INSERT INTO products_translations (id, locale, title, description) VALUES (?, ?, ?, ?)",
		id, locale, title, description)
	require.NoError(t, err)
}

type storedRow struct {
	title       sql.NullString
	description sql.NullString
}

// sideRows reads the side table rows of id keyed by locale.
func sideRows(t *testing.T, db *sql.DB, id int64) map[string]storedRow {
	t.Helper()

	rows, err := db.Query("SELECT locale, title, description FROM products_translations WHERE id = ?", id)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	out := map[string]storedRow{}
	for rows.Next() {
		var (
			locale string
			r      storedRow
		)
		require.NoError(t, rows.Scan(&locale, &r.title, &r.description))
		out[locale] = r
	}
	require.NoError(t, rows.Err())
	return out
}

// countingLister counts catalog lookups.
type countingLister struct {
	next  translatable.ColumnLister
	calls int
}

func (c *countingLister) Columns(ctx context.Context, table string) ([]string, error) {
	c.calls++
	return c.next.Columns(ctx, table)
}
