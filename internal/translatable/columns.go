// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/translatables/internal/cache"
)

// ColumnLister lists the columns that exist on a table.
type ColumnLister interface {
	Columns(ctx context.Context, table string) ([]string, error)
}

// ColumnListerFunc adapts a function to ColumnLister.
type ColumnListerFunc func(ctx context.Context, table string) ([]string, error)

// Columns calls f.
func (f ColumnListerFunc) Columns(ctx context.Context, table string) ([]string, error) {
	return f(ctx, table)
}

// SchemaColumns reads column names from the database catalog.
type SchemaColumns struct {
	DB      *sql.DB
	Dialect Dialect
}

// Columns queries the catalog for table.
func (s SchemaColumns) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, s.Dialect.Rebind(s.Dialect.ColumnsQuery()), table)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column of %s: %w", table, err)
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// columnsPrefix namespaces the listings so they can be dropped together.
const columnsPrefix = "columns:"

// CachedColumns memoizes another lister in a cache under "columns:{table}".
// Empty listings are not cached so a table created later is picked up.
type CachedColumns struct {
	next  ColumnLister
	raw   cache.Cacher
	cache *cache.TypedCache[[]string]
}

// NewCachedColumns wraps next with c. A zero ttl uses the cache default.
func NewCachedColumns(next ColumnLister, c cache.Cacher, ttl time.Duration) *CachedColumns {
	return &CachedColumns{
		next:  next,
		raw:   c,
		cache: cache.NewTypedCache[[]string](c, ttl),
	}
}

// Columns returns the cached listing or loads and stores it.
func (c *CachedColumns) Columns(ctx context.Context, table string) ([]string, error) {
	return c.cache.GetOrSet(ctx, columnsKey(table), func() ([]string, error) {
		return c.next.Columns(ctx, table)
	}, func(cols []string) bool { return len(cols) > 0 })
}

// Invalidate drops the cached listing for table, e.g. after a migration.
func (c *CachedColumns) Invalidate(ctx context.Context, table string) error {
	return c.cache.Delete(ctx, columnsKey(table))
}

// InvalidateAll drops every cached listing, e.g. after migrations ran.
func (c *CachedColumns) InvalidateAll(ctx context.Context) error {
	return c.raw.DeleteByPrefix(ctx, columnsPrefix)
}

// Stats returns the hit and miss counters of the underlying cache, or
// false when the backend does not count them.
func (c *CachedColumns) Stats() (cache.Stats, bool) {
	sp, ok := c.raw.(cache.StatsProvider)
	if !ok {
		return cache.Stats{}, false
	}
	return sp.Stats(), true
}

func columnsKey(table string) string {
	return columnsPrefix + table
}
