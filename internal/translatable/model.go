// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package translatable stores per-locale attribute values of a host entity in
// a "{table}_translations" side table, keyed by (entity key, locale).
//
// A Model describes one host table. Each loaded entity holds an Overlay that
// lazily reads its rows, tracks changes and writes them back when the host
// calls AfterSave. Query filters and sorts host rows by translated columns.
package translatable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/translatables/internal/i18n"
)

// Row is one locale's attribute values.
type Row map[string]any

// Translations is the full working set: locale -> attribute -> value.
type Translations map[string]Row

// Clone returns a deep copy.
func (t Translations) Clone() Translations {
	if t == nil {
		return nil
	}
	out := make(Translations, len(t))
	for locale, row := range t {
		out[locale] = maps.Clone(row)
	}
	return out
}

// Transform adjusts a stored value before it is exposed, e.g. to apply an
// accessor for one attribute.
type Transform func(attribute string, value any) any

// ModelConfig configures a Model.
type ModelConfig struct {
	Table           string
	KeyColumn       string // default "id"
	LocaleColumn    string // default "locale"
	UpdatedAtColumn string // default "updated_at"; "-" disables touching
	DeletedAtColumn string // default "deleted_at"; used when SoftDeletes is set
	Localizable     []string

	Locales *i18n.Registry
	DB      *sql.DB
	Dialect Dialect
	Columns ColumnLister // nil reads the catalog on every load

	Transform   Transform
	SoftDeletes bool
	Logger      *slog.Logger
	Now         func() time.Time
}

// Model is the translation configuration shared by all entities of one table.
// It is safe for concurrent use; the overlays it creates are not.
type Model struct {
	table       string
	side        string
	key         string
	localeCol   string
	updatedAt   string
	deletedAt   string
	localizable []string
	attrIndex   map[string]struct{}

	locales     *i18n.Registry
	db          *sql.DB
	dialect     Dialect
	columns     ColumnLister
	transform   Transform
	softDeletes bool
	logger      *slog.Logger
	now         func() time.Time
}

// NewModel validates cfg and builds a Model.
func NewModel(cfg ModelConfig) (*Model, error) {
	if cfg.KeyColumn == "" {
		cfg.KeyColumn = "id"
	}
	if cfg.LocaleColumn == "" {
		cfg.LocaleColumn = "locale"
	}
	if cfg.UpdatedAtColumn == "" {
		cfg.UpdatedAtColumn = "updated_at"
	}
	if cfg.DeletedAtColumn == "" {
		cfg.DeletedAtColumn = "deleted_at"
	}

	switch {
	case cfg.Locales == nil:
		return nil, errors.New("translatable: locale registry is required")
	case cfg.DB == nil:
		return nil, errors.New("translatable: database is required")
	case cfg.Dialect == nil:
		return nil, errors.New("translatable: dialect is required")
	case len(cfg.Localizable) == 0:
		return nil, errors.New("translatable: at least one localizable attribute is required")
	}

	idents := []string{cfg.Table, cfg.KeyColumn, cfg.LocaleColumn, cfg.DeletedAtColumn}
	if cfg.UpdatedAtColumn != "-" {
		idents = append(idents, cfg.UpdatedAtColumn)
	}
	for _, name := range idents {
		if !validIdent(name) {
			return nil, fmt.Errorf("translatable: invalid identifier %q", name)
		}
	}

	m := &Model{
		table:       cfg.Table,
		side:        cfg.Table + "_translations",
		key:         cfg.KeyColumn,
		localeCol:   cfg.LocaleColumn,
		updatedAt:   cfg.UpdatedAtColumn,
		deletedAt:   cfg.DeletedAtColumn,
		localizable: make([]string, 0, len(cfg.Localizable)),
		attrIndex:   make(map[string]struct{}, len(cfg.Localizable)),
		locales:     cfg.Locales,
		db:          cfg.DB,
		dialect:     cfg.Dialect,
		columns:     cfg.Columns,
		transform:   cfg.Transform,
		softDeletes: cfg.SoftDeletes,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if m.updatedAt == "-" {
		m.updatedAt = ""
	}

	for _, attr := range cfg.Localizable {
		if !validIdent(attr) {
			return nil, fmt.Errorf("translatable: invalid attribute name %q", attr)
		}
		if attr == m.key || attr == m.localeCol {
			return nil, fmt.Errorf("translatable: attribute %q clashes with a key column", attr)
		}
		if _, dup := m.attrIndex[attr]; dup {
			return nil, fmt.Errorf("translatable: duplicate attribute %q", attr)
		}
		m.attrIndex[attr] = struct{}{}
		m.localizable = append(m.localizable, attr)
	}

	if m.columns == nil {
		m.columns = SchemaColumns{DB: m.db, Dialect: m.dialect}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Table returns the primary table name.
func (m *Model) Table() string { return m.table }

// TranslationsTable returns the side table name.
func (m *Model) TranslationsTable() string { return m.side }

// Locales returns the accepted locale registry.
func (m *Model) Locales() *i18n.Registry { return m.locales }

// Dialect returns the SQL dialect.
func (m *Model) Dialect() Dialect { return m.dialect }

// SoftDeletes reports whether host rows are soft-deleted.
func (m *Model) SoftDeletes() bool { return m.softDeletes }

// Localizable returns the localizable attributes in declaration order.
func (m *Model) Localizable() []string {
	return slices.Clone(m.localizable)
}

// IsTranslatableAttribute reports whether name is localizable.
func (m *Model) IsTranslatableAttribute(name string) bool {
	_, ok := m.attrIndex[name]
	return ok
}

// QualifyColumn returns "side_table.column", quoted for the dialect.
func (m *Model) QualifyColumn(column string) string {
	return m.dialect.Quote(m.side) + "." + m.dialect.Quote(column)
}

func (m *Model) qualifyPrimary(column string) string {
	return m.dialect.Quote(m.table) + "." + m.dialect.Quote(column)
}

// EmptyTranslation returns a Set with "" for every accepted locale.
func (m *Model) EmptyTranslation() Set {
	values := make(map[string]any, m.locales.Len())
	for _, locale := range m.locales.Locales() {
		values[locale] = ""
	}
	return Set{values: values, locale: m.locales.Default()}
}

func (m *Model) emptyRow() Row {
	row := make(Row, len(m.localizable))
	for _, attr := range m.localizable {
		row[attr] = ""
	}
	return row
}

// existingColumns intersects the localizable attributes with the columns
// the side table actually has.
func (m *Model) existingColumns(ctx context.Context) ([]string, error) {
	cols, err := m.columns.Columns(ctx, m.side)
	if err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		present[c] = struct{}{}
	}
	out := make([]string, 0, len(m.localizable))
	for _, attr := range m.localizable {
		if _, ok := present[attr]; ok {
			out = append(out, attr)
		}
	}
	return out, nil
}

// orderedLocales returns the locales of t, accepted ones first in
// configured order, then any others sorted.
func (m *Model) orderedLocales(t Translations) []string {
	out := make([]string, 0, len(t))
	for _, locale := range m.locales.Locales() {
		if _, ok := t[locale]; ok {
			out = append(out, locale)
		}
	}
	var extra []string
	for locale := range t {
		if !m.locales.IsSupported(locale) {
			extra = append(extra, locale)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

const inChunk = 500

// fetch loads the stored translations of every key in keys.
func (m *Model) fetch(ctx context.Context, keys []int64) (map[int64]Translations, error) {
	out := make(map[int64]Translations, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	cols, err := m.existingColumns(ctx)
	if err != nil {
		return nil, err
	}

	selected := make([]string, 0, len(cols)+2)
	selected = append(selected, m.dialect.Quote(m.key), m.dialect.Quote(m.localeCol))
	for _, c := range cols {
		selected = append(selected, m.dialect.Quote(c))
	}
	head := "SELECT " + strings.Join(selected, ", ") +
		" FROM " + m.dialect.Quote(m.side) +
		" WHERE " + m.dialect.Quote(m.key) + " IN ("

	for chunk := range slices.Chunk(keys, inChunk) {
		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}
		query := m.dialect.Rebind(head + placeholders(len(chunk)) + ")")
		if err := m.scanTranslations(ctx, query, args, cols, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Model) scanTranslations(ctx context.Context, query string, args []any, cols []string, out map[int64]Translations) error {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("loading %s: %w", m.side, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			key    int64
			locale string
			values = make([]any, len(cols))
			dest   = make([]any, 0, len(cols)+2)
		)
		dest = append(dest, &key, &locale)
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scanning %s: %w", m.side, err)
		}

		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(values[i])
		}
		if out[key] == nil {
			out[key] = Translations{}
		}
		out[key][locale] = row
	}
	return rows.Err()
}

// normalize turns driver values into what SetTranslation would store.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	default:
		return t
	}
}

func concat(row Row) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(stringify(v))
	}
	return b.String()
}
