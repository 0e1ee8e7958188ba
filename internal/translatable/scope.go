// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import (
	"strconv"
	"strings"
)

// WithAllLocales pivots the side table into the result: one aliased join
// per accepted locale and one "locale.attribute" column per localizable
// attribute, grouped by the primary key. Use PivotColumns and DecodePivot
// to read those columns. It replaces the lazy per-entity load and should
// not be combined with it.
func (q *Query) WithAllLocales() *Query {
	q.pivot = true
	return q
}

// PivotColumns names the extra columns WithAllLocales appends to each row,
// in select order.
func (q *Query) PivotColumns() []string {
	m := q.model
	locales := m.locales.Locales()
	cols := make([]string, 0, len(locales)*len(m.localizable))
	for _, locale := range locales {
		for _, attr := range m.localizable {
			cols = append(cols, locale+"."+attr)
		}
	}
	return cols
}

func pivotAlias(i int) string {
	return "tr" + strconv.Itoa(i)
}

func (q *Query) pivotSelects() []string {
	m, d := q.model, q.model.dialect
	locales := m.locales.Locales()
	out := make([]string, 0, len(locales)*len(m.localizable))
	for i, locale := range locales {
		alias := d.Quote(pivotAlias(i))
		for _, attr := range m.localizable {
			out = append(out, "MAX("+alias+"."+d.Quote(attr)+") AS "+d.Quote(locale+"."+attr))
		}
	}
	return out
}

// pivotJoins matches each alias on its locale inside the ON clause so one
// join yields at most one row per host.
func (q *Query) pivotJoins() (string, []any) {
	m, d := q.model, q.model.dialect
	var (
		b    strings.Builder
		args []any
	)
	for i, locale := range m.locales.Locales() {
		alias := d.Quote(pivotAlias(i))
		b.WriteString(" LEFT JOIN " + d.Quote(m.side) + " " + alias +
			" ON " + m.qualifyPrimary(m.key) + " = " + alias + "." + d.Quote(m.key) +
			" AND " + alias + "." + d.Quote(m.localeCol) + " = ?")
		args = append(args, locale)
	}
	return b.String(), args
}

// DecodePivot turns the values scanned for PivotColumns into translations.
// Locales whose values are all NULL have no row and are left out.
func (q *Query) DecodePivot(values []any) Translations {
	m := q.model
	t := Translations{}
	i := 0
	for _, locale := range m.locales.Locales() {
		row := make(Row, len(m.localizable))
		present := false
		for _, attr := range m.localizable {
			var v any
			if i < len(values) {
				v = values[i]
			}
			i++
			if v != nil {
				present = true
			}
			row[attr] = normalize(v)
		}
		if present {
			t[locale] = row
		}
	}
	return t
}
