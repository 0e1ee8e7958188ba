// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var operators = map[string]string{
	"=": "=", "<": "<", ">": ">", "<=": "<=", ">=": ">=", "<>": "<>", "!=": "<>",
	"like": "LIKE", "not like": "NOT LIKE",
}

func normalizeOperator(op string) (string, bool) {
	sqlOp, ok := operators[strings.ToLower(strings.TrimSpace(op))]
	return sqlOp, ok
}

// Query selects rows of a model's primary table, optionally filtered and
// sorted by translated columns. Methods record the first error, which
// Build and the executing methods return.
type Query struct {
	model  *Model
	locale string

	selects     []string
	joins       []sideJoin
	wheres      []string
	whereArgs   []any
	orders      []orderTerm
	limit       int
	offset      int
	withTrashed bool
	pivot       bool

	err error
}

// sideJoin is one LEFT JOIN of the side table. The unaliased join is the
// one JoinTranslations adds; filters and sorts that cannot share it get
// their own alias.
type sideJoin struct {
	alias  string
	locale string
}

// orderTerm is one ORDER BY expression. Translated terms are wrapped in
// MAX() when the query is grouped by WithAllLocales.
type orderTerm struct {
	expr       string
	dir        string
	translated bool
}

const filterAlias = "tw"

// Query starts a query on the primary table. The request locale of ctx is
// the default for OrderByTranslation.
func (m *Model) Query(ctx context.Context) *Query {
	return &Query{model: m, locale: m.locales.Current(ctx)}
}

// Err returns the first error recorded while building.
func (q *Query) Err() error { return q.err }

func (q *Query) fail(err error) *Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Select replaces the selected primary-table columns.
func (q *Query) Select(columns ...string) *Query {
	q.selects = nil
	for _, c := range columns {
		if !validIdent(c) {
			return q.fail(fmt.Errorf("%w: column %q", ErrInvalidArguments, c))
		}
		q.selects = append(q.selects, q.model.qualifyPrimary(c))
	}
	return q
}

// Where filters on a primary-table column.
func (q *Query) Where(column, op string, value any) *Query {
	if !validIdent(column) {
		return q.fail(fmt.Errorf("%w: column %q", ErrInvalidArguments, column))
	}
	return q.addWhere(q.model.qualifyPrimary(column), op, value)
}

// WhereIn filters on a primary-table column matching any of values.
func (q *Query) WhereIn(column string, values ...any) *Query {
	if !validIdent(column) {
		return q.fail(fmt.Errorf("%w: column %q", ErrInvalidArguments, column))
	}
	if len(values) == 0 {
		q.wheres = append(q.wheres, "1 = 0")
		return q
	}
	q.wheres = append(q.wheres, q.model.qualifyPrimary(column)+" IN ("+placeholders(len(values))+")")
	q.whereArgs = append(q.whereArgs, values...)
	return q
}

func (q *Query) addWhere(qualified, op string, value any) *Query {
	sqlOp, ok := normalizeOperator(op)
	if !ok {
		return q.fail(fmt.Errorf("%w: %q", ErrInvalidOperator, op))
	}
	if value == nil {
		switch sqlOp {
		case "=":
			q.wheres = append(q.wheres, qualified+" IS NULL")
		case "<>":
			q.wheres = append(q.wheres, qualified+" IS NOT NULL")
		default:
			return q.fail(fmt.Errorf("%w: %q cannot compare with NULL", ErrInvalidOperator, op))
		}
		return q
	}
	q.wheres = append(q.wheres, qualified+" "+sqlOp+" ?")
	q.whereArgs = append(q.whereArgs, value)
	return q
}

// WithTrashed includes soft-deleted rows.
func (q *Query) WithTrashed() *Query {
	q.withTrashed = true
	return q
}

// JoinTranslations left-joins the side table once. A non-empty locale is
// matched inside the ON clause so rows without that locale still appear.
func (q *Query) JoinTranslations(locale string) *Query {
	if _, ok := q.mainJoin(); ok {
		return q
	}
	q.joins = append(q.joins, sideJoin{locale: locale})
	return q
}

func (q *Query) mainJoin() (sideJoin, bool) {
	for _, j := range q.joins {
		if j.alias == "" {
			return j, true
		}
	}
	return sideJoin{}, false
}

// aliasJoin adds an aliased join unless one with that alias exists.
func (q *Query) aliasJoin(alias, locale string) {
	for _, j := range q.joins {
		if j.alias == alias {
			return
		}
	}
	q.joins = append(q.joins, sideJoin{alias: alias, locale: locale})
}

// sideColumn qualifies column with the side table or with alias.
func (q *Query) sideColumn(alias, column string) string {
	if alias == "" {
		return q.model.QualifyColumn(column)
	}
	d := q.model.dialect
	return d.Quote(alias) + "." + d.Quote(column)
}

// WhereTranslation filters on a translated column. It accepts
//
//	(value)                    column = value
//	(operator, value)          when operator is a known operator
//	(value, locale)            otherwise
//	(operator, value, locale)
//
// The two-argument form cannot match a value that is itself an operator
// such as "like" or "<" in one locale; use WhereTranslationLocale for that.
func (q *Query) WhereTranslation(column string, args ...any) *Query {
	op, value, locale := "=", any(nil), ""
	switch len(args) {
	case 1:
		value = args[0]
	case 2:
		if s, ok := args[0].(string); ok {
			if _, isOp := normalizeOperator(s); isOp {
				op, value = s, args[1]
				break
			}
		}
		l, ok := args[1].(string)
		if !ok {
			return q.fail(fmt.Errorf("%w: locale must be a string", ErrInvalidArguments))
		}
		value, locale = args[0], l
	case 3:
		o, ok1 := args[0].(string)
		l, ok2 := args[2].(string)
		if !ok1 || !ok2 {
			return q.fail(fmt.Errorf("%w: operator and locale must be strings", ErrInvalidArguments))
		}
		op, value, locale = o, args[1], l
	default:
		return q.fail(fmt.Errorf("%w: WhereTranslation takes 1 to 3 arguments, got %d", ErrInvalidArguments, len(args)))
	}
	return q.WhereTranslationLocale(column, op, value, locale)
}

// WhereTranslationLocale filters on a translated column with an explicit
// operator. A non-empty locale restricts the match to that locale's row;
// an empty one matches any locale.
//
// Filters share the unaliased join. When that join is restricted to
// another locale by OrderByTranslation, filters use an unrestricted
// aliased join instead.
func (q *Query) WhereTranslationLocale(column, op string, value any, locale string) *Query {
	if !q.model.IsTranslatableAttribute(column) {
		return q.fail(fmt.Errorf("%w: %q", ErrInvalidAttribute, column))
	}

	alias := ""
	q.JoinTranslations("")
	if main, _ := q.mainJoin(); main.locale != "" && main.locale != locale {
		alias = filterAlias
		q.aliasJoin(alias, "")
	}
	if locale != "" {
		q.addWhere(q.sideColumn(alias, q.model.localeCol), "=", locale)
	}
	return q.addWhere(q.sideColumn(alias, column), op, value)
}

// OrderByTranslation sorts by a translated column in locale (default: the
// request locale). direction is "asc" (default) or "desc".
func (q *Query) OrderByTranslation(column, locale, direction string) *Query {
	if !q.model.IsTranslatableAttribute(column) {
		return q.fail(fmt.Errorf("%w: %q", ErrInvalidAttribute, column))
	}
	dir, err := parseDirection(direction)
	if err != nil {
		return q.fail(err)
	}
	if locale == "" {
		locale = q.locale
	}
	pos := q.model.locales.Position(locale)
	if pos < 0 {
		return q.fail(fmt.Errorf("%w: %q", ErrInvalidLocale, locale))
	}

	// The unaliased join is reused only when it is restricted to the same
	// locale; otherwise each sort locale gets its own restricted join so
	// filters on the shared join keep their meaning.
	alias := ""
	if main, ok := q.mainJoin(); !ok {
		q.JoinTranslations(locale)
	} else if main.locale != locale {
		alias = "ts" + strconv.Itoa(pos)
		q.aliasJoin(alias, locale)
	}
	q.orders = append(q.orders, orderTerm{expr: q.sideColumn(alias, column), dir: dir, translated: true})
	return q
}

// OrderBy sorts by a primary-table column.
func (q *Query) OrderBy(column, direction string) *Query {
	if !validIdent(column) {
		return q.fail(fmt.Errorf("%w: column %q", ErrInvalidArguments, column))
	}
	dir, err := parseDirection(direction)
	if err != nil {
		return q.fail(err)
	}
	q.orders = append(q.orders, orderTerm{expr: q.model.qualifyPrimary(column), dir: dir})
	return q
}

func parseDirection(direction string) (string, error) {
	switch strings.ToLower(direction) {
	case "", "asc":
		return "ASC", nil
	case "desc":
		return "DESC", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
}

// Limit caps the number of rows; 0 removes the cap.
func (q *Query) Limit(n int) *Query {
	q.limit = max(n, 0)
	return q
}

// Offset skips rows. It only applies together with Limit.
func (q *Query) Offset(n int) *Query {
	q.offset = max(n, 0)
	return q
}

// Build renders the SELECT with ? placeholders rebound for the dialect.
func (q *Query) Build() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	m, d := q.model, q.model.dialect

	selects := q.selects
	if len(selects) == 0 {
		selects = []string{d.Quote(m.table) + ".*"}
	}
	if q.pivot {
		selects = append(slices.Clone(selects), q.pivotSelects()...)
	}

	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("SELECT " + strings.Join(selects, ", ") + " FROM " + d.Quote(m.table))

	for _, j := range q.joins {
		b.WriteString(" LEFT JOIN " + d.Quote(m.side))
		if j.alias != "" {
			b.WriteString(" " + d.Quote(j.alias))
		}
		b.WriteString(" ON " + m.qualifyPrimary(m.key) + " = " + q.sideColumn(j.alias, m.key))
		if j.locale != "" {
			b.WriteString(" AND " + q.sideColumn(j.alias, m.localeCol) + " = ?")
			args = append(args, j.locale)
		}
	}
	if q.pivot {
		joins, joinArgs := q.pivotJoins()
		b.WriteString(joins)
		args = append(args, joinArgs...)
	}

	wheres := q.wheres
	if m.softDeletes && !q.withTrashed {
		wheres = append(slices.Clone(wheres), m.qualifyPrimary(m.deletedAt)+" IS NULL")
	}
	if len(wheres) > 0 {
		b.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	args = append(args, q.whereArgs...)

	if q.pivot {
		b.WriteString(" GROUP BY " + m.qualifyPrimary(m.key))
	}
	if len(q.orders) > 0 {
		orders := make([]string, len(q.orders))
		for i, o := range q.orders {
			expr := o.expr
			if q.pivot && o.translated {
				expr = "MAX(" + expr + ")"
			}
			orders[i] = expr + " " + o.dir
		}
		b.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.limit))
		if q.offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(q.offset))
		}
	}

	return d.Rebind(b.String()), args, nil
}

// Keys returns the primary keys matched by the query, without duplicates,
// in result order. An unrestricted translation join yields one row per
// locale, so Limit and Offset count joined rows here; page over the
// returned keys instead when that matters.
func (q *Query) Keys(ctx context.Context) ([]int64, error) {
	kq := *q
	kq.pivot = false
	kq.selects = []string{q.model.qualifyPrimary(q.model.key)}

	query, args, err := kq.Build()
	if err != nil {
		return nil, err
	}
	rows, err := q.model.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting %s keys: %w", q.model.table, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []int64
	seen := map[int64]struct{}{}
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning %s key: %w", q.model.table, err)
		}
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

// Delete removes the matched rows. With soft deletes the rows are only
// marked deleted and keep their translations; otherwise it behaves like
// ForceDelete.
func (q *Query) Delete(ctx context.Context) (int64, error) {
	if !q.model.softDeletes {
		return q.ForceDelete(ctx)
	}
	keys, err := q.Keys(ctx)
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	m, d := q.model, q.model.dialect
	now := m.now().UTC()
	var affected int64
	for chunk := range slices.Chunk(keys, inChunk) {
		args := []any{now}
		stmt := "UPDATE " + d.Quote(m.table) + " SET " + d.Quote(m.deletedAt) + " = ?"
		if m.updatedAt != "" {
			stmt += ", " + d.Quote(m.updatedAt) + " = ?"
			args = append(args, now)
		}
		args = append(args, int64sToArgs(chunk)...)
		stmt += " WHERE " + d.Quote(m.key) + " IN (" + placeholders(len(chunk)) + ")"
		res, err := m.db.ExecContext(ctx, d.Rebind(stmt), args...)
		if err != nil {
			return affected, fmt.Errorf("soft-deleting %s: %w", m.table, err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}
	return affected, nil
}

// ForceDelete removes the matched rows and all their translations in one
// transaction.
func (q *Query) ForceDelete(ctx context.Context) (int64, error) {
	keys, err := q.Keys(ctx)
	if err != nil || len(keys) == 0 {
		return 0, err
	}

	m, d := q.model, q.model.dialect
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var affected int64
	for chunk := range slices.Chunk(keys, inChunk) {
		args := int64sToArgs(chunk)
		in := " WHERE " + d.Quote(m.key) + " IN (" + placeholders(len(chunk)) + ")"

		if _, err := tx.ExecContext(ctx, d.Rebind("DELETE FROM "+d.Quote(m.side)+in), args...); err != nil {
			return 0, fmt.Errorf("deleting %s: %w", m.side, err)
		}
		res, err := tx.ExecContext(ctx, d.Rebind("DELETE FROM "+d.Quote(m.table)+in), args...)
		if err != nil {
			return 0, fmt.Errorf("deleting %s: %w", m.table, err)
		}
		n, _ := res.RowsAffected()
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing delete: %w", err)
	}
	m.logger.Debug("rows deleted with translations", "table", m.table, "count", affected)
	return affected, nil
}

func int64sToArgs(keys []int64) []any {
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	return args
}
