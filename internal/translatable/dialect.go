// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Dialect hides the SQL differences between the supported databases.
// Queries are written with ? placeholders and passed through Rebind.
type Dialect interface {
	Name() string
	Quote(ident string) string
	Rebind(query string) string
	// Upsert returns an INSERT that updates columns when a row with the
	// same keys already exists. Placeholders cover keys then columns.
	Upsert(table string, keys, columns []string) string
	// ColumnsQuery lists the columns of the table bound to its single placeholder.
	ColumnsQuery() string
}

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "mysql":
		return MySQL{}, nil
	case "pgx", "postgres", "postgresql":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("translatable: unsupported driver %q", driver)
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(name string) bool {
	return identRe.MatchString(name)
}

// SQLite is the dialect for modernc.org/sqlite and mattn/go-sqlite3.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Quote(ident string) string { return quoteWith(ident, '"') }

func (SQLite) Rebind(query string) string { return query }

func (d SQLite) Upsert(table string, keys, columns []string) string {
	return conflictUpsert(d, table, keys, columns)
}

func (SQLite) ColumnsQuery() string {
	return "SELECT name FROM pragma_table_info(?) ORDER BY cid"
}

// MySQL is the dialect for go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Quote(ident string) string { return quoteWith(ident, '`') }

func (MySQL) Rebind(query string) string { return query }

func (d MySQL) Upsert(table string, keys, columns []string) string {
	all := append(append([]string{}, keys...), columns...)
	if len(columns) == 0 {
		return "INSERT IGNORE INTO " + d.Quote(table) + insertTail(d, all)
	}
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = d.Quote(c) + " = VALUES(" + d.Quote(c) + ")"
	}
	return "INSERT INTO " + d.Quote(table) + insertTail(d, all) +
		" ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
}

func (MySQL) ColumnsQuery() string {
	return "SELECT column_name FROM information_schema.columns " +
		"WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
}

// Postgres is the dialect for jackc/pgx through database/sql.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Quote(ident string) string { return quoteWith(ident, '"') }

// Rebind rewrites ? placeholders to $1..$n, leaving quoted text alone.
func (Postgres) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func (d Postgres) Upsert(table string, keys, columns []string) string {
	return conflictUpsert(d, table, keys, columns)
}

func (Postgres) ColumnsQuery() string {
	return "SELECT column_name FROM information_schema.columns " +
		"WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position"
}

func quoteWith(ident string, q byte) string {
	s := string(q)
	return s + strings.ReplaceAll(ident, s, s+s) + s
}

func insertTail(d Dialect, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	return " (" + strings.Join(quoted, ", ") + ") VALUES (" + placeholders(len(columns)) + ")"
}

func conflictUpsert(d Dialect, table string, keys, columns []string) string {
	all := append(append([]string{}, keys...), columns...)
	conflict := make([]string, len(keys))
	for i, k := range keys {
		conflict[i] = d.Quote(k)
	}
	q := "INSERT INTO " + d.Quote(table) + insertTail(d, all) +
		" ON CONFLICT (" + strings.Join(conflict, ", ") + ")"
	if len(columns) == 0 {
		return q + " DO NOTHING"
	}
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = d.Quote(c) + " = excluded." + d.Quote(c)
	}
	return q + " DO UPDATE SET " + strings.Join(sets, ", ")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
