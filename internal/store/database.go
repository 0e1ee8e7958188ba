// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store opens the database, applies migrations and persists the
// product entities that carry translations.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver "pgx"
	_ "github.com/mattn/go-sqlite3"    // cgo SQLite driver "sqlite3"
	_ "modernc.org/sqlite"             // pure Go SQLite driver "sqlite"

	"github.com/olegiv/translatables/internal/translatable"
)

//go:embed migrations
var migrations embed.FS

// DBConfig holds connection pool options.
type DBConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultDBConfig returns sensible pool defaults.
func DefaultDBConfig() DBConfig {
	return DBConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

// Open connects to the database named by driver and dsn.
func Open(driver, dsn string) (*sql.DB, error) {
	return OpenWithConfig(driver, dsn, DefaultDBConfig())
}

// OpenWithConfig connects with custom pool options. SQLite connections get
// WAL and foreign keys; MySQL DSNs are forced to parse DATETIME columns.
func OpenWithConfig(driver, dsn string, cfg DBConfig) (*sql.DB, error) {
	d, err := translatable.DialectFor(driver)
	if err != nil {
		return nil, err
	}

	if d.Name() == "mysql" {
		mc, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parsing mysql DSN: %w", err)
		}
		mc.ParseTime = true
		mc.Loc = time.UTC
		dsn = mc.FormatDSN()
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if d.Name() == "sqlite" {
		pragmas := []string{
			"PRAGMA journal_mode=WAL",   // Write-Ahead Logging for better concurrency
			"PRAGMA busy_timeout=5000",  // Wait 5s when database is locked
			"PRAGMA synchronous=NORMAL", // Good balance of safety and speed
			"PRAGMA foreign_keys=ON",    // Enforce foreign key constraints
			"PRAGMA temp_store=MEMORY",  // Store temp tables in memory
		}
		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
			}
		}
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// goose keeps its base FS and dialect in package state.
var migrateMu sync.Mutex

// Migrate runs all pending migrations for driver.
func Migrate(db *sql.DB, driver string) error {
	d, err := translatable.DialectFor(driver)
	if err != nil {
		return err
	}

	var gooseDialect string
	switch d.Name() {
	case "sqlite":
		gooseDialect = "sqlite3"
	case "mysql":
		gooseDialect = "mysql"
	default:
		gooseDialect = "postgres"
	}

	dir, err := fs.Sub(migrations, "migrations/"+d.Name())
	if err != nil {
		return fmt.Errorf("locating migrations: %w", err)
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(dir)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
