// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/olegiv/translatables/internal/i18n"
)

// supportedDrivers lists the database/sql driver names the store can open.
var supportedDrivers = []string{"sqlite", "sqlite3", "mysql", "pgx", "postgres"}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// Locales
	AcceptedLocales []string `env:"TRANSLATABLES_ACCEPTED_LOCALES" envDefault:"en,nl" envSeparator:","`
	DefaultLocale   string   `env:"TRANSLATABLES_DEFAULT_LOCALE"` // empty = first accepted locale

	// Database
	DBDriver    string `env:"TRANSLATABLES_DB_DRIVER" envDefault:"sqlite"`
	DBDSN       string `env:"TRANSLATABLES_DB_DSN" envDefault:"./data/translatables.db"`
	SoftDeletes bool   `env:"TRANSLATABLES_SOFT_DELETES" envDefault:"true"`

	// Cache configuration
	RedisURL     string        `env:"TRANSLATABLES_REDIS_URL"` // Optional Redis URL for the column cache
	CachePrefix  string        `env:"TRANSLATABLES_CACHE_PREFIX" envDefault:"translatables:"`
	ColumnsTTL   time.Duration `env:"TRANSLATABLES_COLUMNS_TTL" envDefault:"1h"`
	CacheMaxSize int           `env:"TRANSLATABLES_CACHE_MAX_SIZE" envDefault:"1000"`

	ServerHost string `env:"TRANSLATABLES_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"TRANSLATABLES_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"TRANSLATABLES_ENV" envDefault:"development"`
	LogLevel   string `env:"TRANSLATABLES_LOG_LEVEL" envDefault:"info"`

	DoSeed bool `env:"TRANSLATABLES_DO_SEED" envDefault:"false"` // Create demo products on an empty database
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// Locales builds the locale registry from the accepted and default locales.
func (c Config) Locales() (*i18n.Registry, error) {
	return i18n.NewRegistry(c.AcceptedLocales, c.DefaultLocale)
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.AcceptedLocales = normalizeLocales(cfg.AcceptedLocales)
	if len(cfg.AcceptedLocales) == 0 {
		return nil, fmt.Errorf("TRANSLATABLES_ACCEPTED_LOCALES must name at least one locale")
	}
	cfg.DefaultLocale = strings.TrimSpace(cfg.DefaultLocale)
	if cfg.DefaultLocale != "" && !slices.Contains(cfg.AcceptedLocales, cfg.DefaultLocale) {
		return nil, fmt.Errorf("TRANSLATABLES_DEFAULT_LOCALE %q is not an accepted locale %v",
			cfg.DefaultLocale, cfg.AcceptedLocales)
	}

	if !slices.Contains(supportedDrivers, cfg.DBDriver) {
		return nil, fmt.Errorf("TRANSLATABLES_DB_DRIVER %q is not supported; use one of %s",
			cfg.DBDriver, strings.Join(supportedDrivers, ", "))
	}
	if cfg.ColumnsTTL < 0 {
		return nil, fmt.Errorf("TRANSLATABLES_COLUMNS_TTL must not be negative")
	}

	return cfg, nil
}

// normalizeLocales trims entries and drops blanks and duplicates, keeping order.
func normalizeLocales(in []string) []string {
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.TrimSpace(l)
		if l == "" || slices.Contains(out, l) {
			continue
		}
		out = append(out, l)
	}
	return out
}
