// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := strings.Join(cfg.AcceptedLocales, ","); got != "en,nl" {
		t.Errorf("AcceptedLocales = %q, want %q", got, "en,nl")
	}
	if cfg.DefaultLocale != "" {
		t.Errorf("DefaultLocale = %q, want empty", cfg.DefaultLocale)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, "sqlite")
	}
	if !cfg.SoftDeletes {
		t.Error("SoftDeletes should default to true")
	}
	if cfg.ColumnsTTL != time.Hour {
		t.Errorf("ColumnsTTL = %v, want %v", cfg.ColumnsTTL, time.Hour)
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "localhost:8080")
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() should be true by default")
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() should be false without a Redis URL")
	}

	locales, err := cfg.Locales()
	if err != nil {
		t.Fatalf("Locales() error: %v", err)
	}
	if locales.Default() != "en" {
		t.Errorf("default locale = %q, want %q", locales.Default(), "en")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	t.Setenv("TRANSLATABLES_ACCEPTED_LOCALES", " en , nl,de,nl,")
	t.Setenv("TRANSLATABLES_DEFAULT_LOCALE", "nl")
	t.Setenv("TRANSLATABLES_DB_DRIVER", "pgx")
	t.Setenv("TRANSLATABLES_DB_DSN", "postgres://localhost/catalog")
	t.Setenv("TRANSLATABLES_SOFT_DELETES", "false")
	t.Setenv("TRANSLATABLES_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TRANSLATABLES_COLUMNS_TTL", "5m")
	t.Setenv("TRANSLATABLES_SERVER_PORT", "3000")
	t.Setenv("TRANSLATABLES_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := strings.Join(cfg.AcceptedLocales, ","); got != "en,nl,de" {
		t.Errorf("AcceptedLocales = %q, want %q", got, "en,nl,de")
	}
	if cfg.DefaultLocale != "nl" {
		t.Errorf("DefaultLocale = %q, want %q", cfg.DefaultLocale, "nl")
	}
	if cfg.DBDriver != "pgx" || cfg.DBDSN != "postgres://localhost/catalog" {
		t.Errorf("DB = %q %q", cfg.DBDriver, cfg.DBDSN)
	}
	if cfg.SoftDeletes {
		t.Error("SoftDeletes should be false")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() should be true")
	}
	if cfg.ColumnsTTL != 5*time.Minute {
		t.Errorf("ColumnsTTL = %v, want 5m", cfg.ColumnsTTL)
	}
	if cfg.ServerPort != 3000 {
		t.Errorf("ServerPort = %d, want 3000", cfg.ServerPort)
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() should be false in production")
	}

	locales, err := cfg.Locales()
	if err != nil {
		t.Fatalf("Locales() error: %v", err)
	}
	if locales.Default() != "nl" {
		t.Errorf("default locale = %q, want %q", locales.Default(), "nl")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"no locales", map[string]string{"TRANSLATABLES_ACCEPTED_LOCALES": " , "}, "at least one locale"},
		{"unknown default", map[string]string{"TRANSLATABLES_DEFAULT_LOCALE": "fr"}, "not an accepted locale"},
		{"unknown driver", map[string]string{"TRANSLATABLES_DB_DRIVER": "oracle"}, "not supported"},
		{"negative ttl", map[string]string{"TRANSLATABLES_COLUMNS_TTL": "-1m"}, "must not be negative"},
		{"bad port", map[string]string{"TRANSLATABLES_SERVER_PORT": "http"}, "parsing config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}
