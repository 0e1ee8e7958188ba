// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/translatables/internal/cache"
	"github.com/olegiv/translatables/internal/config"
	"github.com/olegiv/translatables/internal/handler/api"
	"github.com/olegiv/translatables/internal/logging"
	"github.com/olegiv/translatables/internal/middleware"
	"github.com/olegiv/translatables/internal/store"
	"github.com/olegiv/translatables/internal/translatable"
	"github.com/olegiv/translatables/internal/version"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")
	seed := flag.Bool("seed", false, "Create demo products when the database is empty")
	migrateOnly := flag.Bool("migrate", false, "Run database migrations and exit")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "translatables - translated product catalog API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATABLES_ACCEPTED_LOCALES  Comma-separated locales (default: en,nl)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATABLES_DEFAULT_LOCALE    Fallback locale (default: first accepted)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATABLES_DB_DRIVER         sqlite|sqlite3|mysql|pgx (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATABLES_DB_DSN            Database DSN (default: ./data/translatables.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATABLES_SOFT_DELETES      Soft-delete products (default: true)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATABLES_REDIS_URL         Redis URL for the column cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATABLES_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  TRANSLATABLES_ENV               development|production (default: development)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}
	if *showVersion {
		_, _ = fmt.Printf("translatables %s\n", versionInfo)
		os.Exit(0)
	}

	if err := run(versionInfo, *seed, *migrateOnly); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(versionInfo version.Info, seed, migrateOnly bool) error {
	// Load .env files if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stdout, logging.ParseLevel(cfg.LogLevel), cfg.IsDevelopment())
	slog.SetDefault(logger)
	slog.Info("starting translatables", "version", versionInfo.String())

	locales, err := cfg.Locales()
	if err != nil {
		return fmt.Errorf("configuring locales: %w", err)
	}
	slog.Info("locales configured", "accepted", locales.Locales(), "default", locales.Default())

	if cfg.DBDriver == "sqlite" || cfg.DBDriver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}()

	slog.Info("running database migrations")
	if err := store.Migrate(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")
	if migrateOnly {
		return nil
	}

	cacher, backend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.ColumnsTTL,
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = cacher.Close() }()
	slog.Info("column cache initialized", "backend", backend)

	dialect, err := translatable.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}
	columns := translatable.NewCachedColumns(
		translatable.SchemaColumns{DB: db, Dialect: dialect}, cacher, cfg.ColumnsTTL)

	productModel, err := store.NewProductModel(store.ProductModelConfig{
		DB:          db,
		Driver:      cfg.DBDriver,
		Locales:     locales,
		Columns:     columns,
		SoftDeletes: cfg.SoftDeletes,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("configuring product translations: %w", err)
	}
	slog.Info("translations registered",
		"table", productModel.Table(), "translations_table", productModel.TranslationsTable(),
		"attributes", productModel.Localizable())
	// Migrations may have changed any side table since the listings were cached.
	if err := columns.InvalidateAll(context.Background()); err != nil {
		slog.Warn("failed to invalidate column cache", "error", err)
	}
	products := store.NewProductStore(db, productModel, logger)

	if seed || cfg.DoSeed {
		if err := store.Seed(context.Background(), products); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.Locale(locales))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := db.PingContext(req.Context()); err != nil {
			api.WriteError(w, http.StatusServiceUnavailable, "unavailable", "Database unreachable", nil)
			return
		}
		api.WriteSuccess(w, map[string]string{"status": "ok", "version": versionInfo.Version}, nil)
	})
	r.Route("/api/v1", api.NewHandler(products, columns, logger).Routes)
	slog.Info("REST API v1 mounted at /api/v1")

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
