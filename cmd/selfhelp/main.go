// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
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

	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/cache"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/config"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/handler"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/logging"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/middleware"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/scheduler"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/service"
	"github.com/humdek-unibe-ch/sh-selfhelp-backend-sub001/internal/store"
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

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "SelfHelp backend - page composition and versioning service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SELFHELP_DB_PATH           SQLite database path (default: ./data/selfhelp.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SELFHELP_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SELFHELP_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SELFHELP_REDIS_URL         Redis URL for distributed render caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  SELFHELP_VERSION_KEEP      Versions kept per page by retention (default: 0 = all)\n")
	}

	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("selfhelp %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	backend, err := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTLDuration(),
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = backend.Close() }()
	if cfg.UseRedisCache() {
		slog.Info("render cache initialized", "backend", "redis", "url", cfg.RedisURL)
	} else {
		slog.Info("render cache initialized", "backend", "memory")
	}
	renderCache := cache.NewRenderCache(backend, cfg.CacheTTLDuration())

	// Services
	dataService := service.NewDataService(db, logger)
	renderService := service.NewRenderService(db, dataService, nil, renderCache, logger)
	versionService := service.NewVersionService(db, renderCache, logger)
	changeService := service.NewChangeService(db, logger)
	diffService := service.NewDiffService(db)

	// Handlers
	renderHandler := handler.NewRenderHandler(db, renderService, versionService, cfg.DefaultTimezone, logger)
	versionHandler := handler.NewVersionHandler(versionService, changeService, diffService, logger)
	healthHandler := handler.NewHealthHandler(db)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitBurst)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Language(db))

		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.Handler)
			r.Get("/pages/{keyword}", renderHandler.RenderPage)
		})

		r.Route("/admin/pages/{id}", func(r chi.Router) {
			r.Get("/preview", renderHandler.PreviewDraft)
			r.Get("/changes", versionHandler.Changes)
			r.Post("/unpublish", versionHandler.UnpublishPage)

			r.Route("/versions", func(r chi.Router) {
				r.Get("/", versionHandler.ListVersions)
				r.Post("/", versionHandler.CreateVersion)
				r.Route("/{vid}", func(r chi.Router) {
					r.Delete("/", versionHandler.DeleteVersion)
					r.Post("/publish", versionHandler.PublishVersion)
					r.Get("/preview", renderHandler.PreviewVersion)
					r.Get("/compare/{v2}", versionHandler.CompareVersions)
					r.Get("/compare-draft", versionHandler.CompareDraft)
				})
			})
		})
	})

	// Retention scheduler
	sched := scheduler.New(db, versionService, cfg.VersionKeep, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
