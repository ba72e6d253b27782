// Package main is the entry point for the course catalog server.
// It loads configuration, connects to services, sets up routing, and starts
// the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"coursecatalog/internal/cache"
	"coursecatalog/internal/config"
	"coursecatalog/internal/database"
	"coursecatalog/internal/handlers"
	"coursecatalog/internal/middleware"
	"coursecatalog/internal/render"
	"coursecatalog/internal/router"
	"coursecatalog/internal/session"
	"coursecatalog/internal/storage"
	"coursecatalog/internal/store"
)

// Login attempts allowed per client address and window.
const (
	loginAttempts = 10
	loginWindow   = time.Minute
)

func main() {
	// A local .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg))
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"storage", cfg.StorageDriver,
		"trust_proxy", cfg.TrustProxy,
	)

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed the admin account in development (no-op if it already exists).
	if cfg.IsDev() {
		if err := database.Seed(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	valkeyClient, err := cache.ConnectValkey(startCtx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	cancelStart()
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Outside development, session cookies are Secure (HTTPS-only).
	sessionStore := session.NewStore(valkeyClient, !cfg.IsDev())

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		slog.Error("failed to initialize template renderer", "error", err)
		os.Exit(1)
	}

	bucket, err := newBucket(cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	if !cfg.StorageEnabled() {
		slog.Warn("storage not configured, course image uploads disabled")
	}

	userStore := store.NewUserStore(db)
	categoryStore := store.NewCategoryStore(db)
	tagStore := store.NewTagStore(db)
	courseStore := store.NewCourseStore(db)
	clickStore := store.NewClickStore(db)

	pageCache := cache.NewPageCache(valkeyClient, cache.DefaultPageTTL)

	adminHandlers := handlers.NewAdmin(renderer, categoryStore, tagStore, courseStore, clickStore, bucket, pageCache)
	authHandlers := handlers.NewAuth(renderer, sessionStore, userStore)
	publicHandlers := handlers.NewPublic(renderer, categoryStore, courseStore, clickStore, pageCache, cfg.AnalyticsSalt)

	loginLimiter := middleware.NewRateLimiter(loginAttempts, loginWindow)
	defer loginLimiter.Stop()

	r := router.New(router.Options{
		Sessions:     sessionStore,
		LoginLimiter: loginLimiter,
		TrustProxy:   cfg.TrustProxy,
	}, adminHandlers, authHandlers, publicHandlers)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

// newLogger outputs text in development and JSON elsewhere, at the
// configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.IsDev() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// newBucket connects the configured storage driver. It returns nil when
// storage is disabled.
func newBucket(cfg *config.Config) (storage.Bucket, error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		return storage.NewS3(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.StorageBucket, cfg.S3PublicURL)
	case config.StorageSupabase:
		return storage.NewSupabase(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket)
	default:
		return nil, nil
	}
}
