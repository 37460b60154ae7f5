package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mcq-study/backend/internal/api"
	"github.com/mcq-study/backend/internal/content"
	"github.com/mcq-study/backend/internal/event"
	"github.com/mcq-study/backend/internal/identity"
	"github.com/mcq-study/backend/internal/platform/cache"
	"github.com/mcq-study/backend/internal/platform/config"
	"github.com/mcq-study/backend/internal/platform/database"
	"github.com/mcq-study/backend/internal/progress"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	contentStore, err := content.NewFSStore(cfg.ContentPath)
	if err != nil {
		slog.Error("failed to load chapter content", "path", cfg.ContentPath, "error", err)
		os.Exit(1)
	}
	checks := map[string]api.HealthChecker{}

	// Remote progress store. Without a database the ledger lives in memory
	// and is lost on restart.
	var (
		ledger progress.Store
		saved  progress.SavedStore
	)
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := progress.EnsureSchema(ctx, db.Pool); err != nil {
			slog.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		pgLedger, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			slog.Error("failed to create progress store", "error", err)
			os.Exit(1)
		}
		pgSaved, err := progress.NewPostgresSavedStore(db.Pool)
		if err != nil {
			slog.Error("failed to create saved store", "error", err)
			os.Exit(1)
		}
		ledger, saved = pgLedger, pgSaved
		checks["database"] = db
	} else {
		slog.Warn("no database configured, progress is in-memory only")
		ledger, saved = progress.NewMemoryStore(), progress.NewMemorySavedStore()
	}

	// Session cache. Redis when configured, process memory otherwise.
	var sessionCache progress.SessionCache
	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("failed to connect to cache", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		sessionCache = progress.NewRedisSessionCache(c.Client, cfg.Session.Freshness)
		checks["cache"] = c
	} else {
		slog.Warn("no cache configured, sessions are in-memory only")
		sessionCache = progress.NewMemorySessionCache()
	}

	sessions := progress.NewSynchronizer(sessionCache, ledger,
		progress.WithFreshness(cfg.Session.Freshness))
	defer sessions.Flush()

	hub := event.NewHub()
	defer hub.Close()
	publishers := event.MultiPublisher{hub}
	if cfg.Event.AMQPURL != "" {
		amqpPub, err := event.NewAMQPPublisher(cfg.Event.AMQPURL, cfg.Event.Exchange)
		if err != nil {
			slog.Error("failed to connect to event broker", "error", err)
			os.Exit(1)
		}
		defer amqpPub.Close()
		publishers = append(publishers, amqpPub)
	} else {
		slog.Warn("no event broker configured, events stay in-process")
	}

	var auth identity.Provider
	if cfg.Auth.JWTSecret != "" {
		auth, err = identity.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.AdminEmails)
		if err != nil {
			slog.Error("failed to create token verifier", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("no JWT secret configured, all requests are anonymous")
		auth = identity.StaticProvider{}
	}

	server := api.NewServer(api.Options{
		Content:  contentStore,
		Sessions: sessions,
		Ledger:   ledger,
		Saved:    saved,
		Auth:     auth,
		Events:   publishers,
		Hub:      hub,
		Checks:   checks,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.CORS.AllowOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// setupLogger installs the process-wide logger per config.
func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
