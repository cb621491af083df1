package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/burzacoroyale/backend/internal/api"
	"github.com/burzacoroyale/backend/internal/auth"
	"github.com/burzacoroyale/backend/internal/config"
	"github.com/burzacoroyale/backend/internal/database"
	"github.com/burzacoroyale/backend/internal/game"
	"github.com/burzacoroyale/backend/internal/metrics"
	"github.com/burzacoroyale/backend/internal/migrations"
	"github.com/burzacoroyale/backend/internal/players"
	"github.com/burzacoroyale/backend/internal/redis"
	"github.com/burzacoroyale/backend/internal/results"
	"github.com/burzacoroyale/backend/internal/ws"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database", "err", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		log.Info("Running DB migrations on startup")
		if err := migrations.RunMigrations(cfg.DatabaseURL, "migrations"); err != nil {
			log.Fatal("Failed to run migrations", "err", err)
		}
	}

	// Redis is optional: without it results are not archived and rate
	// limiting is off.
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Warn("Redis unavailable, continuing without it", "err", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store := players.NewStore(db)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL())
	archive := results.NewArchive(rdb, 0)

	hub := ws.NewHub()
	go hub.Run(ctx)

	mm := game.NewMatchManager(game.Deps{
		Store:    store,
		Notifier: hub,
		Archive:  archive,
		Metrics:  metrics.NewService(),
	}, game.Options{
		RoundDuration:  cfg.RoundDuration(),
		ResultDeadline: cfg.ResultDeadline(),
		SettledGrace:   cfg.MatchGrace(),
	})
	go mm.StartReaper(ctx, cfg.ReaperInterval())
	go archive.Watch(ctx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, api.Dependencies{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Players:  store,
		Tokens:   tokens,
		Matches:  mm,
		Results:  archive,
		WS:       ws.NewHandler(ctx, hub, mm, tokens, store),
		Gatherer: prometheus.DefaultGatherer,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Starting Burzaco Royale server", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "err", err)
	}
}
