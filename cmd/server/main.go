package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"urlshortener/internal/cache"
	"urlshortener/internal/clickstream"
	"urlshortener/internal/codegen"
	"urlshortener/internal/config"
	"urlshortener/internal/handler"
	"urlshortener/internal/repository"
	"urlshortener/internal/service"
	"urlshortener/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Env)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("db ping")
	}

	repo := repository.NewRepo(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("ensure schema")
	}

	// Redis optional: without it lookups go straight to Postgres and clicks
	// fall back to direct increments instead of the batched stream.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis ping failed, running degraded")
			rdb = nil
		} else {
			logger.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
		}
	}

	var gen codegen.Generator
	switch cfg.CodeMode {
	case config.ModePositional:
		gen = codegen.Positional{}
	default:
		gen = codegen.NewSecure(cfg.CodeSecret)
	}

	var clicks service.ClickPublisher
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	if rdb != nil {
		clicks = clickstream.NewPublisher(rdb)
		consumer := clickstream.NewConsumer(rdb, repo, cfg.FlushInterval)
		go func() {
			defer close(consumerDone)
			consumer.Run(consumerCtx)
		}()
	} else {
		close(consumerDone)
	}

	svc := service.NewService(repo, repo, cache.New(rdb, cfg.CacheTTL), clicks, gen)
	h := handler.NewHandler(svc, cfg.AdminToken)

	allowed := handlers.AllowedOrigins([]string{"*"})
	allowedHeaders := handlers.AllowedHeaders([]string{"Content-Type", "X-Admin-Token"})
	allowedMethods := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handlers.CORS(allowed, allowedHeaders, allowedMethods)(h.Routes()),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("mode", cfg.CodeMode).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown")
	}

	stopConsumer()
	<-consumerDone

	if rdb != nil {
		_ = rdb.Close()
	}
	_ = db.Close()
	logger.Info().Msg("server gracefully stopped")
}
