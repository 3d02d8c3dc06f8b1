package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"unismart/internal/attendance"
	"unismart/internal/config"
	"unismart/internal/logger"
	"unismart/internal/metrics"
	"unismart/internal/queue"
	"unismart/internal/store"
)

var version = "dev"

// Worker consumes scan events from the shared queue and verifies the records.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewWithServiceContext("unismart-worker", version, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend == "memory" {
		log.Error("worker needs QUEUE_BACKEND=redis; the api verifies in-process with the memory queue")
		os.Exit(1)
	}

	var db *store.DB
	var err error
	switch cfg.StorageBackend {
	case "postgres":
		db, err = store.NewDB(ctx, cfg.DatabaseURL)
	case "sqlite":
		db, err = store.NewSQLite(ctx, cfg.SQLitePath)
	default:
		log.Error("worker needs a shared STORAGE_BACKEND (postgres or sqlite)", "storage", cfg.StorageBackend)
		os.Exit(1)
	}
	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Warn("redis not reachable, consumer will retry", "addr", cfg.RedisAddr)
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		log.Error("metrics init failed", "error", err)
		os.Exit(1)
	}

	q := queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	verifier := attendance.NewVerifier(attendance.NewSQLRepository(db.Client), m, log, cfg.VerifyDelay)

	log.Info("worker started, waiting for messages", "queue", queue.DefaultKey)
	if err := verifier.Run(ctx, q); err != nil && ctx.Err() == nil {
		log.Error("verifier stopped", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
