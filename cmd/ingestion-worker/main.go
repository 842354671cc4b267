package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/db"
	"github.com/d66d666/SchMang-sub000/internal/importer"
	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/mirror"
	"github.com/d66d666/SchMang-sub000/internal/queue"
	"github.com/d66d666/SchMang-sub000/internal/storage"
	"github.com/d66d666/SchMang-sub000/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		l := logger.Get()
		l.Error().Err(err).Msg("Ingestion worker stopped with error")
		os.Exit(1)
	}
}

// run blocks until ctx is cancelled. Jobs already handed to the pool finish
// before it returns.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.For("ingestion")
	log.Info().
		Str("version", cfg.App.Version).
		Int("workers", cfg.Workers.Ingestion.Count).
		Str("queue", cfg.Redis.ImportQueue).
		Msg("Starting roster ingestion worker")

	database, err := db.NewConnection(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	repo := db.NewRepository(database)

	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	rosterMirror := mirror.NewRedisMirror(redisClient.Client(), repo, cfg.Redis.MirrorPrefix)
	redisClient.OnReconnect(rosterMirror.HandleReconnect)

	uploads, err := storage.NewS3Storage(cfg)
	if err != nil {
		return fmt.Errorf("ingestion needs the upload bucket: %w", err)
	}

	ingestion := worker.NewIngestionWorker(cfg, repo, uploads, importer.NewService(cfg, repo, rosterMirror), redisClient)
	defer ingestion.Stop()

	if err := ingestion.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ingestion worker: %w", err)
	}

	log.Info().Msg("Queue consumer stopped, draining pool")
	return nil
}
