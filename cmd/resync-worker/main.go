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
	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/mirror"
	"github.com/d66d666/SchMang-sub000/internal/queue"
	"github.com/d66d666/SchMang-sub000/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting resync worker")

	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	repo := db.NewRepository(database)

	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	rosterMirror := mirror.NewRedisMirror(redisClient.Client(), repo, cfg.Redis.MirrorPrefix)
	redisClient.OnReconnect(rosterMirror.HandleReconnect)

	resyncWorker := worker.NewResyncWorker(cfg, rosterMirror)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := resyncWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal().Err(err).Msg("Resync worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down resync worker...")

	cancel()
	resyncWorker.Stop()

	log.Info().Msg("Resync worker exited")
}
