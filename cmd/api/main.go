package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/d66d666/SchMang-sub000/internal/api"
	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/db"
	"github.com/d66d666/SchMang-sub000/internal/importer"
	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/mirror"
	"github.com/d66d666/SchMang-sub000/internal/queue"
	"github.com/d66d666/SchMang-sub000/internal/storage"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/gin-gonic/gin"
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
		l.Error().Err(err).Msg("API server stopped with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.For("api")
	log.Info().Str("version", cfg.App.Version).Str("driver", cfg.Database.Driver).Msg("Starting roster import API")

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

	uploads, err := openUploads(cfg)
	if err != nil {
		return err
	}
	if uploads == nil {
		log.Warn().Msg("S3 bucket not configured, asynchronous import jobs disabled")
	}

	handler := api.NewHandler(cfg,
		importer.NewService(cfg, repo, rosterMirror),
		repo,
		queue.NewProducer(redisClient, cfg),
		uploads,
		rosterMirror,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(cfg, handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Listening")
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("Draining HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to drain http server: %w", err)
	}

	log.Info().Msg("API server stopped")
	return nil
}

// openUploads returns nil storage when no bucket is configured.
func openUploads(cfg *config.Config) (storage.Storage, error) {
	s3Storage, err := storage.NewS3Storage(cfg)
	if stderrors.Is(err, errors.ErrStorageUnavailable) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}
	return s3Storage, nil
}

func newRouter(cfg *config.Config, handler *api.Handler) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Import.MaxUploadBytes
	router.Use(api.CORSMiddleware(), api.LoggingMiddleware(), api.RecoveryMiddleware())
	api.SetupRoutes(router, handler)
	return router
}
