package main

import (
	"fmt"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/db"
	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/mirror"
	"github.com/d66d666/SchMang-sub000/internal/queue"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "importctl",
		Short:        "Roster import and mirror maintenance tools",
		SilenceUsage: true,
	}
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newResyncCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

// env holds the connections a subcommand opened; close releases them.
type env struct {
	cfg    *config.Config
	db     *sqlx.DB
	repo   db.Repository
	redis  *queue.RedisClient
	mirror *mirror.RedisMirror
}

func openEnv(withMirror bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	database, err := db.NewConnection(cfg)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, db: database, repo: db.NewRepository(database)}
	if !withMirror {
		return e, nil
	}

	redisClient, err := queue.NewRedisClient(cfg)
	if err != nil {
		database.Close()
		return nil, err
	}
	e.redis = redisClient
	e.mirror = mirror.NewRedisMirror(redisClient.Client(), e.repo, cfg.Redis.MirrorPrefix)
	redisClient.OnReconnect(e.mirror.HandleReconnect)
	return e, nil
}

func (e *env) close() {
	if e.redis != nil {
		e.redis.Close()
	}
	e.db.Close()
}
