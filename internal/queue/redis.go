package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

type RedisClient struct {
	client *redis.Client
	cfg    *config.Config
	log    zerolog.Logger

	connected atomic.Bool
	mu        sync.Mutex
	hooks     []ReconnectHook
}

func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	r := &RedisClient{
		cfg: cfg,
		log: logger.For("redis"),
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:      cfg.RedisAddr(),
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		PoolSize:  cfg.Redis.PoolSize,
		OnConnect: r.onConnect,
	})
	r.client = rdb

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return r, nil
}

// ReconnectHook runs on a newly dialed connection. Commands must go through
// cn; the pool is not usable while the dial is in progress.
type ReconnectHook func(ctx context.Context, cn *redis.Conn)

// OnReconnect registers fn to run whenever a connection is dialed after the
// first one. The pool also dials under load, so fn may run without an outage.
func (r *RedisClient) OnReconnect(fn ReconnectHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, fn)
}

func (r *RedisClient) onConnect(ctx context.Context, cn *redis.Conn) error {
	if r.connected.CompareAndSwap(false, true) {
		return nil
	}

	r.log.Info().Msg("Redis connection re-established")

	r.mu.Lock()
	hooks := append([]ReconnectHook(nil), r.hooks...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx, cn)
	}
	return nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) Client() *redis.Client {
	return r.client
}
