package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	popTimeout     = 5 * time.Second
	errorBackoff   = time.Second
	requeueTimeout = 5 * time.Second
)

type Consumer struct {
	client *redis.Client
	cfg    *config.Config
	log    zerolog.Logger
}

type MessageHandler func(ctx context.Context, data []byte) error

func NewConsumer(redisClient *RedisClient, cfg *config.Config) *Consumer {
	return &Consumer{
		client: redisClient.Client(),
		cfg:    cfg,
		log:    logger.For("consumer"),
	}
}

// ConsumeImportQueue blocks until ctx is done. Messages the handler rejects
// go to the dead letter queue; a message interrupted by shutdown goes back
// to the head of the queue.
func (c *Consumer) ConsumeImportQueue(ctx context.Context, handler MessageHandler) error {
	return c.consume(ctx, c.cfg.Redis.ImportQueue, handler)
}

func (c *Consumer) consume(ctx context.Context, queueName string, handler MessageHandler) error {
	log := c.log.With().Str("queue", queueName).Logger()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := c.client.BRPop(ctx, popTimeout, queueName).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to consume message")
			time.Sleep(errorBackoff)
			continue
		}

		if len(result) < 2 {
			continue
		}

		message := result[1]
		err = handler(ctx, []byte(message))
		switch {
		case err == nil:
		case ctx.Err() != nil:
			c.requeue(log, queueName, message)
		default:
			log.Error().Err(err).Msg("Failed to process message")
			if dlqErr := c.deadLetter(ctx, queueName, message); dlqErr != nil {
				log.Error().Err(dlqErr).Msg("Failed to move message to DLQ")
			}
		}
	}
}

// requeue pushes message back on the consuming end of the queue so it is the
// next one popped.
func (c *Consumer) requeue(log zerolog.Logger, queueName, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), requeueTimeout)
	defer cancel()

	if err := c.client.RPush(ctx, queueName, message).Err(); err != nil {
		log.Error().Err(err).Msg("Failed to requeue interrupted message")
		return
	}
	log.Info().Msg("Requeued message interrupted by shutdown")
}

// DeadLetter moves an import message to the dead letter queue after it was
// acknowledged, for failures found once processing has left the consumer.
// It still runs when ctx is already cancelled.
func (c *Consumer) DeadLetter(ctx context.Context, message []byte) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
	defer cancel()
	return c.deadLetter(ctx, c.cfg.Redis.ImportQueue, string(message))
}

func (c *Consumer) deadLetter(ctx context.Context, queueName, message string) error {
	dlqName := queueName + c.cfg.Redis.DLQSuffix
	if err := c.client.LPush(ctx, dlqName, message).Err(); err != nil {
		return fmt.Errorf("failed to push to %s: %w", dlqName, err)
	}
	return nil
}
