package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/go-redis/redis/v8"
)

type Producer struct {
	client *redis.Client
	cfg    *config.Config
}

func NewProducer(redisClient *RedisClient, cfg *config.Config) *Producer {
	return &Producer{
		client: redisClient.Client(),
		cfg:    cfg,
	}
}

// EnqueueImportJob pushes job onto the import queue, stamping EnqueuedAt when unset.
func (p *Producer) EnqueueImportJob(ctx context.Context, job model.ImportJobMessage) error {
	if job.JobID == "" || job.S3Key == "" {
		return errors.ValidationError{Field: "job_id", Value: job.JobID, Message: "job id and s3 key are required"}
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := p.client.LPush(ctx, p.cfg.Redis.ImportQueue, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue import job %s: %w", job.JobID, err)
	}
	return nil
}

// Pending returns the number of import jobs waiting in the queue.
func (p *Producer) Pending(ctx context.Context) (int64, error) {
	return p.client.LLen(ctx, p.cfg.Redis.ImportQueue).Result()
}
