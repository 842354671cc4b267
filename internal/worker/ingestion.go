package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/importer"
	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/model"
	"github.com/d66d666/SchMang-sub000/internal/queue"
	"github.com/d66d666/SchMang-sub000/internal/storage"
	"github.com/d66d666/SchMang-sub000/pkg/errors"

	"github.com/rs/zerolog"
)

// Importer runs one roster import.
type Importer interface {
	Import(ctx context.Context, filename string, data []byte, opts importer.Options) (*importer.Result, error)
}

// JobStore persists asynchronous import job state.
type JobStore interface {
	GetImportJob(ctx context.Context, id string) (*model.ImportJob, error)
	UpdateImportJob(ctx context.Context, job *model.ImportJob) error
}

// DeadLetterer parks a message that was acknowledged but could not be
// processed.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, message []byte) error
}

type IngestionWorker struct {
	cfg         *config.Config
	jobs        JobStore
	storage     storage.Storage
	importer    Importer
	consumer    *queue.Consumer
	deadLetters DeadLetterer
	workerPool  *WorkerPool
	log         zerolog.Logger
}

func NewIngestionWorker(
	cfg *config.Config,
	jobs JobStore,
	storage storage.Storage,
	importer Importer,
	redisClient *queue.RedisClient,
) *IngestionWorker {
	consumer := queue.NewConsumer(redisClient, cfg)
	return &IngestionWorker{
		cfg:         cfg,
		jobs:        jobs,
		storage:     storage,
		importer:    importer,
		consumer:    consumer,
		deadLetters: consumer,
		workerPool:  NewWorkerPool(cfg.Workers.Ingestion.Count),
		log:         logger.For("ingestion"),
	}
}

func (w *IngestionWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting ingestion worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeImportQueue(ctx, w.handleMessage)
}

func (w *IngestionWorker) Stop() {
	w.log.Info().Msg("Stopping ingestion worker")
	w.workerPool.Stop()
}

func (w *IngestionWorker) handleMessage(ctx context.Context, data []byte) error {
	var msg model.ImportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal import job")
		return err
	}

	event := w.log.Info().Str("job_id", msg.JobID).Str("kind", string(msg.Kind)).Str("s3_key", msg.S3Key)
	if !msg.EnqueuedAt.IsZero() {
		event = event.Dur("queued_for", time.Since(msg.EnqueuedAt))
	}
	event.Msg("Processing import job")

	return w.workerPool.Submit(ctx, Job{
		Name: "import:" + msg.JobID,
		Run: func(ctx context.Context) error {
			return w.processJob(ctx, msg, data)
		},
	})
}

// processJob moves the job from QUEUED to RUNNING and then to DONE or FAILED.
// Import failures are recorded on the job and not returned. When the job row
// cannot be loaded or claimed, raw goes to the dead letter queue.
func (w *IngestionWorker) processJob(ctx context.Context, msg model.ImportJobMessage, raw []byte) error {
	log := w.log.With().Str("job_id", msg.JobID).Logger()

	job, err := w.jobs.GetImportJob(ctx, msg.JobID)
	if err != nil {
		return w.reject(ctx, raw, fmt.Errorf("failed to load import job %s: %w", msg.JobID, err))
	}

	job.Status = model.JobStatusRunning
	if err := w.jobs.UpdateImportJob(ctx, job); err != nil {
		err = fmt.Errorf("failed to mark import job running: %w", err)
		message := err.Error()
		job.Status = model.JobStatusFailed
		job.Message = &message
		if ferr := w.jobs.UpdateImportJob(ctx, job); ferr != nil {
			log.Error().Err(ferr).Msg("Failed to mark import job failed")
		}
		return w.reject(ctx, raw, err)
	}

	result, err := w.runImport(ctx, msg)
	if err != nil {
		log.Error().Err(err).Msg("Import job failed")
		message := err.Error()
		job.Status = model.JobStatusFailed
		job.Message = &message
		return w.jobs.UpdateImportJob(ctx, job)
	}

	job.Status = model.JobStatusDone
	job.Message = &result.Message
	if result.Warning != "" {
		job.Warning = &result.Warning
	}
	job.Inserted = result.Inserted
	job.Updated = result.Updated
	job.Skipped = result.Skipped
	job.GroupsCreated = result.GroupsCreated

	if err := w.jobs.UpdateImportJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to update import job status")
		return err
	}

	log.Info().Int("inserted", result.Inserted).Int("updated", result.Updated).Msg("Import job completed")
	return nil
}

func (w *IngestionWorker) reject(ctx context.Context, raw []byte, cause error) error {
	w.log.Error().Err(cause).Msg("Import job could not be started, dead-lettering message")
	if w.deadLetters == nil {
		return cause
	}
	if err := w.deadLetters.DeadLetter(ctx, raw); err != nil {
		w.log.Error().Err(err).Msg("Failed to dead-letter import message")
	}
	return cause
}

func (w *IngestionWorker) runImport(ctx context.Context, msg model.ImportJobMessage) (*importer.Result, error) {
	data, err := w.storage.Get(ctx, msg.S3Key)
	if err != nil {
		return nil, err
	}

	opts := importer.Options{Kind: msg.Kind}
	if msg.OnDuplicate != "" {
		policy, ok := model.ParseDuplicatePolicy(msg.OnDuplicate)
		if !ok {
			return nil, errors.ValidationError{Field: "on_duplicate", Value: msg.OnDuplicate, Message: "expected first or last"}
		}
		opts.OnDuplicate = policy
	}

	return w.importer.Import(ctx, msg.Filename, data, opts)
}
