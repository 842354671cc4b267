package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/logger"

	"github.com/rs/zerolog"
)

// Job is one unit of work; Name only labels log lines.
type Job struct {
	Name string
	Run  func(context.Context) error
}

// WorkerPool runs jobs on a fixed number of goroutines. The queue holds at
// most one pending job per worker, so Submit applies backpressure.
type WorkerPool struct {
	workerCount int
	jobs        chan Job
	wg          sync.WaitGroup
	log         zerolog.Logger
}

func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
		jobs:        make(chan Job, workerCount),
		log:         logger.For("pool"),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Info().Int("worker_count", wp.workerCount).Msg("Starting worker pool")

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop waits for queued jobs to finish. No Submit may run concurrently.
func (wp *WorkerPool) Stop() {
	wp.log.Info().Msg("Stopping worker pool")
	close(wp.jobs)
	wp.wg.Wait()
	wp.log.Info().Msg("Worker pool stopped")
}

// Submit blocks until a worker slot accepts the job or ctx is done.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) error {
	select {
	case wp.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	log := wp.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Worker stopping due to context cancellation")
			return
		case job, ok := <-wp.jobs:
			if !ok {
				log.Debug().Msg("Worker stopping due to closed job channel")
				return
			}

			start := time.Now()
			if err := runJob(ctx, job); err != nil {
				log.Error().Err(err).Str("job", job.Name).Dur("duration", time.Since(start)).Msg("Job execution failed")
				continue
			}
			log.Debug().Str("job", job.Name).Dur("duration", time.Since(start)).Msg("Job finished")
		}
	}
}

// runJob turns a panic inside the job into an error so one bad file cannot
// take the worker down.
func runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
	}()
	return job.Run(ctx)
}
