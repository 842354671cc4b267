package worker

import (
	"context"
	"time"

	"github.com/d66d666/SchMang-sub000/internal/config"
	"github.com/d66d666/SchMang-sub000/internal/logger"
	"github.com/d66d666/SchMang-sub000/internal/mirror"

	"github.com/rs/zerolog"
)

// staleCheckInterval bounds how long a reconnect can leave the mirror stale.
const staleCheckInterval = 5 * time.Second

// Resyncer rebuilds the mirror from the backing store.
type Resyncer interface {
	Resync(ctx context.Context) (*mirror.ResyncStats, error)
	Stale(ctx context.Context) (bool, error)
}

type ResyncWorker struct {
	cfg    *config.Config
	mirror Resyncer
	last   time.Time
	log    zerolog.Logger
}

func NewResyncWorker(cfg *config.Config, m Resyncer) *ResyncWorker {
	return &ResyncWorker{
		cfg:    cfg,
		mirror: m,
		log:    logger.For("resync"),
	}
}

func (w *ResyncWorker) Start(ctx context.Context) error {
	w.log.Info().Dur("interval", w.cfg.Workers.Resync.Interval).Msg("Starting resync worker")

	if w.cfg.Workers.Resync.RunOnStart {
		w.log.Info().Msg("Running initial resync on startup")
		w.resync(ctx)
	} else {
		w.last = time.Now()
	}

	check := staleCheckInterval
	if iv := w.cfg.Workers.Resync.Interval; iv > 0 && iv < check {
		check = iv
	}
	ticker := time.NewTicker(check)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Resync worker context cancelled")
			return ctx.Err()
		case now := <-ticker.C:
			if w.due(ctx, now) {
				w.resync(ctx)
			}
		}
	}
}

func (w *ResyncWorker) Stop() {
	w.log.Info().Msg("Stopping resync worker")
}

func (w *ResyncWorker) due(ctx context.Context, now time.Time) bool {
	stale, err := w.mirror.Stale(ctx)
	if err != nil {
		w.log.Warn().Err(err).Msg("Failed to read mirror state")
	}
	if stale {
		return true
	}
	interval := w.cfg.Workers.Resync.Interval
	return interval > 0 && now.Sub(w.last) >= interval
}

func (w *ResyncWorker) resync(ctx context.Context) {
	if _, err := w.mirror.Resync(ctx); err != nil {
		w.log.Error().Err(err).Msg("Mirror resync failed")
		return
	}
	w.last = time.Now()
}
