// Package worker runs the periodic maintenance loop.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the part of the booking service the loop drives.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Archiver retires finished sessions.
type Archiver interface {
	ArchiveFinished(ctx context.Context) int
}

type Worker struct {
	sweeper  Sweeper
	archiver Archiver
	interval time.Duration
	log      *zap.Logger
}

func New(sweeper Sweeper, archiver Archiver, interval time.Duration, log *zap.Logger) *Worker {
	return &Worker{
		sweeper:  sweeper,
		archiver: archiver,
		interval: interval,
		log:      log.With(zap.String("worker", "sweeper")),
	}
}

// Run ticks until ctx is done. Each tick releases expired holds and archives
// finished sessions; neither can stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Sweeper started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Sweeper stopped")
			return nil
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

func (w *Worker) Tick(ctx context.Context) {
	released := w.sweeper.Sweep(ctx)
	archived := w.archiver.ArchiveFinished(ctx)
	if released > 0 || archived > 0 {
		w.log.Debug("Sweeper tick", zap.Int("released", released), zap.Int("archived", archived))
	}
}
