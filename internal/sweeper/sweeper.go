package sweeper

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

const sweepBatchSize = 200

// LockSweep reaps expired locks in batches.
type LockSweep interface {
	ReapExpired(ctx context.Context, limit int) (reaped, rowErrs int, err error)
}

// HoldSweep lifts scheduled holds whose lift date has passed.
type HoldSweep interface {
	LiftDue(ctx context.Context, limit int) (lifted, rowErrs int, err error)
}

// Sweeper is the ticker backstop behind the exact-time tasks. A dropped
// task delays cleanup by at most one sweep interval.
type Sweeper struct {
	locks    LockSweep
	holds    HoldSweep
	interval time.Duration
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func New(locks LockSweep, holds HoldSweep, interval time.Duration, m *metrics.Metrics, log *logger.Logger) *Sweeper {
	return &Sweeper{
		locks:    locks,
		holds:    holds,
		interval: interval,
		metrics:  m,
		log:      log,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.Sweep(ctx)
	}
}

// Sweep runs one pass over both tables concurrently. Each table is swept
// independently; a failure in one does not skip the other.
func (s *Sweeper) Sweep(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		reaped, rowErrs, err := s.locks.ReapExpired(ctx, sweepBatchSize)
		s.metrics.SweepPasses.WithLabelValues("locks").Inc()
		if err != nil {
			s.log.Error("lock sweep failed", "error", err)
		}
		if rowErrs > 0 {
			s.metrics.SweepRowErrors.WithLabelValues("locks").Add(float64(rowErrs))
		}
		if reaped > 0 {
			s.log.Info("expired locks reaped", "count", reaped)
		}
		return nil
	})

	g.Go(func() error {
		lifted, rowErrs, err := s.holds.LiftDue(ctx, sweepBatchSize)
		s.metrics.SweepPasses.WithLabelValues("holds").Inc()
		if err != nil {
			s.log.Error("hold sweep failed", "error", err)
		}
		if rowErrs > 0 {
			s.metrics.SweepRowErrors.WithLabelValues("holds").Add(float64(rowErrs))
		}
		if lifted > 0 {
			s.log.Info("scheduled holds lifted", "count", lifted)
		}
		return nil
	})

	_ = g.Wait()
}
