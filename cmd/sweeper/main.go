// The sweeper binary runs expiry enforcement out of process: the asynq
// worker for exact-time tasks plus the ticker backstop. Deployments that
// skip it still converge through the api binary's in-process sweeper.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"reprice_backend/internal/events"
	holdsrepo "reprice_backend/internal/holds/repository"
	holdssvc "reprice_backend/internal/holds/service"
	locksrepo "reprice_backend/internal/locks/repository"
	lockssvc "reprice_backend/internal/locks/service"
	ordersrepo "reprice_backend/internal/orders/repository"
	"reprice_backend/internal/sweeper"
	"reprice_backend/platform/config"
	"reprice_backend/platform/db"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting sweeper", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	m := metrics.Registry("reprice")

	orders := ordersrepo.New(pool)
	locks := locksrepo.New(pool)
	holds := holdsrepo.New(pool)

	holdSvc := holdssvc.New(holds, eventBus, m, log)
	lockSvc := lockssvc.New(locks, orders, holdSvc, eventBus, m, log, cfg.GetLockTTL())

	sweep := sweeper.New(lockSvc, holdSvc, cfg.SweepInterval, m, log)
	go sweep.Run(ctx)
	log.Info("ticker sweep started", "interval", cfg.SweepInterval.String())

	if cfg.RedisURL != "" {
		worker, err := sweeper.NewWorker(cfg, lockSvc, holdSvc, log)
		if err != nil {
			log.Error("failed to initialize task worker", "error", err)
			panic("failed to initialize task worker: " + err.Error())
		}
		log.Info("task worker started", "queue", cfg.AsynqQueueName)
		worker.Run(ctx)
	} else {
		log.Warn("REDIS_URL not configured; running ticker sweep only")
		<-ctx.Done()
	}

	log.Info("sweeper stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
