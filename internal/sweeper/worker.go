package sweeper

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"reprice_backend/platform/config"
	"reprice_backend/platform/logger"
)

// LockReaper expires one reservation lock when its TTL task fires.
type LockReaper interface {
	ExpireLead(ctx context.Context, leadID uuid.UUID) (bool, error)
}

// HoldLifter lifts one scheduled hold when its lift task fires.
type HoldLifter interface {
	LiftScheduled(ctx context.Context, holdID, partnerID uuid.UUID) (bool, error)
}

// Worker consumes the exact-time expiry tasks. Handlers are idempotent;
// a task arriving after the ticker sweep already did the work is a no-op.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	locks  LockReaper
	holds  HoldLifter
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, locks LockReaper, holds HoldLifter, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		locks:  locks,
		holds:  holds,
		log:    log,
	}

	mux.HandleFunc(TaskLockExpire, w.handleLockExpire)
	mux.HandleFunc(TaskHoldLift, w.handleHoldLift)

	return w, nil
}

func (w *Worker) handleLockExpire(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLockExpirePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	expired, err := w.locks.ExpireLead(ctx, leadID)
	if err != nil {
		return err
	}
	if !expired {
		// Released, repurchased, or already swept.
		return nil
	}

	w.log.Info("lock expired by task", "lead_id", payload.LeadID)
	return nil
}

func (w *Worker) handleHoldLift(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseHoldLiftPayload(task)
	if err != nil {
		return err
	}

	holdID, err := uuid.Parse(payload.HoldID)
	if err != nil {
		return err
	}
	partnerID, err := uuid.Parse(payload.PartnerID)
	if err != nil {
		return err
	}

	lifted, err := w.holds.LiftScheduled(ctx, holdID, partnerID)
	if err != nil {
		return err
	}
	if !lifted {
		return nil
	}

	w.log.Info("hold lifted by task", "hold_id", payload.HoldID)
	return nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("sweeper worker stopped", "error", err)
	}
}
