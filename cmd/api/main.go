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
	"github.com/redis/go-redis/v9"

	"reprice_backend/internal/assignment"
	"reprice_backend/internal/credits"
	"reprice_backend/internal/events"
	"reprice_backend/internal/holds"
	apphttp "reprice_backend/internal/http"
	"reprice_backend/internal/http/router"
	"reprice_backend/internal/marketplace"
	"reprice_backend/internal/marketplace/cache"
	"reprice_backend/internal/orders"
	"reprice_backend/internal/partners"
	"reprice_backend/internal/sweeper"
	"reprice_backend/platform/config"
	"reprice_backend/platform/db"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
	"reprice_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	m := metrics.Registry("reprice")

	rdb := initRedis(cfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	partnersModule := partners.NewModule(pool, log, val)
	creditsModule := credits.NewModule(pool, eventBus, m, log, val)
	holdsModule := holds.NewModule(pool, eventBus, m, log, val)
	marketplaceModule := marketplace.NewModule(pool, rdb, cfg, holdsModule.Service(),
		eventBus, m, log, val)
	assignmentModule := assignment.NewModule(pool, partnersModule.Service(),
		holdsModule.Service(), creditsModule.Service(), cfg.GetLeadCostPercent(),
		eventBus, m, log, val)
	ordersModule := orders.NewModule(pool, log, val)
	if rdb != nil {
		// Admin cancels also invalidate the marketplace listing.
		ordersModule.Service().SetCache(cache.New(rdb, cfg.GetListingCacheTTL()))
	}

	// Exact-time expiry tasks ride asynq when redis is available; the
	// in-process sweeper below covers the gap either way.
	expiryScheduler, closeScheduler := initExpiryScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}
	if expiryScheduler != nil {
		marketplaceModule.Locks().SetScheduler(expiryScheduler)
		holdsModule.Service().SetScheduler(expiryScheduler)
	}

	sweep := sweeper.New(marketplaceModule.Locks(), holdsModule.Service(),
		cfg.SweepInterval, m, log)
	go sweep.Run(ctx)
	log.Info("sweeper started", "interval", cfg.SweepInterval.String())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			partnersModule,
			creditsModule,
			holdsModule,
			marketplaceModule,
			assignmentModule,
			ordersModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(cfg *config.Config, log *logger.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not configured; listing cache disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL; listing cache disabled", "error", err)
		return nil
	}
	return redis.NewClient(opt)
}

func initExpiryScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*sweeper.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; exact-time expiry tasks disabled")
		return nil, nil
	}

	client, err := sweeper.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize expiry scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
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
