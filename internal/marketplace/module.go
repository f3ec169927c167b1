// Package marketplace provides the lead marketplace domain module:
// intake, listing, reservation locks, and purchase settlement.
package marketplace

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	creditsrepo "reprice_backend/internal/credits/repository"
	"reprice_backend/internal/events"
	holdsrepo "reprice_backend/internal/holds/repository"
	holdssvc "reprice_backend/internal/holds/service"
	apphttp "reprice_backend/internal/http"
	locksrepo "reprice_backend/internal/locks/repository"
	lockssvc "reprice_backend/internal/locks/service"
	"reprice_backend/internal/marketplace/cache"
	"reprice_backend/internal/marketplace/handler"
	"reprice_backend/internal/marketplace/repository"
	"reprice_backend/internal/marketplace/service"
	ordersrepo "reprice_backend/internal/orders/repository"
	"reprice_backend/platform/config"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
	"reprice_backend/platform/validator"
)

// Module represents the marketplace domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
	locks   *lockssvc.Service
}

// NewModule creates a new marketplace module with all dependencies wired.
// The locks service is built here because reservation is a marketplace
// concern; it is exposed for the sweeper and the composition root.
func NewModule(pool *pgxpool.Pool, rdb *redis.Client, cfg config.MarketplaceConfig,
	holdGate *holdssvc.Service, bus events.Bus, m *metrics.Metrics, log *logger.Logger,
	val *validator.Validator) *Module {

	orders := ordersrepo.New(pool)
	locks := locksrepo.New(pool)
	credits := creditsrepo.New(pool)
	holds := holdsrepo.New(pool)

	lockSvc := lockssvc.New(locks, orders, holdGate, bus, m, log, cfg.GetLockTTL())
	settler := repository.New(pool, orders, locks, credits, holds)
	svc := service.New(orders, settler, lockSvc, credits, bus, m, log, cfg.GetLeadCostPercent())
	if rdb != nil {
		svc.SetCache(cache.New(rdb, cfg.GetListingCacheTTL()))
	}

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		locks:   lockSvc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "marketplace"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// Locks returns the lock service for the sweeper and task worker.
func (m *Module) Locks() *lockssvc.Service {
	return m.locks
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Partner.Group("/leads")
	m.handler.RegisterPartnerRoutes(leads)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
