// Package holds provides the partner account hold domain module.
package holds

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"reprice_backend/internal/events"
	"reprice_backend/internal/holds/handler"
	"reprice_backend/internal/holds/repository"
	"reprice_backend/internal/holds/service"
	apphttp "reprice_backend/internal/http"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
	"reprice_backend/platform/validator"
)

// Module represents the holds domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new holds module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, m *metrics.Metrics, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, m, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "holds"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin)
	m.handler.RegisterPartnerRoutes(ctx.Partner.Group("/account"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
