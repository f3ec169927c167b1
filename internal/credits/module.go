// Package credits provides the partner credit account domain module.
package credits

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"reprice_backend/internal/credits/handler"
	"reprice_backend/internal/credits/repository"
	"reprice_backend/internal/credits/service"
	"reprice_backend/internal/events"
	apphttp "reprice_backend/internal/http"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
	"reprice_backend/platform/validator"
)

// Module represents the credits domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new credits module with all dependencies wired
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
	return "credits"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	credits := ctx.Partner.Group("/credits")
	m.handler.RegisterRoutes(credits)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
