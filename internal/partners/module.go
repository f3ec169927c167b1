// Package partners provides the partner and agent registry domain module.
package partners

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "reprice_backend/internal/http"
	"reprice_backend/internal/partners/handler"
	"reprice_backend/internal/partners/repository"
	"reprice_backend/internal/partners/service"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/validator"
)

// Module represents the partners domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new partners module with all dependencies wired
func NewModule(pool *pgxpool.Pool, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "partners"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin)
	m.handler.RegisterPartnerRoutes(ctx.Partner.Group("/agents"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
