// Package orders provides the order book module: the shared order store,
// the status state machine, and the read-side HTTP endpoints.
package orders

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "reprice_backend/internal/http"
	"reprice_backend/internal/orders/handler"
	"reprice_backend/internal/orders/repository"
	"reprice_backend/internal/orders/service"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/validator"
)

type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository *repository.Repository
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler:    handler.New(svc, val),
		service:    svc,
		repository: repo,
	}
}

func (m *Module) Name() string {
	return "orders"
}

func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the shared order store for sibling modules.
func (m *Module) Repository() *repository.Repository {
	return m.repository
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAuthedRoutes(ctx.Authed.Group("/orders"))
	m.handler.RegisterPartnerRoutes(ctx.Partner.Group("/orders"))
	m.handler.RegisterAgentRoutes(ctx.Agent.Group("/agent/orders"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
