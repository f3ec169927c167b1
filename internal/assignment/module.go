// Package assignment provides the fulfillment domain module: binding
// purchased leads to field agents and walking them through pickup and
// payout.
package assignment

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"reprice_backend/internal/assignment/handler"
	"reprice_backend/internal/assignment/repository"
	"reprice_backend/internal/assignment/service"
	"reprice_backend/internal/events"
	apphttp "reprice_backend/internal/http"
	ordersrepo "reprice_backend/internal/orders/repository"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
	"reprice_backend/platform/validator"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the fulfillment module. The agent directory, hold gate
// and refunder come from the partners, holds and credits modules.
func NewModule(pool *pgxpool.Pool, agents service.AgentDirectory, holdGate service.HoldGate,
	refunder service.Refunder, leadCostPercent float64, bus events.Bus, m *metrics.Metrics,
	log *logger.Logger, val *validator.Validator) *Module {

	orders := ordersrepo.New(pool)
	store := repository.New(pool, orders)
	svc := service.New(store, agents, holdGate, refunder, bus, m, log, leadCostPercent)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

func (m *Module) Name() string {
	return "assignment"
}

func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPartnerRoutes(ctx.Partner.Group("/orders"))
	m.handler.RegisterAgentRoutes(ctx.Agent.Group("/agent/orders"))
}

var _ apphttp.Module = (*Module)(nil)
