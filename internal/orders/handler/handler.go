// Package handler exposes the order book over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reprice_backend/internal/orders/domain"
	"reprice_backend/internal/orders/repository"
	"reprice_backend/internal/orders/service"
	"reprice_backend/internal/orders/transport"
	"reprice_backend/platform/httpkit"
	"reprice_backend/platform/validator"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAuthedRoutes mounts per-order reads; the service decides per
// order whether the caller may see it.
func (h *Handler) RegisterAuthedRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.GetOrder)
	rg.GET("/:id/history", h.GetHistory)
}

// RegisterPartnerRoutes mounts the partner's order list.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListOwned)
}

// RegisterAgentRoutes mounts the agent's work queue.
func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListAssigned)
}

// RegisterAdminRoutes mounts lead cancellation.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads/:id/cancel", h.CancelLead)
}

func viewer(id httpkit.Identity) service.Viewer {
	return service.Viewer{
		ActorID:   id.ActorID(),
		PartnerID: id.PartnerID(),
		IsAdmin:   id.Role() == httpkit.RoleAdmin,
		IsAgent:   id.Role() == httpkit.RoleAgent,
	}
}

func (h *Handler) GetOrder(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.svc.Order(c.Request.Context(), orderID, viewer(id))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToOrderResponse(order))
}

func (h *Handler) GetHistory(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	entries, err := h.svc.History(c.Request.Context(), orderID, viewer(id))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"history": transport.ToHistoryResponse(entries)})
}

func (h *Handler) ListOwned(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	filter := service.OwnedFilter{
		Unassigned: c.Query("unassigned") == "true",
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		filter.Status = &status
	}

	orders, err := h.svc.OwnedOrders(c.Request.Context(), id.PartnerID(), filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"orders": toResponses(orders)})
}

func (h *Handler) ListAssigned(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.svc.AgentOrders(c.Request.Context(), id.ActorID(), limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"orders": toResponses(orders)})
}

func (h *Handler) CancelLead(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req transport.CancelLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	if err := h.svc.Cancel(c.Request.Context(), orderID, id.ActorID(), req.Reason); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "lead cancelled"})
}

func toResponses(orders []repository.Order) []transport.OrderResponse {
	items := make([]transport.OrderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, transport.ToOrderResponse(o))
	}
	return items
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid order id", nil)
		return uuid.Nil, false
	}
	return orderID, true
}
