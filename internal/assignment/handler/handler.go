// Package handler exposes fulfillment over HTTP: partner-side assignment
// and payment, agent-side accept/reject and pickup.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reprice_backend/internal/assignment/service"
	"reprice_backend/internal/assignment/transport"
	"reprice_backend/platform/httpkit"
	"reprice_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPartnerRoutes mounts assignment and payment for the owning partner.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/assign", h.Assign)
	rg.POST("/:id/reassign", h.Reassign)
	rg.POST("/:id/payment", h.ProcessPayment)
}

// RegisterAgentRoutes mounts the field agent's side of fulfillment.
func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/schedule-pickup", h.SchedulePickup)
	rg.POST("/:id/complete-pickup", h.CompletePickup)
}

func (h *Handler) Assign(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.svc.Assign(c.Request.Context(), leadID, req.AgentID, id.PartnerID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "lead assigned"})
}

func (h *Handler) Reassign(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.svc.Reassign(c.Request.Context(), leadID, req.AgentID, id.PartnerID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "lead reassigned"})
}

func (h *Handler) Accept(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseOrderID(c)
	if !ok {
		return
	}

	if err := h.svc.Accept(c.Request.Context(), leadID, id.ActorID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "assignment accepted"})
}

func (h *Handler) Reject(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req transport.RejectRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.svc.Reject(c.Request.Context(), leadID, id.ActorID(), req.Note); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "assignment rejected"})
}

func (h *Handler) SchedulePickup(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req transport.SchedulePickupRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.svc.SchedulePickup(c.Request.Context(), leadID, id.ActorID(), service.SchedulePickupParams{
		PickupAt: req.PickupAt,
		Address:  req.Address,
		City:     req.City,
		Pincode:  req.Pincode,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "pickup scheduled"})
}

func (h *Handler) CompletePickup(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req transport.CompletePickupRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.svc.CompletePickup(c.Request.Context(), leadID, id.ActorID(), service.CompletePickupParams{
		ActualCondition:   req.ActualCondition,
		FinalOfferedPrice: req.FinalOfferedPrice,
		CustomerAccepted:  req.CustomerAccepted,
		Notes:             req.Notes,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "pickup completed"})
}

func (h *Handler) ProcessPayment(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req transport.ProcessPaymentRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.svc.ProcessPayment(c.Request.Context(), leadID, id.PartnerID(), req.Amount, req.TransactionRef)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "payment recorded"})
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid order id", nil)
		return uuid.Nil, false
	}
	return orderID, true
}
