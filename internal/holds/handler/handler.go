// Package handler exposes account hold administration over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reprice_backend/internal/holds/service"
	"reprice_backend/internal/holds/transport"
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

// RegisterAdminRoutes mounts hold administration under the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/partners/:id/hold", h.PlaceHold)
	rg.POST("/partners/:id/lift-hold", h.LiftHold)
	rg.GET("/partners/:id/hold", h.GetHold)
}

// RegisterPartnerRoutes mounts the partner's own hold status lookup.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.GET("/hold-status", h.GetOwnHoldStatus)
}

func (h *Handler) PlaceHold(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid partner id", nil)
		return
	}

	var req transport.PlaceHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	hold, err := h.svc.Place(c.Request.Context(), service.PlaceParams{
		PartnerID:        partnerID,
		PlacedBy:         id.ActorID(),
		Reason:           req.Reason,
		AdminDecidesLift: req.AdminDecidesLift,
		ScheduledLiftAt:  req.LiftDate,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToHoldResponse(hold))
}

func (h *Handler) LiftHold(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid partner id", nil)
		return
	}

	var req transport.LiftHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	if err := h.svc.Lift(c.Request.Context(), partnerID, req.Reason); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"message": "hold lifted"})
}

func (h *Handler) GetHold(c *gin.Context) {
	partnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid partner id", nil)
		return
	}

	h.respondStatus(c, partnerID)
}

func (h *Handler) GetOwnHoldStatus(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	h.respondStatus(c, id.PartnerID())
}

func (h *Handler) respondStatus(c *gin.Context, partnerID uuid.UUID) {
	hold, active, err := h.svc.Status(c.Request.Context(), partnerID)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.HoldStatusResponse{OnHold: active}
	if active {
		hr := transport.ToHoldResponse(hold)
		resp.Hold = &hr
	}
	httpkit.OK(c, resp)
}
