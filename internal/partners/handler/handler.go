// Package handler exposes the partner and agent registry over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reprice_backend/internal/partners/repository"
	"reprice_backend/internal/partners/service"
	"reprice_backend/internal/partners/transport"
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

// RegisterAdminRoutes mounts partner administration.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/partners", h.CreatePartner)
	rg.GET("/partners", h.ListPartners)
	rg.GET("/partners/:id", h.GetPartner)
	rg.PATCH("/partners/:id/active", h.SetPartnerActive)
}

// RegisterPartnerRoutes mounts agent management for the calling partner.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreateAgent)
	rg.GET("", h.ListAgents)
	rg.GET("/:id", h.GetAgent)
	rg.PATCH("/:id", h.UpdateAgent)
	rg.DELETE("/:id", h.DeactivateAgent)
}

func (h *Handler) CreatePartner(c *gin.Context) {
	var req transport.CreatePartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	partner, err := h.svc.CreatePartner(c.Request.Context(), service.CreatePartnerParams{
		CompanyName:  req.CompanyName,
		ContactName:  req.ContactName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToPartnerResponse(partner))
}

func (h *Handler) ListPartners(c *gin.Context) {
	partners, err := h.svc.ListPartners(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.PartnerResponse, 0, len(partners))
	for _, p := range partners {
		items = append(items, transport.ToPartnerResponse(p))
	}
	httpkit.OK(c, gin.H{"partners": items})
}

func (h *Handler) GetPartner(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid partner id", nil)
		return
	}

	partner, err := h.svc.GetPartner(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToPartnerResponse(partner))
}

func (h *Handler) SetPartnerActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid partner id", nil)
		return
	}

	var req struct {
		IsActive *bool `json:"isActive" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.SetPartnerActive(c.Request.Context(), id, *req.IsActive); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "partner updated"})
}

func (h *Handler) CreateAgent(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	agent, err := h.svc.CreateAgent(c.Request.Context(), service.CreateAgentParams{
		PartnerID:   id.PartnerID(),
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		EmployeeRef: req.EmployeeRef,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToAgentResponse(agent))
}

func (h *Handler) ListAgents(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	agents, err := h.svc.ListAgents(c.Request.Context(), id.PartnerID())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.AgentResponse, 0, len(agents))
	for _, a := range agents {
		items = append(items, transport.ToAgentResponse(a))
	}
	httpkit.OK(c, gin.H{"agents": items})
}

func (h *Handler) GetAgent(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid agent id", nil)
		return
	}

	agent, err := h.svc.GetAgent(c.Request.Context(), id.PartnerID(), agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAgentResponse(agent))
}

func (h *Handler) UpdateAgent(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid agent id", nil)
		return
	}

	var req transport.UpdateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	agent, err := h.svc.UpdateAgent(c.Request.Context(), id.PartnerID(), agentID, repository.AgentUpdate{
		FullName:    req.FullName,
		Phone:       req.Phone,
		EmployeeRef: req.EmployeeRef,
		IsActive:    req.IsActive,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAgentResponse(agent))
}

func (h *Handler) DeactivateAgent(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid agent id", nil)
		return
	}

	if err := h.svc.DeactivateAgent(c.Request.Context(), id.PartnerID(), agentID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "agent deactivated"})
}
