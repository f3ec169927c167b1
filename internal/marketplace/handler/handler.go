// Package handler exposes the marketplace over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reprice_backend/internal/marketplace/service"
	"reprice_backend/internal/marketplace/transport"
	"reprice_backend/internal/orders/domain"
	ordersrepo "reprice_backend/internal/orders/repository"
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

// RegisterPartnerRoutes mounts the partner-facing marketplace routes.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListAvailable)
	rg.GET("/locked", h.ListLocked)
	rg.GET("/:id", h.GetLead)
	rg.GET("/:id/purchase-info", h.GetPurchaseInfo)
	rg.POST("/:id/lock", h.Lock)
	rg.DELETE("/:id/lock", h.Unlock)
	rg.POST("/:id/purchase", h.Purchase)
}

// RegisterAdminRoutes mounts lead intake.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.IntakeLead)
}

func (h *Handler) ListAvailable(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, err := h.svc.AvailableLeads(c.Request.Context(), ordersrepo.ListParams{Limit: limit, Offset: offset})
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadSummary, 0, len(leads))
	for _, o := range leads {
		items = append(items, transport.ToLeadSummary(o))
	}
	httpkit.OK(c, gin.H{"leads": items})
}

func (h *Handler) ListLocked(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leads, err := h.svc.LockedLeads(c.Request.Context(), id.PartnerID())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadDetail, 0, len(leads))
	for _, o := range leads {
		// A lock grants the contact details needed to decide on the buy.
		items = append(items, transport.ToLeadDetail(o))
	}
	httpkit.OK(c, gin.H{"leads": items})
}

func (h *Handler) GetLead(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	order, err := h.svc.Lead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	detail := transport.ToLeadDetail(order)
	if !h.canSeeContact(c, order) {
		detail = detail.Masked()
	}
	httpkit.OK(c, detail)
}

// canSeeContact: admins always, the owning partner after purchase, and a
// partner holding the live lock during the reservation window.
func (h *Handler) canSeeContact(c *gin.Context, order ordersrepo.Order) bool {
	id := httpkit.GetIdentity(c)
	if id.Role() == httpkit.RoleAdmin {
		return true
	}
	if order.OwnerPartnerID != nil && *order.OwnerPartnerID == id.PartnerID() {
		return true
	}
	if order.Status == domain.StatusLeadCreated {
		if _, owned, err := h.svc.LockOwned(c.Request.Context(), order.ID, id.PartnerID()); err == nil && owned {
			return true
		}
	}
	return false
}

func (h *Handler) GetPurchaseInfo(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	info, err := h.svc.GetPurchaseInfo(c.Request.Context(), leadID, id.PartnerID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.PurchaseInfoResponse{
		LeadID:        info.LeadID,
		LeadCost:      info.LeadCost,
		Balance:       info.Balance,
		CanAfford:     info.CanAfford,
		HoldsLock:     info.HoldsLock,
		LockExpiresAt: info.LockExpiresAt,
	})
}

func (h *Handler) Lock(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	lock, err := h.svc.Lock(c.Request.Context(), leadID, id.PartnerID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LockResponse{
		LeadID:    lock.LeadID,
		PartnerID: lock.PartnerID,
		ExpiresAt: lock.ExpiresAt,
	})
}

func (h *Handler) Unlock(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	if err := h.svc.Unlock(c.Request.Context(), leadID, id.PartnerID()); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"message": "lock released"})
}

func (h *Handler) Purchase(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	leadID, ok := parseLeadID(c)
	if !ok {
		return
	}

	order, err := h.svc.Purchase(c.Request.Context(), leadID, id.PartnerID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadDetail(order))
}

func (h *Handler) IntakeLead(c *gin.Context) {
	var req transport.IntakeLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	order, err := h.svc.Intake(c.Request.Context(), service.IntakeParams{
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		CustomerEmail:  req.CustomerEmail,
		PhoneName:      req.PhoneName,
		Brand:          req.Brand,
		Model:          req.Model,
		RAMGB:          req.RAMGB,
		StorageGB:      req.StorageGB,
		Variant:        req.Variant,
		Condition:      req.Condition,
		EstimatedPrice: req.EstimatedPrice,
		AddressLine:    req.AddressLine,
		City:           req.City,
		State:          req.State,
		Pincode:        req.Pincode,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToLeadDetail(order))
}

func parseLeadID(c *gin.Context) (uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return uuid.Nil, false
	}
	return leadID, true
}
