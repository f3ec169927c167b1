// Package handler exposes the credits module over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"reprice_backend/internal/credits/service"
	"reprice_backend/internal/credits/transport"
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

// RegisterRoutes mounts partner-facing credit routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/balance", h.GetBalance)
	rg.GET("/transactions", h.ListTransactions)
	rg.GET("/plans", h.ListPlans)
	rg.POST("/purchase-plan", h.PurchasePlan)
}

func (h *Handler) GetBalance(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	balance, err := h.svc.Balance(c.Request.Context(), id.PartnerID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.BalanceResponse{PartnerID: id.PartnerID(), Balance: balance})
}

func (h *Handler) ListTransactions(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.svc.Transactions(c.Request.Context(), id.PartnerID(), limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, transport.ToLedgerEntryResponse(e))
	}
	httpkit.OK(c, gin.H{"transactions": items})
}

func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.svc.Plans(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.PlanResponse, 0, len(plans))
	for _, p := range plans {
		items = append(items, transport.ToPlanResponse(p))
	}
	httpkit.OK(c, gin.H{"plans": items})
}

func (h *Handler) PurchasePlan(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req transport.PurchasePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	plan, added, err := h.svc.PurchasePlan(c.Request.Context(), id.PartnerID(), req.PlanID)
	if httpkit.HandleError(c, err) {
		return
	}

	balance, err := h.svc.Balance(c.Request.Context(), id.PartnerID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.PurchasePlanResponse{
		Plan:         transport.ToPlanResponse(plan),
		CreditsAdded: added,
		NewBalance:   balance,
	})
}
