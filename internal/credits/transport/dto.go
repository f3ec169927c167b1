// Package transport defines request/response DTOs for the credits module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/credits/repository"
)

type BalanceResponse struct {
	PartnerID uuid.UUID `json:"partnerId"`
	Balance   int64     `json:"balance"`
}

type LedgerEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	Delta         int64      `json:"delta"`
	Reason        string     `json:"reason"`
	RelatedLeadID *uuid.UUID `json:"relatedLeadId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func ToLedgerEntryResponse(e repository.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:            e.ID,
		Delta:         e.Delta,
		Reason:        string(e.Reason),
		RelatedLeadID: e.RelatedLeadID,
		CreatedAt:     e.CreatedAt,
	}
}

type PlanResponse struct {
	ID           uuid.UUID `json:"id"`
	PlanName     string    `json:"planName"`
	CreditAmount int64     `json:"creditAmount"`
	Price        int64     `json:"price"`
	BonusPercent float64   `json:"bonusPercent"`
	TotalCredits int64     `json:"totalCredits"`
	Description  *string   `json:"description,omitempty"`
}

func ToPlanResponse(p repository.Plan) PlanResponse {
	return PlanResponse{
		ID:           p.ID,
		PlanName:     p.PlanName,
		CreditAmount: p.CreditAmount,
		Price:        p.Price,
		BonusPercent: p.BonusPercent,
		TotalCredits: p.TotalCredits(),
		Description:  p.Description,
	}
}

type PurchasePlanRequest struct {
	PlanID uuid.UUID `json:"planId" validate:"required"`
}

type PurchasePlanResponse struct {
	Plan         PlanResponse `json:"plan"`
	CreditsAdded int64        `json:"creditsAdded"`
	NewBalance   int64        `json:"newBalance"`
}
