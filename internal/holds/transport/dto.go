// Package transport defines request/response DTOs for the holds module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/holds/repository"
)

type PlaceHoldRequest struct {
	Reason           string     `json:"reason" validate:"required,min=10,max=500"`
	AdminDecidesLift bool       `json:"adminDecidesLift"`
	LiftDate         *time.Time `json:"liftDate,omitempty"`
}

type LiftHoldRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type HoldResponse struct {
	ID              uuid.UUID  `json:"id"`
	PartnerID       uuid.UUID  `json:"partnerId"`
	Reason          string     `json:"reason"`
	LiftMode        string     `json:"liftMode"`
	ScheduledLiftAt *time.Time `json:"scheduledLiftAt,omitempty"`
	PlacedAt        time.Time  `json:"placedAt"`
}

func ToHoldResponse(h repository.Hold) HoldResponse {
	return HoldResponse{
		ID:              h.ID,
		PartnerID:       h.PartnerID,
		Reason:          h.Reason,
		LiftMode:        string(h.LiftMode),
		ScheduledLiftAt: h.ScheduledLiftAt,
		PlacedAt:        h.PlacedAt,
	}
}

type HoldStatusResponse struct {
	OnHold bool          `json:"onHold"`
	Hold   *HoldResponse `json:"hold,omitempty"`
}
