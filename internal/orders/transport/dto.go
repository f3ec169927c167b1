// Package transport defines response DTOs for the order book endpoints.
// Orders are only served to actors already cleared to see the customer,
// so nothing here is masked.
package transport

import (
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/orders/domain"
	"reprice_backend/internal/orders/repository"
)

type OrderResponse struct {
	ID                    uuid.UUID     `json:"id"`
	CustomerName          string        `json:"customerName"`
	CustomerPhone         string        `json:"customerPhone"`
	CustomerEmail         *string       `json:"customerEmail,omitempty"`
	PhoneName             string        `json:"phoneName"`
	Brand                 *string       `json:"brand,omitempty"`
	Model                 *string       `json:"model,omitempty"`
	Condition             *string       `json:"condition,omitempty"`
	EstimatedPrice        int64         `json:"estimatedPrice"`
	LeadCost              int64         `json:"leadCost"`
	Status                domain.Status `json:"status"`
	AgentID               *uuid.UUID    `json:"agentId,omitempty"`
	PickupAddressLine     *string       `json:"pickupAddressLine,omitempty"`
	PickupCity            *string       `json:"pickupCity,omitempty"`
	PickupState           *string       `json:"pickupState,omitempty"`
	PickupPincode         *string       `json:"pickupPincode,omitempty"`
	PickupAt              *time.Time    `json:"pickupAt,omitempty"`
	ActualCondition       *string       `json:"actualCondition,omitempty"`
	FinalOfferedPrice     *int64        `json:"finalOfferedPrice,omitempty"`
	CustomerAcceptedOffer *bool         `json:"customerAcceptedOffer,omitempty"`
	PickupNotes           *string       `json:"pickupNotes,omitempty"`
	PaymentAmount         *int64        `json:"paymentAmount,omitempty"`
	PaymentReference      *string       `json:"paymentReference,omitempty"`
	CancellationReason    *string       `json:"cancellationReason,omitempty"`
	CreatedAt             time.Time     `json:"createdAt"`
	PurchasedAt           *time.Time    `json:"purchasedAt,omitempty"`
	AssignedAt            *time.Time    `json:"assignedAt,omitempty"`
	AcceptedAt            *time.Time    `json:"acceptedAt,omitempty"`
	CompletedAt           *time.Time    `json:"completedAt,omitempty"`
	FinalizedAt           *time.Time    `json:"finalizedAt,omitempty"`
	CancelledAt           *time.Time    `json:"cancelledAt,omitempty"`
}

func ToOrderResponse(o repository.Order) OrderResponse {
	return OrderResponse{
		ID:                    o.ID,
		CustomerName:          o.CustomerName,
		CustomerPhone:         o.CustomerPhone,
		CustomerEmail:         o.CustomerEmail,
		PhoneName:             o.PhoneName,
		Brand:                 o.Brand,
		Model:                 o.Model,
		Condition:             o.Condition,
		EstimatedPrice:        o.EstimatedPrice,
		LeadCost:              o.LeadCost,
		Status:                o.Status,
		AgentID:               o.AgentID,
		PickupAddressLine:     o.PickupAddressLine,
		PickupCity:            o.PickupCity,
		PickupState:           o.PickupState,
		PickupPincode:         o.PickupPincode,
		PickupAt:              o.PickupAt,
		ActualCondition:       o.ActualCondition,
		FinalOfferedPrice:     o.FinalOfferedPrice,
		CustomerAcceptedOffer: o.CustomerAcceptedOffer,
		PickupNotes:           o.PickupNotes,
		PaymentAmount:         o.PaymentAmount,
		PaymentReference:      o.PaymentReference,
		CancellationReason:    o.CancellationReason,
		CreatedAt:             o.CreatedAt,
		PurchasedAt:           o.PurchasedAt,
		AssignedAt:            o.AssignedAt,
		AcceptedAt:            o.AcceptedAt,
		CompletedAt:           o.CompletedAt,
		FinalizedAt:           o.FinalizedAt,
		CancelledAt:           o.CancelledAt,
	}
}

type HistoryEntryResponse struct {
	FromStatus *domain.Status   `json:"fromStatus,omitempty"`
	ToStatus   domain.Status    `json:"toStatus"`
	ActorType  domain.ActorType `json:"actorType"`
	ActorID    *uuid.UUID       `json:"actorId,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
}

func ToHistoryResponse(entries []repository.HistoryEntry) []HistoryEntryResponse {
	items := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryEntryResponse{
			FromStatus: e.FromStatus,
			ToStatus:   e.ToStatus,
			ActorType:  e.ActorType,
			ActorID:    e.ActorID,
			Notes:      e.Notes,
			CreatedAt:  e.CreatedAt,
		})
	}
	return items
}

type CancelLeadRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}
