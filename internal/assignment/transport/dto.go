// Package transport defines request DTOs for the fulfillment endpoints.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type AssignRequest struct {
	AgentID uuid.UUID `json:"agentId" validate:"required"`
}

type RejectRequest struct {
	Note string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type SchedulePickupRequest struct {
	PickupAt time.Time `json:"pickupAt" validate:"required"`
	Address  *string   `json:"address,omitempty" validate:"omitempty,max=200"`
	City     *string   `json:"city,omitempty" validate:"omitempty,max=100"`
	Pincode  *string   `json:"pincode,omitempty" validate:"omitempty,max=10"`
}

type CompletePickupRequest struct {
	ActualCondition   string  `json:"actualCondition" validate:"required,min=2,max=200"`
	FinalOfferedPrice int64   `json:"finalOfferedPrice" validate:"gte=0"`
	CustomerAccepted  bool    `json:"customerAccepted"`
	Notes             *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type ProcessPaymentRequest struct {
	Amount         int64  `json:"amount" validate:"required,gt=0"`
	TransactionRef string `json:"transactionRef" validate:"required,min=3,max=100"`
}
