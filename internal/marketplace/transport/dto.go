// Package transport defines request/response DTOs for the marketplace
// module. Customer contact details are masked until a partner owns the
// lead; the marketplace listing is a shop window, not a phone book.
package transport

import (
	"strings"
	"time"

	"github.com/google/uuid"

	ordersrepo "reprice_backend/internal/orders/repository"
)

type IntakeLeadRequest struct {
	CustomerName   string   `json:"customerName" validate:"required,min=2,max=100"`
	CustomerPhone  string   `json:"customerPhone" validate:"required,min=7,max=20"`
	CustomerEmail  *string  `json:"customerEmail,omitempty" validate:"omitempty,email"`
	PhoneName      string   `json:"phoneName" validate:"required,min=2,max=100"`
	Brand          *string  `json:"brand,omitempty" validate:"omitempty,max=50"`
	Model          *string  `json:"model,omitempty" validate:"omitempty,max=100"`
	RAMGB          *float64 `json:"ramGb,omitempty" validate:"omitempty,gt=0"`
	StorageGB      *float64 `json:"storageGb,omitempty" validate:"omitempty,gt=0"`
	Variant        *string  `json:"variant,omitempty" validate:"omitempty,max=50"`
	Condition      *string  `json:"condition,omitempty" validate:"omitempty,max=50"`
	EstimatedPrice int64    `json:"estimatedPrice" validate:"required,gt=0"`
	AddressLine    *string  `json:"addressLine,omitempty" validate:"omitempty,max=200"`
	City           *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	State          *string  `json:"state,omitempty" validate:"omitempty,max=100"`
	Pincode        *string  `json:"pincode,omitempty" validate:"omitempty,max=10"`
}

// LeadSummary is the marketplace listing shape. Customer identity is
// reduced to a first name and a masked phone number.
type LeadSummary struct {
	ID             uuid.UUID `json:"id"`
	CustomerName   string    `json:"customerName"`
	CustomerPhone  string    `json:"customerPhone"`
	PhoneName      string    `json:"phoneName"`
	Brand          *string   `json:"brand,omitempty"`
	Model          *string   `json:"model,omitempty"`
	Condition      *string   `json:"condition,omitempty"`
	EstimatedPrice int64     `json:"estimatedPrice"`
	LeadCost       int64     `json:"leadCost"`
	City           *string   `json:"city,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

func ToLeadSummary(o ordersrepo.Order) LeadSummary {
	return LeadSummary{
		ID:             o.ID,
		CustomerName:   firstName(o.CustomerName),
		CustomerPhone:  MaskPhone(o.CustomerPhone),
		PhoneName:      o.PhoneName,
		Brand:          o.Brand,
		Model:          o.Model,
		Condition:      o.Condition,
		EstimatedPrice: o.EstimatedPrice,
		LeadCost:       o.LeadCost,
		City:           o.PickupCity,
		CreatedAt:      o.CreatedAt,
	}
}

// LeadDetail is the full lead shape shown to the owning partner (and
// admins). Masked applies the listing redactions in place.
type LeadDetail struct {
	ID                 uuid.UUID  `json:"id"`
	CustomerName       string     `json:"customerName"`
	CustomerPhone      string     `json:"customerPhone"`
	CustomerEmail      *string    `json:"customerEmail,omitempty"`
	PhoneName          string     `json:"phoneName"`
	Brand              *string    `json:"brand,omitempty"`
	Model              *string    `json:"model,omitempty"`
	RAMGB              *float64   `json:"ramGb,omitempty"`
	StorageGB          *float64   `json:"storageGb,omitempty"`
	Variant            *string    `json:"variant,omitempty"`
	Condition          *string    `json:"condition,omitempty"`
	EstimatedPrice     int64      `json:"estimatedPrice"`
	LeadCost           int64      `json:"leadCost"`
	Status             string     `json:"status"`
	AgentID            *uuid.UUID `json:"agentId,omitempty"`
	PickupAddressLine  *string    `json:"pickupAddressLine,omitempty"`
	PickupCity         *string    `json:"pickupCity,omitempty"`
	PickupState        *string    `json:"pickupState,omitempty"`
	PickupPincode      *string    `json:"pickupPincode,omitempty"`
	PickupAt           *time.Time `json:"pickupAt,omitempty"`
	ActualCondition    *string    `json:"actualCondition,omitempty"`
	FinalOfferedPrice  *int64     `json:"finalOfferedPrice,omitempty"`
	PickupNotes        *string    `json:"pickupNotes,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	LockExpiresAt      *time.Time `json:"lockExpiresAt,omitempty"`
	PurchasedAt        *time.Time `json:"purchasedAt,omitempty"`
	AssignedAt         *time.Time `json:"assignedAt,omitempty"`
	AcceptedAt         *time.Time `json:"acceptedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	PaymentProcessedAt *time.Time `json:"paymentProcessedAt,omitempty"`
}

func ToLeadDetail(o ordersrepo.Order) LeadDetail {
	return LeadDetail{
		ID:                 o.ID,
		CustomerName:       o.CustomerName,
		CustomerPhone:      o.CustomerPhone,
		CustomerEmail:      o.CustomerEmail,
		PhoneName:          o.PhoneName,
		Brand:              o.Brand,
		Model:              o.Model,
		RAMGB:              o.RAMGB,
		StorageGB:          o.StorageGB,
		Variant:            o.Variant,
		Condition:          o.Condition,
		EstimatedPrice:     o.EstimatedPrice,
		LeadCost:           o.LeadCost,
		Status:             string(o.Status),
		AgentID:            o.AgentID,
		PickupAddressLine:  o.PickupAddressLine,
		PickupCity:         o.PickupCity,
		PickupState:        o.PickupState,
		PickupPincode:      o.PickupPincode,
		PickupAt:           o.PickupAt,
		ActualCondition:    o.ActualCondition,
		FinalOfferedPrice:  o.FinalOfferedPrice,
		PickupNotes:        o.PickupNotes,
		CreatedAt:          o.CreatedAt,
		LockExpiresAt:      o.LockExpiresAt,
		PurchasedAt:        o.PurchasedAt,
		AssignedAt:         o.AssignedAt,
		AcceptedAt:         o.AcceptedAt,
		CompletedAt:        o.CompletedAt,
		PaymentProcessedAt: o.PaymentProcessedAt,
	}
}

// Masked redacts customer contact details for non-owners.
func (d LeadDetail) Masked() LeadDetail {
	d.CustomerName = firstName(d.CustomerName)
	d.CustomerPhone = MaskPhone(d.CustomerPhone)
	d.CustomerEmail = nil
	d.PickupAddressLine = nil
	d.PickupPincode = nil
	return d
}

// MaskPhone keeps the last four digits visible.
func MaskPhone(phone string) string {
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits <= 4 {
		return phone
	}

	var b strings.Builder
	seen := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			seen++
			if seen <= digits-4 {
				b.WriteRune('*')
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func firstName(full string) string {
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

type LockResponse struct {
	LeadID    uuid.UUID `json:"leadId"`
	PartnerID uuid.UUID `json:"partnerId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type PurchaseInfoResponse struct {
	LeadID        uuid.UUID  `json:"leadId"`
	LeadCost      int64      `json:"leadCost"`
	Balance       int64      `json:"balance"`
	CanAfford     bool       `json:"canAfford"`
	HoldsLock     bool       `json:"holdsLock"`
	LockExpiresAt *time.Time `json:"lockExpiresAt,omitempty"`
}
