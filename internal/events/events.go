// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"reprice_backend/platform/events"
	"reprice_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = events.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Reservation Domain Events
// =============================================================================

// LeadLocked is published when a partner acquires a reservation on a lead.
type LeadLocked struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	PartnerID uuid.UUID `json:"partnerId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (e LeadLocked) EventName() string { return "marketplace.lead.locked" }

// LeadLockReleased is published when a partner explicitly releases a lock.
type LeadLockReleased struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	PartnerID uuid.UUID `json:"partnerId"`
}

func (e LeadLockReleased) EventName() string { return "marketplace.lead.lock_released" }

// LeadLockExpired is published when the sweeper reaps a stale lock.
type LeadLockExpired struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	PartnerID uuid.UUID `json:"partnerId"`
}

func (e LeadLockExpired) EventName() string { return "marketplace.lead.lock_expired" }

// LeadPurchased is published after a successful purchase settlement.
type LeadPurchased struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	PartnerID uuid.UUID `json:"partnerId"`
	LeadCost  int64     `json:"leadCost"`
}

func (e LeadPurchased) EventName() string { return "marketplace.lead.purchased" }

// =============================================================================
// Settlement Domain Events
// =============================================================================

// CreditsRefunded is published when a refund entry lands on the ledger.
type CreditsRefunded struct {
	BaseEvent
	PartnerID uuid.UUID `json:"partnerId"`
	LeadID    uuid.UUID `json:"leadId"`
	Amount    int64     `json:"amount"`
}

func (e CreditsRefunded) EventName() string { return "credits.refunded" }

// =============================================================================
// Hold Domain Events
// =============================================================================

// PartnerHoldPlaced is published when an admin places an account hold.
type PartnerHoldPlaced struct {
	BaseEvent
	PartnerID       uuid.UUID  `json:"partnerId"`
	Reason          string     `json:"reason"`
	ScheduledLiftAt *time.Time `json:"scheduledLiftAt,omitempty"`
}

func (e PartnerHoldPlaced) EventName() string { return "holds.partner.placed" }

// PartnerHoldLifted is published when an account hold is lifted,
// manually or by the sweeper.
type PartnerHoldLifted struct {
	BaseEvent
	PartnerID  uuid.UUID `json:"partnerId"`
	LiftReason string    `json:"liftReason"`
	Auto       bool      `json:"auto"`
}

func (e PartnerHoldLifted) EventName() string { return "holds.partner.lifted" }

// =============================================================================
// Fulfillment Domain Events
// =============================================================================

// LeadAssigned is published when a purchased lead is bound to an agent.
type LeadAssigned struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	PartnerID uuid.UUID `json:"partnerId"`
	AgentID   uuid.UUID `json:"agentId"`
}

func (e LeadAssigned) EventName() string { return "assignment.lead.assigned" }

// PickupCompleted is published when an agent completes the pickup visit.
type PickupCompleted struct {
	BaseEvent
	LeadID            uuid.UUID `json:"leadId"`
	AgentID           uuid.UUID `json:"agentId"`
	FinalOfferedPrice int64     `json:"finalOfferedPrice"`
	CustomerAccepted  bool      `json:"customerAccepted"`
}

func (e PickupCompleted) EventName() string { return "assignment.pickup.completed" }
