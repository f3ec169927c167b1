// Package domain provides core business rules for the orders bounded context.
package domain

import (
	"fmt"

	"reprice_backend/platform/apperr"
)

// Status is a lead/order lifecycle state. A lead being "locked" is not a
// status: it is implied by the presence of a live lock row, which lets
// expiry be a pure delete instead of a status rollback.
type Status string

const (
	StatusLeadCreated      Status = "lead_created"
	StatusLeadPurchased    Status = "lead_purchased"
	StatusAssignedToAgent  Status = "assigned_to_agent"
	StatusAcceptedByAgent  Status = "accepted_by_agent"
	StatusRejectedByAgent  Status = "rejected_by_agent"
	StatusPickupScheduled  Status = "pickup_scheduled"
	StatusPickupCompleted  Status = "pickup_completed"
	StatusPaymentProcessed Status = "payment_processed"
	StatusCompleted        Status = "completed"
	StatusExpired          Status = "expired"
	StatusCancelled        Status = "cancelled"
)

// Event is a lifecycle transition trigger.
type Event string

const (
	EventPurchase       Event = "purchase"
	EventAssign         Event = "assign"
	EventReassign       Event = "reassign"
	EventAccept         Event = "accept"
	EventReject         Event = "reject"
	EventUnassign       Event = "unassign"
	EventSchedulePickup Event = "schedule_pickup"
	EventCompletePickup Event = "complete_pickup"
	EventProcessPayment Event = "process_payment"
	EventFinalize       Event = "finalize"
	EventCancel         Event = "cancel"
	EventExpire         Event = "expire"
)

type transitionKey struct {
	current Status
	event   Event
}

// transitions is the only authority on status changes. An (status, event)
// pair absent from this table is an InvalidTransition, no exceptions.
var transitions = map[transitionKey]Status{
	{StatusLeadCreated, EventPurchase}: StatusLeadPurchased,
	{StatusLeadCreated, EventCancel}:   StatusCancelled,
	{StatusLeadCreated, EventExpire}:   StatusExpired,

	{StatusLeadPurchased, EventAssign}: StatusAssignedToAgent,

	{StatusAssignedToAgent, EventAccept}:   StatusAcceptedByAgent,
	{StatusAssignedToAgent, EventReject}:   StatusRejectedByAgent,
	{StatusAssignedToAgent, EventReassign}: StatusAssignedToAgent,

	{StatusAcceptedByAgent, EventReassign}:       StatusAssignedToAgent,
	{StatusAcceptedByAgent, EventSchedulePickup}: StatusPickupScheduled,

	// A rejection returns the order to the re-assignable pool.
	{StatusRejectedByAgent, EventUnassign}: StatusLeadPurchased,

	{StatusPickupScheduled, EventCompletePickup}: StatusPickupCompleted,
	{StatusPickupCompleted, EventProcessPayment}: StatusPaymentProcessed,
	{StatusPaymentProcessed, EventFinalize}:      StatusCompleted,
}

// terminal statuses admit no further transitions.
var terminal = map[Status]bool{
	StatusCompleted: true,
	StatusCancelled: true,
}

// Next resolves the transition table for (current, event).
// It returns an InvalidTransition domain error when the pair is not allowed.
func Next(current Status, event Event) (Status, error) {
	next, ok := transitions[transitionKey{current, event}]
	if !ok {
		return "", apperr.NewCoded(apperr.KindConflict, "InvalidTransition",
			fmt.Sprintf("event %q is not valid for status %q", event, current))
	}
	return next, nil
}

// IsTerminal returns true when no event may move the order further.
func IsTerminal(status Status) bool {
	return terminal[status]
}

// Known reports whether the value is a recognized lifecycle status.
func Known(status Status) bool {
	switch status {
	case StatusLeadCreated, StatusLeadPurchased, StatusAssignedToAgent,
		StatusAcceptedByAgent, StatusRejectedByAgent, StatusPickupScheduled,
		StatusPickupCompleted, StatusPaymentProcessed, StatusCompleted,
		StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// ActorType identifies who drove a transition, recorded with status history.
type ActorType string

const (
	ActorPartner ActorType = "partner"
	ActorAgent   ActorType = "agent"
	ActorAdmin   ActorType = "admin"
	ActorSystem  ActorType = "system"
)
