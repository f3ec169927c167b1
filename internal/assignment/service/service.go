// Package service coordinates fulfillment after a purchase: binding a
// purchased lead to a field agent and walking the order through pickup
// and payout.
package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/assignment/repository"
	"reprice_backend/internal/events"
	"reprice_backend/internal/orders/domain"
	ordersrepo "reprice_backend/internal/orders/repository"
	partnersrepo "reprice_backend/internal/partners/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

// Store applies fulfillment transitions, each as one transaction with
// its history rows.
type Store interface {
	Lead(ctx context.Context, leadID uuid.UUID) (ordersrepo.Order, error)
	Assign(ctx context.Context, leadID, agentID, partnerID uuid.UUID) error
	Reassign(ctx context.Context, leadID, agentID, partnerID uuid.UUID, from domain.Status) error
	Accept(ctx context.Context, leadID, agentID uuid.UUID) error
	Reject(ctx context.Context, leadID, agentID uuid.UUID, note *string) error
	SchedulePickup(ctx context.Context, leadID, agentID uuid.UUID, sched ordersrepo.PickupSchedule) error
	CompletePickup(ctx context.Context, leadID, agentID uuid.UUID, outcome ordersrepo.PickupOutcome) error
	ProcessPayment(ctx context.Context, leadID, actorID uuid.UUID, actor domain.ActorType, amount int64, reference string) error
}

// AgentDirectory checks that an agent may receive work for a partner.
type AgentDirectory interface {
	EligibleAgent(ctx context.Context, partnerID, agentID uuid.UUID) (partnersrepo.Agent, error)
}

// HoldGate rejects marketplace-side operations for partners on hold.
type HoldGate interface {
	Ensure(ctx context.Context, partnerID uuid.UUID) error
}

// Refunder credits back part of a lead cost after renegotiation.
type Refunder interface {
	RefundPartial(ctx context.Context, leadID uuid.UUID, amount int64) (int64, error)
}

type Service struct {
	store           Store
	agents          AgentDirectory
	holdGate        HoldGate
	refunder        Refunder
	bus             events.Bus
	metrics         *metrics.Metrics
	log             *logger.Logger
	leadCostPercent float64
}

func New(store Store, agents AgentDirectory, holdGate HoldGate, refunder Refunder, bus events.Bus, m *metrics.Metrics, log *logger.Logger, leadCostPercent float64) *Service {
	return &Service{
		store:           store,
		agents:          agents,
		holdGate:        holdGate,
		refunder:        refunder,
		bus:             bus,
		metrics:         m,
		log:             log,
		leadCostPercent: leadCostPercent,
	}
}

func errInvalidTransition(current domain.Status, event domain.Event) *apperr.Error {
	return apperr.NewCoded(apperr.KindConflict, "InvalidTransition", "order does not allow this operation").
		WithDetails(map[string]string{"status": string(current), "event": string(event)})
}

func errNotOwner() *apperr.Error {
	return apperr.NewCoded(apperr.KindForbidden, "NotOwner", "lead belongs to a different partner")
}

// ownedLead loads the order and verifies the partner bought it.
func (s *Service) ownedLead(ctx context.Context, leadID, partnerID uuid.UUID) (ordersrepo.Order, error) {
	order, err := s.store.Lead(ctx, leadID)
	if errors.Is(err, ordersrepo.ErrNotFound) {
		return ordersrepo.Order{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return ordersrepo.Order{}, err
	}
	if order.OwnerPartnerID == nil || *order.OwnerPartnerID != partnerID {
		return ordersrepo.Order{}, errNotOwner()
	}
	return order, nil
}

// agentLead loads the order and verifies it is currently bound to the agent.
// A hold on the owning partner freezes the agent's work on the lead as well.
func (s *Service) agentLead(ctx context.Context, leadID, agentID uuid.UUID) (ordersrepo.Order, error) {
	order, err := s.store.Lead(ctx, leadID)
	if errors.Is(err, ordersrepo.ErrNotFound) {
		return ordersrepo.Order{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return ordersrepo.Order{}, err
	}
	if order.AgentID == nil || *order.AgentID != agentID {
		return ordersrepo.Order{}, apperr.NewCoded(apperr.KindForbidden, "NotOwner", "lead is not assigned to this agent")
	}
	if order.OwnerPartnerID != nil {
		if err := s.holdGate.Ensure(ctx, *order.OwnerPartnerID); err != nil {
			return ordersrepo.Order{}, err
		}
	}
	return order, nil
}

// Assign binds a purchased lead to one of the partner's active agents.
func (s *Service) Assign(ctx context.Context, leadID, agentID, partnerID uuid.UUID) error {
	if err := s.holdGate.Ensure(ctx, partnerID); err != nil {
		return err
	}
	order, err := s.ownedLead(ctx, leadID, partnerID)
	if err != nil {
		return err
	}
	if _, err := domain.Next(order.Status, domain.EventAssign); err != nil {
		return errInvalidTransition(order.Status, domain.EventAssign)
	}
	if _, err := s.agents.EligibleAgent(ctx, partnerID, agentID); err != nil {
		return err
	}

	if err := s.store.Assign(ctx, leadID, agentID, partnerID); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return errInvalidTransition(order.Status, domain.EventAssign)
		}
		return err
	}

	s.metrics.Fulfillment.WithLabelValues("assigned").Inc()
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		PartnerID: partnerID,
		AgentID:   agentID,
	})
	return nil
}

// Reassign moves an assigned or accepted lead to a different agent. The
// order returns to assigned_to_agent and the new agent must accept again.
func (s *Service) Reassign(ctx context.Context, leadID, agentID, partnerID uuid.UUID) error {
	if err := s.holdGate.Ensure(ctx, partnerID); err != nil {
		return err
	}
	order, err := s.ownedLead(ctx, leadID, partnerID)
	if err != nil {
		return err
	}
	if _, err := domain.Next(order.Status, domain.EventReassign); err != nil {
		return errInvalidTransition(order.Status, domain.EventReassign)
	}
	if order.AgentID != nil && *order.AgentID == agentID {
		return apperr.Conflict("lead is already assigned to this agent")
	}
	if _, err := s.agents.EligibleAgent(ctx, partnerID, agentID); err != nil {
		return err
	}

	if err := s.store.Reassign(ctx, leadID, agentID, partnerID, order.Status); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return errInvalidTransition(order.Status, domain.EventReassign)
		}
		return err
	}

	s.metrics.Fulfillment.WithLabelValues("reassigned").Inc()
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		PartnerID: partnerID,
		AgentID:   agentID,
	})
	return nil
}

func (s *Service) Accept(ctx context.Context, leadID, agentID uuid.UUID) error {
	order, err := s.agentLead(ctx, leadID, agentID)
	if err != nil {
		return err
	}
	if _, err := domain.Next(order.Status, domain.EventAccept); err != nil {
		return errInvalidTransition(order.Status, domain.EventAccept)
	}
	if err := s.store.Accept(ctx, leadID, agentID); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return errInvalidTransition(order.Status, domain.EventAccept)
		}
		return err
	}
	s.metrics.Fulfillment.WithLabelValues("accepted").Inc()
	return nil
}

// Reject puts the lead back in the partner's pool for reassignment.
func (s *Service) Reject(ctx context.Context, leadID, agentID uuid.UUID, note string) error {
	order, err := s.agentLead(ctx, leadID, agentID)
	if err != nil {
		return err
	}
	if _, err := domain.Next(order.Status, domain.EventReject); err != nil {
		return errInvalidTransition(order.Status, domain.EventReject)
	}

	var notePtr *string
	if trimmed := strings.TrimSpace(note); trimmed != "" {
		notePtr = &trimmed
	}
	if err := s.store.Reject(ctx, leadID, agentID, notePtr); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return errInvalidTransition(order.Status, domain.EventReject)
		}
		return err
	}
	s.metrics.Fulfillment.WithLabelValues("rejected").Inc()
	return nil
}

// SchedulePickupParams carries the visit plan. Address fields override the
// customer's intake address only when set.
type SchedulePickupParams struct {
	PickupAt time.Time
	Address  *string
	City     *string
	Pincode  *string
}

func (s *Service) SchedulePickup(ctx context.Context, leadID, agentID uuid.UUID, p SchedulePickupParams) error {
	if p.PickupAt.IsZero() {
		return apperr.Validation("pickup time is required")
	}
	order, err := s.agentLead(ctx, leadID, agentID)
	if err != nil {
		return err
	}
	if _, err := domain.Next(order.Status, domain.EventSchedulePickup); err != nil {
		return errInvalidTransition(order.Status, domain.EventSchedulePickup)
	}

	sched := ordersrepo.PickupSchedule{
		PickupAt: p.PickupAt,
		Address:  p.Address,
		City:     p.City,
		Pincode:  p.Pincode,
	}
	if err := s.store.SchedulePickup(ctx, leadID, agentID, sched); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return errInvalidTransition(order.Status, domain.EventSchedulePickup)
		}
		return err
	}
	s.metrics.Fulfillment.WithLabelValues("pickup_scheduled").Inc()
	return nil
}

// CompletePickupParams records the visit outcome. FinalOfferedPrice is the
// renegotiated figure after the agent inspects the device.
type CompletePickupParams struct {
	ActualCondition   string
	FinalOfferedPrice int64
	CustomerAccepted  bool
	Notes             *string
}

// CompletePickup records the inspection outcome. When the customer accepted
// a renegotiated price below the estimate, the difference in lead cost is
// refunded to the owning partner.
func (s *Service) CompletePickup(ctx context.Context, leadID, agentID uuid.UUID, p CompletePickupParams) error {
	if strings.TrimSpace(p.ActualCondition) == "" {
		return apperr.Validation("actual condition is required")
	}
	if p.FinalOfferedPrice < 0 {
		return apperr.Validation("final offered price cannot be negative")
	}
	order, err := s.agentLead(ctx, leadID, agentID)
	if err != nil {
		return err
	}
	if _, err := domain.Next(order.Status, domain.EventCompletePickup); err != nil {
		return errInvalidTransition(order.Status, domain.EventCompletePickup)
	}

	outcome := ordersrepo.PickupOutcome{
		ActualCondition:       p.ActualCondition,
		FinalOfferedPrice:     p.FinalOfferedPrice,
		CustomerAcceptedOffer: p.CustomerAccepted,
		Notes:                 p.Notes,
	}
	if err := s.store.CompletePickup(ctx, leadID, agentID, outcome); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return errInvalidTransition(order.Status, domain.EventCompletePickup)
		}
		return err
	}

	s.metrics.Fulfillment.WithLabelValues("pickup_completed").Inc()
	s.bus.Publish(ctx, events.PickupCompleted{
		BaseEvent:         events.NewBaseEvent(),
		LeadID:            leadID,
		AgentID:           agentID,
		FinalOfferedPrice: p.FinalOfferedPrice,
		CustomerAccepted:  p.CustomerAccepted,
	})

	s.reconcileLeadCost(ctx, order, p)
	return nil
}

// reconcileLeadCost refunds the partner the cost delta when renegotiation
// lowered the device price. The pickup itself already committed; a refund
// failure is logged and retried by support, never unwound.
func (s *Service) reconcileLeadCost(ctx context.Context, order ordersrepo.Order, p CompletePickupParams) {
	if !p.CustomerAccepted || p.FinalOfferedPrice >= order.EstimatedPrice {
		return
	}
	adjusted := s.leadCost(p.FinalOfferedPrice)
	diff := order.LeadCost - adjusted
	if diff <= 0 {
		return
	}
	if _, err := s.refunder.RefundPartial(ctx, order.ID, diff); err != nil {
		s.log.Error("lead cost reconciliation refund failed",
			"lead_id", order.ID.String(), "amount", diff, "error", err)
	}
}

func (s *Service) leadCost(estimatedPrice int64) int64 {
	if estimatedPrice <= 0 {
		return 0
	}
	return int64(math.Round(float64(estimatedPrice) * s.leadCostPercent / 100))
}

// ProcessPayment records the customer payout and finalizes the order.
func (s *Service) ProcessPayment(ctx context.Context, leadID, partnerID uuid.UUID, amount int64, reference string) error {
	if amount <= 0 {
		return apperr.Validation("payment amount must be positive")
	}
	if strings.TrimSpace(reference) == "" {
		return apperr.Validation("payment reference is required")
	}
	order, err := s.ownedLead(ctx, leadID, partnerID)
	if err != nil {
		return err
	}
	if _, err := domain.Next(order.Status, domain.EventProcessPayment); err != nil {
		return errInvalidTransition(order.Status, domain.EventProcessPayment)
	}

	if err := s.store.ProcessPayment(ctx, leadID, partnerID, domain.ActorPartner, amount, reference); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return errInvalidTransition(order.Status, domain.EventProcessPayment)
		}
		return err
	}
	s.metrics.Fulfillment.WithLabelValues("completed").Inc()
	return nil
}
