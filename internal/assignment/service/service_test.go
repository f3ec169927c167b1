package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/events"
	"reprice_backend/internal/orders/domain"
	ordersrepo "reprice_backend/internal/orders/repository"
	partnersrepo "reprice_backend/internal/partners/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

type fakeStore struct {
	orders map[uuid.UUID]ordersrepo.Order

	assigned   []uuid.UUID
	accepted   []uuid.UUID
	rejected   []uuid.UUID
	rejectNote *string
	scheduled  []ordersrepo.PickupSchedule
	completed  []ordersrepo.PickupOutcome
	payments   []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[uuid.UUID]ordersrepo.Order)}
}

func (f *fakeStore) Lead(_ context.Context, leadID uuid.UUID) (ordersrepo.Order, error) {
	o, ok := f.orders[leadID]
	if !ok {
		return ordersrepo.Order{}, ordersrepo.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) Assign(_ context.Context, leadID, agentID, _ uuid.UUID) error {
	o := f.orders[leadID]
	o.Status = domain.StatusAssignedToAgent
	o.AgentID = &agentID
	f.orders[leadID] = o
	f.assigned = append(f.assigned, agentID)
	return nil
}

func (f *fakeStore) Reassign(_ context.Context, leadID, agentID, _ uuid.UUID, _ domain.Status) error {
	o := f.orders[leadID]
	o.Status = domain.StatusAssignedToAgent
	o.AgentID = &agentID
	f.orders[leadID] = o
	f.assigned = append(f.assigned, agentID)
	return nil
}

func (f *fakeStore) Accept(_ context.Context, leadID, agentID uuid.UUID) error {
	o := f.orders[leadID]
	o.Status = domain.StatusAcceptedByAgent
	f.orders[leadID] = o
	f.accepted = append(f.accepted, agentID)
	return nil
}

func (f *fakeStore) Reject(_ context.Context, leadID, agentID uuid.UUID, note *string) error {
	o := f.orders[leadID]
	o.Status = domain.StatusLeadPurchased
	o.AgentID = nil
	f.orders[leadID] = o
	f.rejected = append(f.rejected, agentID)
	f.rejectNote = note
	return nil
}

func (f *fakeStore) SchedulePickup(_ context.Context, leadID, _ uuid.UUID, sched ordersrepo.PickupSchedule) error {
	o := f.orders[leadID]
	o.Status = domain.StatusPickupScheduled
	f.orders[leadID] = o
	f.scheduled = append(f.scheduled, sched)
	return nil
}

func (f *fakeStore) CompletePickup(_ context.Context, leadID, _ uuid.UUID, outcome ordersrepo.PickupOutcome) error {
	o := f.orders[leadID]
	o.Status = domain.StatusPickupCompleted
	f.orders[leadID] = o
	f.completed = append(f.completed, outcome)
	return nil
}

func (f *fakeStore) ProcessPayment(_ context.Context, leadID, _ uuid.UUID, _ domain.ActorType, amount int64, _ string) error {
	o := f.orders[leadID]
	o.Status = domain.StatusCompleted
	f.orders[leadID] = o
	f.payments = append(f.payments, amount)
	return nil
}

type fakeAgents struct {
	err error
}

func (f *fakeAgents) EligibleAgent(_ context.Context, partnerID, agentID uuid.UUID) (partnersrepo.Agent, error) {
	if f.err != nil {
		return partnersrepo.Agent{}, f.err
	}
	return partnersrepo.Agent{ID: agentID, PartnerID: partnerID, IsActive: true}, nil
}

type fakeHoldGate struct {
	err error
}

func (f *fakeHoldGate) Ensure(_ context.Context, _ uuid.UUID) error { return f.err }

type fakeRefunder struct {
	leadID uuid.UUID
	amount int64
	calls  int
}

func (f *fakeRefunder) RefundPartial(_ context.Context, leadID uuid.UUID, amount int64) (int64, error) {
	f.leadID = leadID
	f.amount = amount
	f.calls++
	return amount, nil
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	agents   *fakeAgents
	holdGate *fakeHoldGate
	refunder *fakeRefunder

	leadID    uuid.UUID
	partnerID uuid.UUID
	agentID   uuid.UUID
}

func newFixture(t *testing.T, status domain.Status) *fixture {
	t.Helper()
	f := &fixture{
		store:     newFakeStore(),
		agents:    &fakeAgents{},
		holdGate:  &fakeHoldGate{},
		refunder:  &fakeRefunder{},
		leadID:    uuid.New(),
		partnerID: uuid.New(),
		agentID:   uuid.New(),
	}
	log := logger.New("development")
	f.svc = New(f.store, f.agents, f.holdGate, f.refunder,
		events.NewInMemoryBus(log), metrics.Registry("test"), log, 15.0)

	order := ordersrepo.Order{
		ID:             f.leadID,
		Status:         status,
		OwnerPartnerID: &f.partnerID,
		EstimatedPrice: 10000,
		LeadCost:       1500,
	}
	if status != domain.StatusLeadPurchased {
		order.AgentID = &f.agentID
	}
	f.store.orders[f.leadID] = order
	return f
}

func TestAssignBindsAgent(t *testing.T) {
	f := newFixture(t, domain.StatusLeadPurchased)

	if err := f.svc.Assign(context.Background(), f.leadID, f.agentID, f.partnerID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(f.store.assigned) != 1 || f.store.assigned[0] != f.agentID {
		t.Fatalf("assigned agents = %v, want [%s]", f.store.assigned, f.agentID)
	}
}

func TestAssignRejectsForeignLead(t *testing.T) {
	f := newFixture(t, domain.StatusLeadPurchased)

	err := f.svc.Assign(context.Background(), f.leadID, f.agentID, uuid.New())
	if apperr.GetCode(err) != "NotOwner" {
		t.Fatalf("Assign on foreign lead = %v, want NotOwner", err)
	}
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("kind = %v, want forbidden", apperr.GetKind(err))
	}
}

func TestAssignRejectsWrongStatus(t *testing.T) {
	for _, status := range []domain.Status{
		domain.StatusLeadCreated,
		domain.StatusPickupScheduled,
		domain.StatusCompleted,
	} {
		f := newFixture(t, status)
		f.store.orders[f.leadID] = ordersrepo.Order{
			ID: f.leadID, Status: status, OwnerPartnerID: &f.partnerID,
		}

		err := f.svc.Assign(context.Background(), f.leadID, f.agentID, f.partnerID)
		if apperr.GetCode(err) != "InvalidTransition" {
			t.Fatalf("Assign from %q = %v, want InvalidTransition", status, err)
		}
	}
}

func TestAssignBlockedByHold(t *testing.T) {
	f := newFixture(t, domain.StatusLeadPurchased)
	f.holdGate.err = apperr.NewCoded(apperr.KindLocked, "HoldActive", "account is on hold")

	err := f.svc.Assign(context.Background(), f.leadID, f.agentID, f.partnerID)
	if apperr.GetCode(err) != "HoldActive" {
		t.Fatalf("Assign with hold = %v, want HoldActive", err)
	}
	if len(f.store.assigned) != 0 {
		t.Fatal("assignment happened despite hold")
	}
}

func TestAgentWorkFrozenByHold(t *testing.T) {
	f := newFixture(t, domain.StatusAssignedToAgent)
	f.holdGate.err = apperr.NewCoded(apperr.KindLocked, "HoldActive", "account is on hold")

	err := f.svc.Accept(context.Background(), f.leadID, f.agentID)
	if apperr.GetCode(err) != "HoldActive" {
		t.Fatalf("Accept with hold = %v, want HoldActive", err)
	}
	if len(f.store.accepted) != 0 {
		t.Fatal("accept happened despite hold")
	}
}

func TestAssignPropagatesAgentEligibility(t *testing.T) {
	f := newFixture(t, domain.StatusLeadPurchased)
	f.agents.err = apperr.NewCoded(apperr.KindConflict, "AgentInactive", "agent is deactivated")

	err := f.svc.Assign(context.Background(), f.leadID, f.agentID, f.partnerID)
	if apperr.GetCode(err) != "AgentInactive" {
		t.Fatalf("Assign with inactive agent = %v, want AgentInactive", err)
	}
}

func TestReassignFromAcceptedState(t *testing.T) {
	f := newFixture(t, domain.StatusAcceptedByAgent)
	replacement := uuid.New()

	if err := f.svc.Reassign(context.Background(), f.leadID, replacement, f.partnerID); err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if got := f.store.orders[f.leadID].Status; got != domain.StatusAssignedToAgent {
		t.Fatalf("status after reassign = %q, want %q", got, domain.StatusAssignedToAgent)
	}
}

func TestReassignToSameAgentConflicts(t *testing.T) {
	f := newFixture(t, domain.StatusAssignedToAgent)

	err := f.svc.Reassign(context.Background(), f.leadID, f.agentID, f.partnerID)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("Reassign to same agent = %v, want conflict", err)
	}
}

func TestAcceptRequiresAssignedAgent(t *testing.T) {
	f := newFixture(t, domain.StatusAssignedToAgent)

	err := f.svc.Accept(context.Background(), f.leadID, uuid.New())
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("Accept by stranger = %v, want forbidden", err)
	}

	if err := f.svc.Accept(context.Background(), f.leadID, f.agentID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got := f.store.orders[f.leadID].Status; got != domain.StatusAcceptedByAgent {
		t.Fatalf("status = %q, want %q", got, domain.StatusAcceptedByAgent)
	}
}

func TestRejectReturnsLeadToPool(t *testing.T) {
	f := newFixture(t, domain.StatusAssignedToAgent)

	if err := f.svc.Reject(context.Background(), f.leadID, f.agentID, "customer unreachable"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	order := f.store.orders[f.leadID]
	if order.Status != domain.StatusLeadPurchased {
		t.Fatalf("status = %q, want %q", order.Status, domain.StatusLeadPurchased)
	}
	if order.AgentID != nil {
		t.Fatal("agent still bound after rejection")
	}
	if f.store.rejectNote == nil || *f.store.rejectNote != "customer unreachable" {
		t.Fatalf("reject note = %v, want recorded", f.store.rejectNote)
	}
}

func TestRejectOnlyFromAssigned(t *testing.T) {
	f := newFixture(t, domain.StatusAcceptedByAgent)

	err := f.svc.Reject(context.Background(), f.leadID, f.agentID, "")
	if apperr.GetCode(err) != "InvalidTransition" {
		t.Fatalf("Reject from accepted = %v, want InvalidTransition", err)
	}
}

func TestSchedulePickupRequiresTime(t *testing.T) {
	f := newFixture(t, domain.StatusAcceptedByAgent)

	err := f.svc.SchedulePickup(context.Background(), f.leadID, f.agentID, SchedulePickupParams{})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("SchedulePickup without time = %v, want validation", err)
	}

	at := time.Now().Add(24 * time.Hour)
	if err := f.svc.SchedulePickup(context.Background(), f.leadID, f.agentID, SchedulePickupParams{PickupAt: at}); err != nil {
		t.Fatalf("SchedulePickup: %v", err)
	}
	if len(f.store.scheduled) != 1 || !f.store.scheduled[0].PickupAt.Equal(at) {
		t.Fatalf("scheduled = %+v, want pickup at %s", f.store.scheduled, at)
	}
}

func TestCompletePickupRefundsRenegotiatedDelta(t *testing.T) {
	f := newFixture(t, domain.StatusPickupScheduled)

	err := f.svc.CompletePickup(context.Background(), f.leadID, f.agentID, CompletePickupParams{
		ActualCondition:   "screen cracked",
		FinalOfferedPrice: 8000,
		CustomerAccepted:  true,
	})
	if err != nil {
		t.Fatalf("CompletePickup: %v", err)
	}
	// cost was 1500 on a 10000 estimate; 15% of 8000 is 1200
	if f.refunder.calls != 1 || f.refunder.amount != 300 {
		t.Fatalf("refund calls=%d amount=%d, want 1 call of 300", f.refunder.calls, f.refunder.amount)
	}
	if f.refunder.leadID != f.leadID {
		t.Fatalf("refund lead = %s, want %s", f.refunder.leadID, f.leadID)
	}
}

func TestCompletePickupNoRefundWhenDeclined(t *testing.T) {
	f := newFixture(t, domain.StatusPickupScheduled)

	err := f.svc.CompletePickup(context.Background(), f.leadID, f.agentID, CompletePickupParams{
		ActualCondition:   "as described",
		FinalOfferedPrice: 8000,
		CustomerAccepted:  false,
	})
	if err != nil {
		t.Fatalf("CompletePickup: %v", err)
	}
	if f.refunder.calls != 0 {
		t.Fatalf("refund calls = %d, want 0 when customer declined", f.refunder.calls)
	}
}

func TestCompletePickupNoRefundAtOrAboveEstimate(t *testing.T) {
	f := newFixture(t, domain.StatusPickupScheduled)

	err := f.svc.CompletePickup(context.Background(), f.leadID, f.agentID, CompletePickupParams{
		ActualCondition:   "better than described",
		FinalOfferedPrice: 11000,
		CustomerAccepted:  true,
	})
	if err != nil {
		t.Fatalf("CompletePickup: %v", err)
	}
	if f.refunder.calls != 0 {
		t.Fatalf("refund calls = %d, want 0 when price went up", f.refunder.calls)
	}
}

func TestCompletePickupValidatesInput(t *testing.T) {
	f := newFixture(t, domain.StatusPickupScheduled)

	err := f.svc.CompletePickup(context.Background(), f.leadID, f.agentID, CompletePickupParams{
		FinalOfferedPrice: 8000,
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("CompletePickup without condition = %v, want validation", err)
	}

	err = f.svc.CompletePickup(context.Background(), f.leadID, f.agentID, CompletePickupParams{
		ActualCondition:   "fine",
		FinalOfferedPrice: -1,
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("CompletePickup with negative price = %v, want validation", err)
	}
}

func TestProcessPaymentCompletesOrder(t *testing.T) {
	f := newFixture(t, domain.StatusPickupCompleted)

	err := f.svc.ProcessPayment(context.Background(), f.leadID, f.partnerID, 8000, "UPI-20260829-001")
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if got := f.store.orders[f.leadID].Status; got != domain.StatusCompleted {
		t.Fatalf("status = %q, want %q", got, domain.StatusCompleted)
	}
}

func TestProcessPaymentValidation(t *testing.T) {
	f := newFixture(t, domain.StatusPickupCompleted)

	if err := f.svc.ProcessPayment(context.Background(), f.leadID, f.partnerID, 0, "ref"); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("zero amount = %v, want validation", err)
	}
	if err := f.svc.ProcessPayment(context.Background(), f.leadID, f.partnerID, 8000, "  "); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("blank reference = %v, want validation", err)
	}
}

func TestProcessPaymentOnlyAfterPickup(t *testing.T) {
	f := newFixture(t, domain.StatusAcceptedByAgent)

	err := f.svc.ProcessPayment(context.Background(), f.leadID, f.partnerID, 8000, "ref-1")
	if apperr.GetCode(err) != "InvalidTransition" {
		t.Fatalf("ProcessPayment from accepted = %v, want InvalidTransition", err)
	}
}
