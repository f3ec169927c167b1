package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"reprice_backend/internal/credits/repository"
	"reprice_backend/internal/events"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

type fakeLedger struct {
	balances map[uuid.UUID]int64
	entries  []repository.LedgerEntry
	plans    map[uuid.UUID]repository.Plan
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[uuid.UUID]int64),
		plans:    make(map[uuid.UUID]repository.Plan),
	}
}

func (f *fakeLedger) Balance(_ context.Context, partnerID uuid.UUID) (int64, error) {
	return f.balances[partnerID], nil
}

func (f *fakeLedger) ListEntries(_ context.Context, partnerID uuid.UUID, _, _ int) ([]repository.LedgerEntry, error) {
	items := make([]repository.LedgerEntry, 0)
	for _, e := range f.entries {
		if e.PartnerID == partnerID {
			items = append(items, e)
		}
	}
	return items, nil
}

func (f *fakeLedger) SumEntries(_ context.Context, partnerID uuid.UUID) (int64, error) {
	var sum int64
	for _, e := range f.entries {
		if e.PartnerID == partnerID {
			sum += e.Delta
		}
	}
	return sum, nil
}

func (f *fakeLedger) ListActivePlans(_ context.Context) ([]repository.Plan, error) {
	items := make([]repository.Plan, 0, len(f.plans))
	for _, p := range f.plans {
		items = append(items, p)
	}
	return items, nil
}

func (f *fakeLedger) GetActivePlan(_ context.Context, id uuid.UUID) (repository.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return repository.Plan{}, repository.ErrPlanNotFound
	}
	return p, nil
}

func (f *fakeLedger) TopUp(_ context.Context, partnerID uuid.UUID, amount int64, entry repository.LedgerEntry) error {
	f.balances[partnerID] += amount
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLedger) Refund(_ context.Context, leadID uuid.UUID, amount int64) (repository.LedgerEntry, bool, error) {
	var purchase *repository.LedgerEntry
	for i := range f.entries {
		e := f.entries[i]
		if e.RelatedLeadID == nil || *e.RelatedLeadID != leadID {
			continue
		}
		if e.Reason == repository.ReasonRefund {
			return repository.LedgerEntry{}, false, nil
		}
		if e.Reason == repository.ReasonPurchase {
			purchase = &f.entries[i]
		}
	}
	if purchase == nil {
		return repository.LedgerEntry{}, false, repository.ErrNotFound
	}
	refund := -purchase.Delta
	if amount > 0 && amount < refund {
		refund = amount
	}
	entry := repository.LedgerEntry{
		ID:            uuid.New(),
		PartnerID:     purchase.PartnerID,
		Delta:         refund,
		Reason:        repository.ReasonRefund,
		RelatedLeadID: &leadID,
	}
	f.entries = append(f.entries, entry)
	f.balances[purchase.PartnerID] += entry.Delta
	return entry, true, nil
}

func newService(store Store) *Service {
	log := logger.New("development")
	return New(store, events.NewInMemoryBus(log), metrics.Registry("test"), log)
}

func TestPurchasePlanAppliesBonus(t *testing.T) {
	ledger := newFakeLedger()
	planID := uuid.New()
	ledger.plans[planID] = repository.Plan{
		ID:           planID,
		PlanName:     "Growth",
		CreditAmount: 1000,
		Price:        90000,
		BonusPercent: 10,
		IsActive:     true,
	}
	svc := newService(ledger)
	partnerID := uuid.New()

	_, total, err := svc.PurchasePlan(context.Background(), partnerID, planID)
	if err != nil {
		t.Fatalf("PurchasePlan() error = %v", err)
	}
	if total != 1100 {
		t.Errorf("total credits = %d, want 1100", total)
	}
	if ledger.balances[partnerID] != 1100 {
		t.Errorf("balance = %d, want 1100", ledger.balances[partnerID])
	}
}

func TestPurchasePlanUnknownPlan(t *testing.T) {
	svc := newService(newFakeLedger())

	_, _, err := svc.PurchasePlan(context.Background(), uuid.New(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("PurchasePlan() error = %v, want KindNotFound", err)
	}
}

func TestRefundIsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	partnerID := uuid.New()
	leadID := uuid.New()
	ledger.balances[partnerID] = 500
	ledger.entries = append(ledger.entries, repository.LedgerEntry{
		ID:            uuid.New(),
		PartnerID:     partnerID,
		Delta:         -150,
		Reason:        repository.ReasonPurchase,
		RelatedLeadID: &leadID,
	})
	svc := newService(ledger)

	amount, err := svc.Refund(context.Background(), leadID)
	if err != nil {
		t.Fatalf("first Refund() error = %v", err)
	}
	if amount != 150 {
		t.Errorf("refund amount = %d, want 150", amount)
	}
	if ledger.balances[partnerID] != 650 {
		t.Errorf("balance = %d, want 650", ledger.balances[partnerID])
	}

	amount, err = svc.Refund(context.Background(), leadID)
	if err != nil {
		t.Fatalf("second Refund() error = %v", err)
	}
	if amount != 0 {
		t.Errorf("second refund amount = %d, want 0", amount)
	}
	if ledger.balances[partnerID] != 650 {
		t.Errorf("balance after repeat refund = %d, want 650", ledger.balances[partnerID])
	}
}

func TestRefundPartialCapsAtPurchase(t *testing.T) {
	ledger := newFakeLedger()
	partnerID := uuid.New()
	leadID := uuid.New()
	ledger.entries = append(ledger.entries, repository.LedgerEntry{
		ID:            uuid.New(),
		PartnerID:     partnerID,
		Delta:         -200,
		Reason:        repository.ReasonPurchase,
		RelatedLeadID: &leadID,
	})
	svc := newService(ledger)

	amount, err := svc.RefundPartial(context.Background(), leadID, 75)
	if err != nil {
		t.Fatalf("RefundPartial() error = %v", err)
	}
	if amount != 75 {
		t.Errorf("refund amount = %d, want 75", amount)
	}

	if _, err := svc.RefundPartial(context.Background(), leadID, 0); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("RefundPartial(0) error = %v, want KindValidation", err)
	}
}

func TestRefundWithoutPurchase(t *testing.T) {
	svc := newService(newFakeLedger())

	_, err := svc.Refund(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("Refund() error = %v, want KindNotFound", err)
	}
}

func TestReconcileMatchesLedger(t *testing.T) {
	ledger := newFakeLedger()
	partnerID := uuid.New()
	ledger.balances[partnerID] = 350
	ledger.entries = append(ledger.entries,
		repository.LedgerEntry{PartnerID: partnerID, Delta: 500, Reason: repository.ReasonPlanTopup},
		repository.LedgerEntry{PartnerID: partnerID, Delta: -150, Reason: repository.ReasonPurchase},
	)
	svc := newService(ledger)

	balance, sum, err := svc.Reconcile(context.Background(), partnerID)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if balance != 350 || sum != 350 {
		t.Errorf("Reconcile() = (%d, %d), want (350, 350)", balance, sum)
	}
}
