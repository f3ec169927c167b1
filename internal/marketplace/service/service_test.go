package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"reprice_backend/internal/events"
	locksrepo "reprice_backend/internal/locks/repository"
	"reprice_backend/internal/marketplace/repository"
	"reprice_backend/internal/orders/domain"
	ordersrepo "reprice_backend/internal/orders/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

type fakeOrderStore struct {
	orders  map[uuid.UUID]ordersrepo.Order
	history []ordersrepo.HistoryEntry
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[uuid.UUID]ordersrepo.Order)}
}

func (f *fakeOrderStore) Create(_ context.Context, o ordersrepo.Order) error {
	f.orders[o.ID] = o
	return nil
}

func (f *fakeOrderStore) GetByID(_ context.Context, id uuid.UUID) (ordersrepo.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return ordersrepo.Order{}, ordersrepo.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) ListAvailable(_ context.Context, _ ordersrepo.ListParams) ([]ordersrepo.Order, error) {
	items := make([]ordersrepo.Order, 0)
	for _, o := range f.orders {
		if o.Status == domain.StatusLeadCreated {
			items = append(items, o)
		}
	}
	return items, nil
}

func (f *fakeOrderStore) ListLockedByPartner(_ context.Context, _ uuid.UUID) ([]ordersrepo.Order, error) {
	return nil, nil
}

func (f *fakeOrderStore) AppendHistory(_ context.Context, e ordersrepo.HistoryEntry) error {
	f.history = append(f.history, e)
	return nil
}

type fakeSettler struct {
	err   error
	order ordersrepo.Order
}

func (f *fakeSettler) Purchase(_ context.Context, _, _ uuid.UUID, _ time.Time) (ordersrepo.Order, error) {
	if f.err != nil {
		return ordersrepo.Order{}, f.err
	}
	return f.order, nil
}

type fakeLockManager struct{}

func (fakeLockManager) Acquire(_ context.Context, leadID, partnerID uuid.UUID) (locksrepo.Lock, error) {
	return locksrepo.Lock{LeadID: leadID, PartnerID: partnerID}, nil
}
func (fakeLockManager) Release(_ context.Context, _, _ uuid.UUID) error { return nil }
func (fakeLockManager) Owned(_ context.Context, _, _ uuid.UUID) (locksrepo.Lock, bool, error) {
	return locksrepo.Lock{}, false, nil
}

type fakeBalances struct {
	balance int64
}

func (f *fakeBalances) Balance(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.balance, nil
}

func newMarketplace(orders OrderStore, settler Settler, balance int64) *Service {
	log := logger.New("development")
	return New(orders, settler, fakeLockManager{}, &fakeBalances{balance: balance},
		events.NewInMemoryBus(log), metrics.Registry("test"), log, 15.0)
}

func TestLeadCostPercentage(t *testing.T) {
	svc := newMarketplace(newFakeOrderStore(), &fakeSettler{}, 0)

	tests := []struct {
		estimated int64
		want      int64
	}{
		{10000, 1500},
		{0, 0},
		{333, 50}, // 49.95 rounds up
		{1, 0},    // 0.15 rounds down
	}
	for _, tt := range tests {
		if got := svc.LeadCost(tt.estimated); got != tt.want {
			t.Errorf("LeadCost(%d) = %d, want %d", tt.estimated, got, tt.want)
		}
	}
}

func TestIntakeDerivesLeadCost(t *testing.T) {
	store := newFakeOrderStore()
	svc := newMarketplace(store, &fakeSettler{}, 0)

	order, err := svc.Intake(context.Background(), IntakeParams{
		CustomerName:   "Asha Rao",
		CustomerPhone:  "+919812345670",
		PhoneName:      "Pixel 8",
		EstimatedPrice: 20000,
	})
	if err != nil {
		t.Fatalf("Intake() error = %v", err)
	}
	if order.LeadCost != 3000 {
		t.Errorf("LeadCost = %d, want 3000", order.LeadCost)
	}
	if order.Status != domain.StatusLeadCreated {
		t.Errorf("Status = %s, want lead_created", order.Status)
	}
	if len(store.history) != 1 || store.history[0].ToStatus != domain.StatusLeadCreated {
		t.Errorf("intake history = %+v", store.history)
	}
}

func TestIntakeRejectsNonPositivePrice(t *testing.T) {
	svc := newMarketplace(newFakeOrderStore(), &fakeSettler{}, 0)

	_, err := svc.Intake(context.Background(), IntakeParams{
		CustomerName:   "Asha Rao",
		CustomerPhone:  "+919812345670",
		PhoneName:      "Pixel 8",
		EstimatedPrice: 0,
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("Intake() error = %v, want KindValidation", err)
	}
}

func TestPurchaseErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantKind apperr.Kind
	}{
		{"hold active", &repository.HoldActiveError{Reason: "dispute"}, "HoldActive", apperr.KindLocked},
		{"no live lock", repository.ErrNoLiveLock, "LockExpired", apperr.KindGone},
		{"not purchasable", repository.ErrNotPurchasable, "LeadNotAvailable", apperr.KindGone},
		{"insufficient credits", repository.ErrInsufficientCredits, "InsufficientCredits", apperr.KindPaymentRequired},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, "", apperr.KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMarketplace(newFakeOrderStore(), &fakeSettler{err: tt.err}, 0)

			_, err := svc.Purchase(context.Background(), uuid.New(), uuid.New())
			if apperr.GetKind(err) != tt.wantKind {
				t.Errorf("kind = %v, want %v", apperr.GetKind(err), tt.wantKind)
			}
			if tt.wantCode != "" && !apperr.IsCode(err, tt.wantCode) {
				t.Errorf("code = %q, want %q", apperr.GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestPurchaseSuccess(t *testing.T) {
	leadID := uuid.New()
	partnerID := uuid.New()
	settled := ordersrepo.Order{
		ID:             leadID,
		Status:         domain.StatusLeadPurchased,
		OwnerPartnerID: &partnerID,
		LeadCost:       1500,
	}
	svc := newMarketplace(newFakeOrderStore(), &fakeSettler{order: settled}, 5000)

	order, err := svc.Purchase(context.Background(), leadID, partnerID)
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if order.Status != domain.StatusLeadPurchased {
		t.Errorf("Status = %s, want lead_purchased", order.Status)
	}
	if order.OwnerPartnerID == nil || *order.OwnerPartnerID != partnerID {
		t.Errorf("OwnerPartnerID = %v, want %s", order.OwnerPartnerID, partnerID)
	}
}

func TestGetPurchaseInfo(t *testing.T) {
	store := newFakeOrderStore()
	leadID := uuid.New()
	store.orders[leadID] = ordersrepo.Order{
		ID:       leadID,
		Status:   domain.StatusLeadCreated,
		LeadCost: 1500,
	}
	svc := newMarketplace(store, &fakeSettler{}, 1000)

	info, err := svc.GetPurchaseInfo(context.Background(), leadID, uuid.New())
	if err != nil {
		t.Fatalf("GetPurchaseInfo() error = %v", err)
	}
	if info.LeadCost != 1500 || info.Balance != 1000 {
		t.Errorf("info = %+v", info)
	}
	if info.CanAfford {
		t.Error("CanAfford = true with balance 1000 and cost 1500")
	}
	if info.HoldsLock {
		t.Error("HoldsLock = true without a lock")
	}
}
