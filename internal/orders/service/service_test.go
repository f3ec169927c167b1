package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"reprice_backend/internal/orders/domain"
	"reprice_backend/internal/orders/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
)

type fakeStore struct {
	orders  map[uuid.UUID]repository.Order
	history map[uuid.UUID][]repository.HistoryEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  make(map[uuid.UUID]repository.Order),
		history: make(map[uuid.UUID][]repository.HistoryEntry),
	}
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return repository.Order{}, repository.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) ListByOwner(_ context.Context, partnerID uuid.UUID, filter repository.OwnedFilter) ([]repository.Order, error) {
	items := make([]repository.Order, 0)
	for _, o := range f.orders {
		if o.OwnerPartnerID == nil || *o.OwnerPartnerID != partnerID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.Unassigned && o.AgentID != nil {
			continue
		}
		items = append(items, o)
	}
	return items, nil
}

func (f *fakeStore) ListByAgent(_ context.Context, agentID uuid.UUID, _ repository.ListParams) ([]repository.Order, error) {
	items := make([]repository.Order, 0)
	for _, o := range f.orders {
		if o.AgentID != nil && *o.AgentID == agentID {
			items = append(items, o)
		}
	}
	return items, nil
}

func (f *fakeStore) ListHistory(_ context.Context, orderID uuid.UUID) ([]repository.HistoryEntry, error) {
	return f.history[orderID], nil
}

func (f *fakeStore) Cancel(_ context.Context, leadID, _ uuid.UUID, reason string) (bool, error) {
	o, ok := f.orders[leadID]
	if !ok || o.Status != domain.StatusLeadCreated {
		return false, nil
	}
	o.Status = domain.StatusCancelled
	o.CancellationReason = &reason
	f.orders[leadID] = o
	return true, nil
}

type fakeCache struct {
	invalidations int
}

func (f *fakeCache) Invalidate(_ context.Context) error {
	f.invalidations++
	return nil
}

func seedOrder(store *fakeStore, status domain.Status, owner, agent *uuid.UUID) uuid.UUID {
	id := uuid.New()
	store.orders[id] = repository.Order{
		ID:             id,
		Status:         status,
		OwnerPartnerID: owner,
		AgentID:        agent,
	}
	return id
}

func TestOrderVisibility(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("development"))

	partnerID := uuid.New()
	agentID := uuid.New()
	orderID := seedOrder(store, domain.StatusAssignedToAgent, &partnerID, &agentID)

	tests := []struct {
		name    string
		viewer  Viewer
		wantErr bool
	}{
		{"admin", Viewer{ActorID: uuid.New(), IsAdmin: true}, false},
		{"owning partner", Viewer{ActorID: partnerID, PartnerID: partnerID}, false},
		{"assigned agent", Viewer{ActorID: agentID, IsAgent: true}, false},
		{"other partner", Viewer{ActorID: uuid.New(), PartnerID: uuid.New()}, true},
		{"other agent", Viewer{ActorID: uuid.New(), IsAgent: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Order(context.Background(), orderID, tt.viewer)
			if tt.wantErr {
				if apperr.GetKind(err) != apperr.KindNotFound {
					t.Fatalf("err = %v, want not found", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Order: %v", err)
			}
		})
	}
}

func TestOwnedOrdersFilters(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("development"))

	partnerID := uuid.New()
	agentID := uuid.New()
	seedOrder(store, domain.StatusLeadPurchased, &partnerID, nil)
	seedOrder(store, domain.StatusAssignedToAgent, &partnerID, &agentID)
	seedOrder(store, domain.StatusLeadPurchased, nil, nil)

	orders, err := svc.OwnedOrders(context.Background(), partnerID, OwnedFilter{})
	if err != nil {
		t.Fatalf("OwnedOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}

	orders, err = svc.OwnedOrders(context.Background(), partnerID, OwnedFilter{Unassigned: true})
	if err != nil {
		t.Fatalf("OwnedOrders unassigned: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d unassigned orders, want 1", len(orders))
	}

	bogus := domain.Status("shipped")
	if _, err := svc.OwnedOrders(context.Background(), partnerID, OwnedFilter{Status: &bogus}); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("unknown status filter = %v, want validation", err)
	}
}

func TestHistoryRequiresVisibility(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("development"))

	partnerID := uuid.New()
	orderID := seedOrder(store, domain.StatusLeadPurchased, &partnerID, nil)
	store.history[orderID] = []repository.HistoryEntry{
		{OrderID: orderID, ToStatus: domain.StatusLeadCreated, ActorType: domain.ActorAdmin},
		{OrderID: orderID, ToStatus: domain.StatusLeadPurchased, ActorType: domain.ActorPartner},
	}

	entries, err := svc.History(context.Background(), orderID, Viewer{PartnerID: partnerID})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	if _, err := svc.History(context.Background(), orderID, Viewer{PartnerID: uuid.New()}); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("foreign history = %v, want not found", err)
	}
}

func TestCancelOnlyUnsoldLeads(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("development"))
	cache := &fakeCache{}
	svc.SetCache(cache)
	adminID := uuid.New()

	unsold := seedOrder(store, domain.StatusLeadCreated, nil, nil)
	if err := svc.Cancel(context.Background(), unsold, adminID, "duplicate entry"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := store.orders[unsold].Status; got != domain.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", got)
	}
	if cache.invalidations != 1 {
		t.Fatalf("cache invalidations = %d, want 1", cache.invalidations)
	}

	partnerID := uuid.New()
	sold := seedOrder(store, domain.StatusLeadPurchased, &partnerID, nil)
	err := svc.Cancel(context.Background(), sold, adminID, "late regret")
	if apperr.GetCode(err) != "InvalidTransition" {
		t.Fatalf("Cancel sold lead = %v, want InvalidTransition", err)
	}

	if err := svc.Cancel(context.Background(), uuid.New(), adminID, "ghost"); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("Cancel missing lead = %v, want not found", err)
	}

	if err := svc.Cancel(context.Background(), unsold, adminID, "x"); apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("short reason = %v, want validation", err)
	}
}
