package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/events"
	"reprice_backend/internal/holds/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

type fakeHoldStore struct {
	holds map[uuid.UUID]repository.Hold // keyed by hold ID
}

func newFakeHoldStore() *fakeHoldStore {
	return &fakeHoldStore{holds: make(map[uuid.UUID]repository.Hold)}
}

func (f *fakeHoldStore) activeFor(partnerID uuid.UUID) (repository.Hold, bool) {
	for _, h := range f.holds {
		if h.PartnerID == partnerID && h.LiftedAt == nil {
			return h, true
		}
	}
	return repository.Hold{}, false
}

func (f *fakeHoldStore) Place(_ context.Context, h repository.Hold) error {
	if _, ok := f.activeFor(h.PartnerID); ok {
		return repository.ErrAlreadyOnHold
	}
	f.holds[h.ID] = h
	return nil
}

func (f *fakeHoldStore) Active(_ context.Context, partnerID uuid.UUID) (repository.Hold, error) {
	h, ok := f.activeFor(partnerID)
	if !ok {
		return repository.Hold{}, repository.ErrNoActiveHold
	}
	return h, nil
}

func (f *fakeHoldStore) Lift(_ context.Context, partnerID uuid.UUID, liftReason string) (bool, error) {
	h, ok := f.activeFor(partnerID)
	if !ok {
		return false, nil
	}
	now := time.Now()
	h.LiftedAt = &now
	h.LiftReason = &liftReason
	f.holds[h.ID] = h
	return true, nil
}

func (f *fakeHoldStore) LiftScheduledDue(_ context.Context, holdID uuid.UUID, now time.Time) (bool, error) {
	h, ok := f.holds[holdID]
	if !ok || h.LiftedAt != nil || h.LiftMode != repository.LiftScheduled ||
		h.ScheduledLiftAt == nil || h.ScheduledLiftAt.After(now) {
		return false, nil
	}
	reason := "auto: scheduled lift date reached"
	h.LiftedAt = &now
	h.LiftReason = &reason
	f.holds[holdID] = h
	return true, nil
}

func (f *fakeHoldStore) ListScheduledDue(_ context.Context, now time.Time, _ int) ([]repository.Hold, error) {
	due := make([]repository.Hold, 0)
	for _, h := range f.holds {
		if h.LiftedAt == nil && h.LiftMode == repository.LiftScheduled &&
			h.ScheduledLiftAt != nil && !h.ScheduledLiftAt.After(now) {
			due = append(due, h)
		}
	}
	return due, nil
}

func newHoldService(store Store, now time.Time) *Service {
	log := logger.New("development")
	svc := New(store, events.NewInMemoryBus(log), metrics.Registry("test"), log)
	svc.now = func() time.Time { return now }
	return svc
}

func TestPlaceManualHold(t *testing.T) {
	store := newFakeHoldStore()
	svc := newHoldService(store, time.Now())
	partnerID := uuid.New()

	hold, err := svc.Place(context.Background(), PlaceParams{
		PartnerID:        partnerID,
		PlacedBy:         uuid.New(),
		Reason:           "chargeback dispute pending",
		AdminDecidesLift: true,
	})
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if hold.LiftMode != repository.LiftManual {
		t.Errorf("LiftMode = %s, want manual", hold.LiftMode)
	}
	if err := svc.Ensure(context.Background(), partnerID); !apperr.IsCode(err, "HoldActive") {
		t.Errorf("Ensure() error = %v, want HoldActive", err)
	}
}

func TestPlaceRejectsSecondHold(t *testing.T) {
	store := newFakeHoldStore()
	svc := newHoldService(store, time.Now())
	partnerID := uuid.New()

	params := PlaceParams{
		PartnerID:        partnerID,
		PlacedBy:         uuid.New(),
		Reason:           "payment verification",
		AdminDecidesLift: true,
	}
	if _, err := svc.Place(context.Background(), params); err != nil {
		t.Fatalf("first Place() error = %v", err)
	}

	_, err := svc.Place(context.Background(), params)
	if !apperr.IsCode(err, "AlreadyOnHold") {
		t.Fatalf("second Place() error = %v, want AlreadyOnHold", err)
	}
}

func TestPlaceValidatesReason(t *testing.T) {
	svc := newHoldService(newFakeHoldStore(), time.Now())

	tests := []struct {
		name   string
		reason string
	}{
		{"too short", "ab"},
		{"nine chars", "fraudulnt"},
		{"blank", "   "},
		{"too long", strings.Repeat("x", 501)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Place(context.Background(), PlaceParams{
				PartnerID:        uuid.New(),
				PlacedBy:         uuid.New(),
				Reason:           tt.reason,
				AdminDecidesLift: true,
			})
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Errorf("Place(%q) error = %v, want KindValidation", tt.reason, err)
			}
		})
	}
}

func TestPlaceScheduledHoldRequiresFutureDate(t *testing.T) {
	now := time.Now()
	svc := newHoldService(newFakeHoldStore(), now)
	past := now.Add(-time.Hour)

	_, err := svc.Place(context.Background(), PlaceParams{
		PartnerID:       uuid.New(),
		PlacedBy:        uuid.New(),
		Reason:          "cooling off period",
		ScheduledLiftAt: &past,
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("Place() error = %v, want KindValidation", err)
	}

	_, err = svc.Place(context.Background(), PlaceParams{
		PartnerID: uuid.New(),
		PlacedBy:  uuid.New(),
		Reason:    "cooling off period",
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("Place() without lift date error = %v, want KindValidation", err)
	}
}

func TestLiftIsNotIdempotent(t *testing.T) {
	store := newFakeHoldStore()
	svc := newHoldService(store, time.Now())
	partnerID := uuid.New()

	if _, err := svc.Place(context.Background(), PlaceParams{
		PartnerID:        partnerID,
		PlacedBy:         uuid.New(),
		Reason:           "payment verification",
		AdminDecidesLift: true,
	}); err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	if err := svc.Lift(context.Background(), partnerID, "verified"); err != nil {
		t.Fatalf("Lift() error = %v", err)
	}
	if err := svc.Ensure(context.Background(), partnerID); err != nil {
		t.Errorf("Ensure() after lift error = %v, want nil", err)
	}

	err := svc.Lift(context.Background(), partnerID, "verified")
	if !apperr.IsCode(err, "NotOnHold") {
		t.Fatalf("second Lift() error = %v, want NotOnHold", err)
	}
}

func TestLiftDueOnlyLiftsPastSchedules(t *testing.T) {
	store := newFakeHoldStore()
	now := time.Now()
	svc := newHoldService(store, now)

	duePartner := uuid.New()
	dueAt := now.Add(time.Minute)
	if _, err := svc.Place(context.Background(), PlaceParams{
		PartnerID:       duePartner,
		PlacedBy:        uuid.New(),
		Reason:          "short suspension",
		ScheduledLiftAt: &dueAt,
	}); err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	futurePartner := uuid.New()
	futureAt := now.Add(time.Hour)
	if _, err := svc.Place(context.Background(), PlaceParams{
		PartnerID:       futurePartner,
		PlacedBy:        uuid.New(),
		Reason:          "longer suspension",
		ScheduledLiftAt: &futureAt,
	}); err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	svc.now = func() time.Time { return now.Add(5 * time.Minute) }
	lifted, rowErrs, err := svc.LiftDue(context.Background(), 100)
	if err != nil {
		t.Fatalf("LiftDue() error = %v", err)
	}
	if lifted != 1 || rowErrs != 0 {
		t.Fatalf("LiftDue() = (%d, %d), want (1, 0)", lifted, rowErrs)
	}
	if err := svc.Ensure(context.Background(), duePartner); err != nil {
		t.Errorf("due partner still on hold: %v", err)
	}
	if err := svc.Ensure(context.Background(), futurePartner); !apperr.IsCode(err, "HoldActive") {
		t.Errorf("future partner hold was lifted early: %v", err)
	}
}
