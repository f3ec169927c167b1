package sweeper

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"reprice_backend/platform/logger"
)

type fakeReaper struct {
	expired map[uuid.UUID]bool
	calls   []uuid.UUID
}

func (f *fakeReaper) ExpireLead(_ context.Context, leadID uuid.UUID) (bool, error) {
	f.calls = append(f.calls, leadID)
	return f.expired[leadID], nil
}

type fakeLifter struct {
	lifted map[uuid.UUID]bool
	calls  []uuid.UUID
}

func (f *fakeLifter) LiftScheduled(_ context.Context, holdID, _ uuid.UUID) (bool, error) {
	f.calls = append(f.calls, holdID)
	return f.lifted[holdID], nil
}

func testWorker(locks LockReaper, holds HoldLifter) *Worker {
	return &Worker{locks: locks, holds: holds, log: logger.New("development")}
}

func TestHandleLockExpire(t *testing.T) {
	leadID := uuid.New()
	reaper := &fakeReaper{expired: map[uuid.UUID]bool{leadID: true}}
	w := testWorker(reaper, &fakeLifter{})

	task, err := NewLockExpireTask(LockExpirePayload{LeadID: leadID.String()})
	if err != nil {
		t.Fatalf("NewLockExpireTask: %v", err)
	}
	if err := w.handleLockExpire(context.Background(), task); err != nil {
		t.Fatalf("handleLockExpire: %v", err)
	}
	if len(reaper.calls) != 1 || reaper.calls[0] != leadID {
		t.Fatalf("reaper calls = %v, want [%s]", reaper.calls, leadID)
	}
}

func TestHandleLockExpireAlreadyGone(t *testing.T) {
	w := testWorker(&fakeReaper{expired: map[uuid.UUID]bool{}}, &fakeLifter{})

	task, _ := NewLockExpireTask(LockExpirePayload{LeadID: uuid.NewString()})
	if err := w.handleLockExpire(context.Background(), task); err != nil {
		t.Fatalf("handleLockExpire on missing lock: %v, want nil", err)
	}
}

func TestHandleHoldLift(t *testing.T) {
	holdID := uuid.New()
	lifter := &fakeLifter{lifted: map[uuid.UUID]bool{holdID: true}}
	w := testWorker(&fakeReaper{}, lifter)

	task, err := NewHoldLiftTask(HoldLiftPayload{
		HoldID:    holdID.String(),
		PartnerID: uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("NewHoldLiftTask: %v", err)
	}
	if err := w.handleHoldLift(context.Background(), task); err != nil {
		t.Fatalf("handleHoldLift: %v", err)
	}
	if len(lifter.calls) != 1 || lifter.calls[0] != holdID {
		t.Fatalf("lifter calls = %v, want [%s]", lifter.calls, holdID)
	}
}

func TestHandleRejectsMalformedPayload(t *testing.T) {
	w := testWorker(&fakeReaper{}, &fakeLifter{})

	task, _ := NewLockExpireTask(LockExpirePayload{LeadID: "not-a-uuid"})
	if err := w.handleLockExpire(context.Background(), task); err == nil {
		t.Fatal("handleLockExpire accepted a malformed lead id")
	}
}
