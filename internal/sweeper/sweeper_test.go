package sweeper

import (
	"context"
	"errors"
	"testing"

	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

type fakeLockSweep struct {
	reaped  int
	rowErrs int
	err     error
	calls   int
}

func (f *fakeLockSweep) ReapExpired(_ context.Context, _ int) (int, int, error) {
	f.calls++
	return f.reaped, f.rowErrs, f.err
}

type fakeHoldSweep struct {
	lifted  int
	rowErrs int
	err     error
	calls   int
}

func (f *fakeHoldSweep) LiftDue(_ context.Context, _ int) (int, int, error) {
	f.calls++
	return f.lifted, f.rowErrs, f.err
}

func TestSweepRunsBothTables(t *testing.T) {
	locks := &fakeLockSweep{reaped: 3}
	holds := &fakeHoldSweep{lifted: 1}
	s := New(locks, holds, 0, metrics.Registry("test"), logger.New("development"))

	s.Sweep(context.Background())

	if locks.calls != 1 || holds.calls != 1 {
		t.Fatalf("calls locks=%d holds=%d, want 1 each", locks.calls, holds.calls)
	}
}

func TestSweepLockFailureDoesNotSkipHolds(t *testing.T) {
	locks := &fakeLockSweep{err: errors.New("connection refused")}
	holds := &fakeHoldSweep{}
	s := New(locks, holds, 0, metrics.Registry("test"), logger.New("development"))

	s.Sweep(context.Background())

	if holds.calls != 1 {
		t.Fatalf("hold sweep calls = %d, want 1 despite lock sweep failure", holds.calls)
	}
}
