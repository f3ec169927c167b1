// Package service implements lead reservation locks. A lock gives one
// partner a time-boxed exclusive window to purchase a lead; everything
// here leans on the database to arbitrate races.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/events"
	"reprice_backend/internal/locks/repository"
	"reprice_backend/internal/orders/domain"
	ordersrepo "reprice_backend/internal/orders/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

// Store is the lock persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, lock repository.Lock) (bool, error)
	Get(ctx context.Context, leadID uuid.UUID) (repository.Lock, error)
	TakeoverExpired(ctx context.Context, lock repository.Lock) (bool, error)
	ReleaseOwnedLive(ctx context.Context, leadID, partnerID uuid.UUID, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]repository.Lock, error)
	DeleteExpired(ctx context.Context, leadID uuid.UUID, expiresAt time.Time) (bool, error)
}

// OrderGate exposes the order-side reads and lock-column writes.
type OrderGate interface {
	StatusOf(ctx context.Context, leadID uuid.UUID) (domain.Status, error)
	MarkLocked(ctx context.Context, leadID uuid.UUID, lockedAt, expiresAt time.Time) error
	ClearLock(ctx context.Context, leadID uuid.UUID) error
}

// HoldGate rejects operations for partners under an active account hold.
type HoldGate interface {
	Ensure(ctx context.Context, partnerID uuid.UUID) error
}

// Scheduler enqueues an exact-time expiry task when a lock is granted.
// The periodic sweep remains the safety net when enqueueing fails.
type Scheduler interface {
	ScheduleLockExpiry(ctx context.Context, leadID uuid.UUID, at time.Time) error
}

type Service struct {
	store    Store
	orders   OrderGate
	holdGate HoldGate
	bus      events.Bus
	metrics  *metrics.Metrics
	log      *logger.Logger
	ttl      time.Duration
	now      func() time.Time

	scheduler Scheduler
}

// SetScheduler injects the exact-time expiry scheduler.
func (s *Service) SetScheduler(sched Scheduler) {
	s.scheduler = sched
}

func New(store Store, orders OrderGate, holdGate HoldGate, bus events.Bus, m *metrics.Metrics, log *logger.Logger, ttl time.Duration) *Service {
	return &Service{
		store:    store,
		orders:   orders,
		holdGate: holdGate,
		bus:      bus,
		metrics:  m,
		log:      log,
		ttl:      ttl,
		now:      time.Now,
	}
}

func errAlreadyLocked() *apperr.Error {
	return apperr.NewCoded(apperr.KindLocked, "AlreadyLocked", "lead is currently locked by another partner")
}

func errNotLockOwner() *apperr.Error {
	return apperr.NewCoded(apperr.KindForbidden, "NotLockOwner", "lock is held by a different partner")
}

func errLockExpired() *apperr.Error {
	return apperr.NewCoded(apperr.KindGone, "LockExpired", "no live lock held on this lead")
}

func errLeadNotAvailable() *apperr.Error {
	return apperr.NewCoded(apperr.KindGone, "LeadNotAvailable", "lead is no longer available for reservation")
}

// Acquire reserves the lead for the partner for the configured TTL.
// Re-acquiring a lock the partner already holds returns the existing lock
// unchanged rather than extending it.
func (s *Service) Acquire(ctx context.Context, leadID, partnerID uuid.UUID) (repository.Lock, error) {
	if err := s.holdGate.Ensure(ctx, partnerID); err != nil {
		return repository.Lock{}, err
	}

	status, err := s.orders.StatusOf(ctx, leadID)
	if errors.Is(err, ordersrepo.ErrNotFound) {
		return repository.Lock{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return repository.Lock{}, err
	}
	if status != domain.StatusLeadCreated {
		return repository.Lock{}, errLeadNotAvailable()
	}

	now := s.now()
	lock := repository.Lock{
		LeadID:     leadID,
		PartnerID:  partnerID,
		AcquiredAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}

	// Two rounds: the second covers the window where a competing lock is
	// reaped between our failed insert and the read.
	for attempt := 0; attempt < 2; attempt++ {
		inserted, err := s.store.Insert(ctx, lock)
		if err != nil {
			return repository.Lock{}, err
		}
		if inserted {
			return s.granted(ctx, lock)
		}

		existing, err := s.store.Get(ctx, leadID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return repository.Lock{}, err
		}

		if existing.PartnerID == partnerID && !existing.Expired(now) {
			s.metrics.LockAcquisitions.WithLabelValues("idempotent").Inc()
			return existing, nil
		}

		if existing.Expired(now) {
			took, err := s.store.TakeoverExpired(ctx, lock)
			if err != nil {
				return repository.Lock{}, err
			}
			if took {
				return s.granted(ctx, lock)
			}
		}

		s.metrics.LockAcquisitions.WithLabelValues("rejected").Inc()
		return repository.Lock{}, errAlreadyLocked()
	}

	s.metrics.LockAcquisitions.WithLabelValues("rejected").Inc()
	return repository.Lock{}, errAlreadyLocked()
}

func (s *Service) granted(ctx context.Context, lock repository.Lock) (repository.Lock, error) {
	if err := s.orders.MarkLocked(ctx, lock.LeadID, lock.AcquiredAt, lock.ExpiresAt); err != nil {
		s.log.DatabaseError("mark order locked", err)
	}
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleLockExpiry(ctx, lock.LeadID, lock.ExpiresAt); err != nil {
			s.log.Error("failed to schedule lock expiry", "lead_id", lock.LeadID.String(), "error", err)
		}
	}
	s.metrics.LockAcquisitions.WithLabelValues("granted").Inc()
	s.bus.Publish(ctx, events.LeadLocked{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lock.LeadID,
		PartnerID: lock.PartnerID,
		ExpiresAt: lock.ExpiresAt,
	})
	return lock, nil
}

// Release drops the partner's live lock on the lead. An expired or absent
// lock is reported as LockExpired, a lock held by someone else as
// NotLockOwner.
func (s *Service) Release(ctx context.Context, leadID, partnerID uuid.UUID) error {
	now := s.now()
	released, err := s.store.ReleaseOwnedLive(ctx, leadID, partnerID, now)
	if err != nil {
		return err
	}
	if released {
		if err := s.orders.ClearLock(ctx, leadID); err != nil {
			s.log.DatabaseError("clear order lock", err)
		}
		s.metrics.LockReleases.WithLabelValues("manual").Inc()
		s.bus.Publish(ctx, events.LeadLockReleased{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			PartnerID: partnerID,
		})
		return nil
	}

	existing, err := s.store.Get(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return errLockExpired()
	}
	if err != nil {
		return err
	}
	if existing.PartnerID != partnerID {
		return errNotLockOwner()
	}
	return errLockExpired()
}

// Owned reports the partner's live lock on the lead, if any.
func (s *Service) Owned(ctx context.Context, leadID, partnerID uuid.UUID) (repository.Lock, bool, error) {
	lock, err := s.store.Get(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lock{}, false, nil
	}
	if err != nil {
		return repository.Lock{}, false, err
	}
	if lock.PartnerID != partnerID || lock.Expired(s.now()) {
		return repository.Lock{}, false, nil
	}
	return lock, true, nil
}

// ExpireLead reaps a single lead's lock if it is past its TTL. Called by
// the exact-time expiry task; a lock that was released, consumed, or
// renewed in the meantime makes this a no-op.
func (s *Service) ExpireLead(ctx context.Context, leadID uuid.UUID) (bool, error) {
	lock, err := s.store.Get(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !lock.Expired(s.now()) {
		return false, nil
	}

	removed, err := s.store.DeleteExpired(ctx, leadID, lock.ExpiresAt)
	if err != nil || !removed {
		return false, err
	}
	if err := s.orders.ClearLock(ctx, leadID); err != nil {
		s.log.DatabaseError("clear order lock", err)
	}
	s.metrics.LocksExpired.Inc()
	s.metrics.LockReleases.WithLabelValues("expired").Inc()
	s.bus.Publish(ctx, events.LeadLockExpired{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		PartnerID: lock.PartnerID,
	})
	return true, nil
}

// ReapExpired removes locks past their TTL and returns the leads to the
// marketplace. Each candidate is reaped independently; one bad row does
// not stop the pass.
func (s *Service) ReapExpired(ctx context.Context, limit int) (reaped, rowErrs int, err error) {
	now := s.now()
	candidates, err := s.store.ListExpired(ctx, now, limit)
	if err != nil {
		return 0, 0, err
	}

	for _, lock := range candidates {
		removed, err := s.store.DeleteExpired(ctx, lock.LeadID, lock.ExpiresAt)
		if err != nil {
			rowErrs++
			s.log.DatabaseError("reap expired lock", err)
			continue
		}
		if !removed {
			// Someone re-locked the lead after we read the candidate list.
			continue
		}
		if err := s.orders.ClearLock(ctx, lock.LeadID); err != nil {
			s.log.DatabaseError("clear order lock", err)
		}
		reaped++
		s.metrics.LocksExpired.Inc()
		s.metrics.LockReleases.WithLabelValues("expired").Inc()
		s.bus.Publish(ctx, events.LeadLockExpired{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lock.LeadID,
			PartnerID: lock.PartnerID,
		})
	}
	return reaped, rowErrs, nil
}
