// Package service manages partner account holds. An active hold freezes
// the partner's marketplace side: no lock acquisition, no purchase, no
// agent assignment. Fulfillment of already-purchased leads continues.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/events"
	"reprice_backend/internal/holds/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

const (
	minReasonLen = 10
	maxReasonLen = 500
)

// Store is the hold persistence surface the service needs.
type Store interface {
	Place(ctx context.Context, h repository.Hold) error
	Active(ctx context.Context, partnerID uuid.UUID) (repository.Hold, error)
	Lift(ctx context.Context, partnerID uuid.UUID, liftReason string) (bool, error)
	LiftScheduledDue(ctx context.Context, holdID uuid.UUID, now time.Time) (bool, error)
	ListScheduledDue(ctx context.Context, now time.Time, limit int) ([]repository.Hold, error)
}

// Scheduler enqueues an exact-time lift task for scheduled holds.
type Scheduler interface {
	ScheduleHoldLift(ctx context.Context, holdID, partnerID uuid.UUID, at time.Time) error
}

type Service struct {
	store   Store
	bus     events.Bus
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time

	scheduler Scheduler
}

func New(store Store, bus events.Bus, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, metrics: m, log: log, now: time.Now}
}

// SetScheduler injects the exact-time lift scheduler.
func (s *Service) SetScheduler(sched Scheduler) {
	s.scheduler = sched
}

func errAlreadyOnHold() *apperr.Error {
	return apperr.NewCoded(apperr.KindConflict, "AlreadyOnHold", "partner already has an active hold")
}

func errNotOnHold() *apperr.Error {
	return apperr.NewCoded(apperr.KindConflict, "NotOnHold", "partner has no active hold")
}

// PlaceParams describes a hold to place. When AdminDecidesLift is false,
// ScheduledLiftAt must be a future instant and the hold lifts itself.
type PlaceParams struct {
	PartnerID        uuid.UUID
	PlacedBy         uuid.UUID
	Reason           string
	AdminDecidesLift bool
	ScheduledLiftAt  *time.Time
}

func (s *Service) Place(ctx context.Context, p PlaceParams) (repository.Hold, error) {
	reason := strings.TrimSpace(p.Reason)
	if len(reason) < minReasonLen || len(reason) > maxReasonLen {
		return repository.Hold{}, apperr.Validation("hold reason must be between 10 and 500 characters")
	}

	hold := repository.Hold{
		ID:        uuid.New(),
		PartnerID: p.PartnerID,
		Reason:    reason,
		LiftMode:  repository.LiftManual,
		PlacedBy:  &p.PlacedBy,
	}
	if !p.AdminDecidesLift {
		if p.ScheduledLiftAt == nil {
			return repository.Hold{}, apperr.Validation("scheduled holds require a lift date")
		}
		if !p.ScheduledLiftAt.After(s.now()) {
			return repository.Hold{}, apperr.Validation("hold lift date must be in the future")
		}
		hold.LiftMode = repository.LiftScheduled
		hold.ScheduledLiftAt = p.ScheduledLiftAt
	}

	if err := s.store.Place(ctx, hold); err != nil {
		if errors.Is(err, repository.ErrAlreadyOnHold) {
			return repository.Hold{}, errAlreadyOnHold()
		}
		return repository.Hold{}, err
	}

	if hold.LiftMode == repository.LiftScheduled && s.scheduler != nil {
		if err := s.scheduler.ScheduleHoldLift(ctx, hold.ID, hold.PartnerID, *hold.ScheduledLiftAt); err != nil {
			s.log.Error("failed to schedule hold lift", "hold_id", hold.ID.String(), "error", err)
		}
	}

	s.metrics.HoldsPlaced.Inc()
	s.bus.Publish(ctx, events.PartnerHoldPlaced{
		BaseEvent:       events.NewBaseEvent(),
		PartnerID:       hold.PartnerID,
		Reason:          hold.Reason,
		ScheduledLiftAt: hold.ScheduledLiftAt,
	})
	return hold, nil
}

// Lift closes the partner's active hold.
func (s *Service) Lift(ctx context.Context, partnerID uuid.UUID, liftReason string) error {
	liftReason = strings.TrimSpace(liftReason)
	if liftReason == "" {
		liftReason = "lifted by admin"
	} else if len(liftReason) < 5 {
		return apperr.Validation("lift reason must be at least 5 characters")
	}

	lifted, err := s.store.Lift(ctx, partnerID, liftReason)
	if err != nil {
		return err
	}
	if !lifted {
		return errNotOnHold()
	}

	s.metrics.HoldsLifted.WithLabelValues("manual").Inc()
	s.bus.Publish(ctx, events.PartnerHoldLifted{
		BaseEvent:  events.NewBaseEvent(),
		PartnerID:  partnerID,
		LiftReason: liftReason,
		Auto:       false,
	})
	return nil
}

// Status returns the partner's active hold, if any.
func (s *Service) Status(ctx context.Context, partnerID uuid.UUID) (repository.Hold, bool, error) {
	hold, err := s.store.Active(ctx, partnerID)
	if errors.Is(err, repository.ErrNoActiveHold) {
		return repository.Hold{}, false, nil
	}
	if err != nil {
		return repository.Hold{}, false, err
	}
	return hold, true, nil
}

// Ensure is the gate other modules call before hold-frozen operations.
// It returns a HoldActive error carrying the hold reason.
func (s *Service) Ensure(ctx context.Context, partnerID uuid.UUID) error {
	hold, active, err := s.Status(ctx, partnerID)
	if err != nil {
		return err
	}
	if !active {
		return nil
	}
	return apperr.NewCoded(apperr.KindLocked, "HoldActive", "account is on hold").
		WithDetails(map[string]string{"reason": hold.Reason})
}

// LiftScheduled lifts one scheduled hold if due. Called by the exact-time
// lift task; returns false when the sweeper or an admin got there first.
func (s *Service) LiftScheduled(ctx context.Context, holdID, partnerID uuid.UUID) (bool, error) {
	lifted, err := s.store.LiftScheduledDue(ctx, holdID, s.now())
	if err != nil || !lifted {
		return false, err
	}
	s.autoLifted(ctx, partnerID)
	return true, nil
}

// LiftDue lifts all scheduled holds whose time has passed. Each hold is
// handled independently; one bad row does not stop the pass.
func (s *Service) LiftDue(ctx context.Context, limit int) (lifted, rowErrs int, err error) {
	now := s.now()
	due, err := s.store.ListScheduledDue(ctx, now, limit)
	if err != nil {
		return 0, 0, err
	}

	for _, hold := range due {
		ok, err := s.store.LiftScheduledDue(ctx, hold.ID, now)
		if err != nil {
			rowErrs++
			s.log.DatabaseError("lift scheduled hold", err)
			continue
		}
		if !ok {
			continue
		}
		lifted++
		s.autoLifted(ctx, hold.PartnerID)
	}
	return lifted, rowErrs, nil
}

func (s *Service) autoLifted(ctx context.Context, partnerID uuid.UUID) {
	s.metrics.HoldsLifted.WithLabelValues("scheduled").Inc()
	s.bus.Publish(ctx, events.PartnerHoldLifted{
		BaseEvent:  events.NewBaseEvent(),
		PartnerID:  partnerID,
		LiftReason: "auto: scheduled lift date reached",
		Auto:       true,
	})
}
