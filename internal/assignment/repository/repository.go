// Package repository runs the fulfillment transitions. Each operation is
// one transaction: the guarded status update plus its history rows, so an
// order can never change state without an audit trail.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reprice_backend/internal/orders/domain"
	ordersrepo "reprice_backend/internal/orders/repository"
	"reprice_backend/platform/db"
)

// ErrStale means the guarded update matched zero rows: the order moved
// between the caller's read and this write.
var ErrStale = errors.New("order state changed concurrently")

type Repository struct {
	pool   *pgxpool.Pool
	orders *ordersrepo.Repository
}

func New(pool *pgxpool.Pool, orders *ordersrepo.Repository) *Repository {
	return &Repository{pool: pool, orders: orders}
}

func (r *Repository) Lead(ctx context.Context, leadID uuid.UUID) (ordersrepo.Order, error) {
	return r.orders.GetByID(ctx, leadID)
}

func (r *Repository) Assign(ctx context.Context, leadID, agentID, partnerID uuid.UUID) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		ok, err := r.orders.AssignAgentTx(ctx, tx, leadID, agentID, domain.StatusLeadPurchased)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStale
		}
		from := domain.StatusLeadPurchased
		return r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &from,
			ToStatus:   domain.StatusAssignedToAgent,
			ActorType:  domain.ActorPartner,
			ActorID:    &partnerID,
		})
	})
}

func (r *Repository) Reassign(ctx context.Context, leadID, agentID, partnerID uuid.UUID, from domain.Status) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		ok, err := r.orders.ReassignAgentTx(ctx, tx, leadID, agentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStale
		}
		note := "reassigned to a different agent"
		return r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &from,
			ToStatus:   domain.StatusAssignedToAgent,
			ActorType:  domain.ActorPartner,
			ActorID:    &partnerID,
			Notes:      &note,
		})
	})
}

func (r *Repository) Accept(ctx context.Context, leadID, agentID uuid.UUID) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		ok, err := r.orders.MarkAcceptedTx(ctx, tx, leadID, agentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStale
		}
		from := domain.StatusAssignedToAgent
		return r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &from,
			ToStatus:   domain.StatusAcceptedByAgent,
			ActorType:  domain.ActorAgent,
			ActorID:    &agentID,
		})
	})
}

// Reject clears the agent and returns the order to the partner's pool.
// Both history rows land with the update so no reader ever sees the
// rejected state without its resolution.
func (r *Repository) Reject(ctx context.Context, leadID, agentID uuid.UUID, note *string) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		ok, err := r.orders.MarkRejectedTx(ctx, tx, leadID, agentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStale
		}

		assigned := domain.StatusAssignedToAgent
		if err := r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &assigned,
			ToStatus:   domain.StatusRejectedByAgent,
			ActorType:  domain.ActorAgent,
			ActorID:    &agentID,
			Notes:      note,
		}); err != nil {
			return err
		}

		rejected := domain.StatusRejectedByAgent
		returnNote := "returned to pool after rejection"
		return r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &rejected,
			ToStatus:   domain.StatusLeadPurchased,
			ActorType:  domain.ActorSystem,
			Notes:      &returnNote,
		})
	})
}

func (r *Repository) SchedulePickup(ctx context.Context, leadID, agentID uuid.UUID, sched ordersrepo.PickupSchedule) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		ok, err := r.orders.SchedulePickupTx(ctx, tx, leadID, agentID, sched)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStale
		}
		from := domain.StatusAcceptedByAgent
		return r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &from,
			ToStatus:   domain.StatusPickupScheduled,
			ActorType:  domain.ActorAgent,
			ActorID:    &agentID,
		})
	})
}

func (r *Repository) CompletePickup(ctx context.Context, leadID, agentID uuid.UUID, outcome ordersrepo.PickupOutcome) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		ok, err := r.orders.CompletePickupTx(ctx, tx, leadID, agentID, outcome)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStale
		}
		from := domain.StatusPickupScheduled
		return r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &from,
			ToStatus:   domain.StatusPickupCompleted,
			ActorType:  domain.ActorAgent,
			ActorID:    &agentID,
			Notes:      outcome.Notes,
		})
	})
}

// ProcessPayment records the payout and finalizes the order in one
// transaction; payment_processed is observable only in history.
func (r *Repository) ProcessPayment(ctx context.Context, leadID, actorID uuid.UUID, actor domain.ActorType, amount int64, reference string) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		ok, err := r.orders.ProcessPaymentTx(ctx, tx, leadID, amount, reference)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStale
		}

		completed := domain.StatusPickupCompleted
		if err := r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &completed,
			ToStatus:   domain.StatusPaymentProcessed,
			ActorType:  actor,
			ActorID:    &actorID,
		}); err != nil {
			return err
		}

		ok, err = r.orders.FinalizeTx(ctx, tx, leadID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStale
		}
		processed := domain.StatusPaymentProcessed
		return r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &processed,
			ToStatus:   domain.StatusCompleted,
			ActorType:  domain.ActorSystem,
		})
	})
}
