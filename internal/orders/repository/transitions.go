package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"reprice_backend/internal/orders/domain"
	"reprice_backend/platform/db"
)

// Every status mutation here is guarded with WHERE status = expected so a
// concurrent transition loses cleanly: zero rows affected, no overwrite.

// MarkLocked stamps lock metadata on the order row. The lock row itself is
// authoritative; these columns exist for display and audit.
func (r *Repository) MarkLocked(ctx context.Context, leadID uuid.UUID, lockedAt, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders SET locked_at = $2, lock_expires_at = $3 WHERE id = $1
	`, leadID, lockedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("mark order locked: %w", err)
	}
	return nil
}

func (r *Repository) ClearLock(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders SET locked_at = NULL, lock_expires_at = NULL WHERE id = $1
	`, leadID)
	if err != nil {
		return fmt.Errorf("clear order lock: %w", err)
	}
	return nil
}

// MarkPurchasedTx flips the lead to purchased and records the owner. Returns
// false when the lead was no longer purchasable.
func (r *Repository) MarkPurchasedTx(ctx context.Context, tx pgx.Tx, leadID, partnerID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, owner_partner_id = $4, purchased_at = now(),
		    locked_at = NULL, lock_expires_at = NULL
		WHERE id = $1 AND status = $2
	`, leadID, domain.StatusLeadCreated, domain.StatusLeadPurchased, partnerID)
	if err != nil {
		return false, fmt.Errorf("mark order purchased: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) AssignAgentTx(ctx context.Context, tx pgx.Tx, leadID, agentID uuid.UUID, from domain.Status) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, agent_id = $4, assigned_at = now(), accepted_at = NULL
		WHERE id = $1 AND status = $2
	`, leadID, from, domain.StatusAssignedToAgent, agentID)
	if err != nil {
		return false, fmt.Errorf("assign agent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReassignAgentTx swaps the agent on an assigned or accepted order,
// returning it to assigned and resetting any acceptance.
func (r *Repository) ReassignAgentTx(ctx context.Context, tx pgx.Tx, leadID, agentID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, agent_id = $4, assigned_at = now(), accepted_at = NULL
		WHERE id = $1 AND status IN ($2, $3)
	`, leadID, domain.StatusAssignedToAgent, domain.StatusAcceptedByAgent, agentID)
	if err != nil {
		return false, fmt.Errorf("reassign agent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) MarkAcceptedTx(ctx context.Context, tx pgx.Tx, leadID, agentID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, accepted_at = now()
		WHERE id = $1 AND status = $2 AND agent_id = $4
	`, leadID, domain.StatusAssignedToAgent, domain.StatusAcceptedByAgent, agentID)
	if err != nil {
		return false, fmt.Errorf("mark order accepted: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkRejectedTx clears the agent and returns the lead to the owner's pool
// in a single statement, so no reader ever observes the intermediate
// rejected state without the follow-up.
func (r *Repository) MarkRejectedTx(ctx context.Context, tx pgx.Tx, leadID, agentID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, agent_id = NULL, assigned_at = NULL, accepted_at = NULL
		WHERE id = $1 AND status = $2 AND agent_id = $4
	`, leadID, domain.StatusAssignedToAgent, domain.StatusLeadPurchased, agentID)
	if err != nil {
		return false, fmt.Errorf("mark order rejected: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

type PickupSchedule struct {
	PickupAt    time.Time
	AddressLine *string
	City        *string
	State       *string
	Pincode     *string
	Notes       *string
}

func (r *Repository) SchedulePickupTx(ctx context.Context, tx pgx.Tx, leadID, agentID uuid.UUID, sched PickupSchedule) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, pickup_scheduled_at = now(), pickup_at = $4,
		    pickup_address_line = COALESCE($5, pickup_address_line),
		    pickup_city = COALESCE($6, pickup_city),
		    pickup_state = COALESCE($7, pickup_state),
		    pickup_pincode = COALESCE($8, pickup_pincode),
		    pickup_notes = COALESCE($9, pickup_notes)
		WHERE id = $1 AND status = $2 AND agent_id = $10
	`, leadID, domain.StatusAcceptedByAgent, domain.StatusPickupScheduled,
		sched.PickupAt, sched.AddressLine, sched.City, sched.State, sched.Pincode, sched.Notes, agentID)
	if err != nil {
		return false, fmt.Errorf("schedule pickup: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

type PickupOutcome struct {
	ActualCondition       string
	FinalOfferedPrice     int64
	CustomerAcceptedOffer bool
	Notes                 *string
}

func (r *Repository) CompletePickupTx(ctx context.Context, tx pgx.Tx, leadID, agentID uuid.UUID, outcome PickupOutcome) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, completed_at = now(),
		    actual_condition = $4, final_offered_price = $5,
		    customer_accepted_offer = $6,
		    pickup_notes = COALESCE($7, pickup_notes)
		WHERE id = $1 AND status = $2 AND agent_id = $8
	`, leadID, domain.StatusPickupScheduled, domain.StatusPickupCompleted,
		outcome.ActualCondition, outcome.FinalOfferedPrice, outcome.CustomerAcceptedOffer,
		outcome.Notes, agentID)
	if err != nil {
		return false, fmt.Errorf("complete pickup: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) ProcessPaymentTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, amount int64, reference string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, payment_amount = $4, payment_reference = $5,
		    payment_processed_at = now()
		WHERE id = $1 AND status = $2
	`, leadID, domain.StatusPickupCompleted, domain.StatusPaymentProcessed, amount, reference)
	if err != nil {
		return false, fmt.Errorf("process payment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) FinalizeTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, finalized_at = now()
		WHERE id = $1 AND status = $2
	`, leadID, domain.StatusPaymentProcessed, domain.StatusCompleted)
	if err != nil {
		return false, fmt.Errorf("finalize order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) CancelTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, from domain.Status, reason string) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3, cancellation_reason = $4, cancelled_at = now()
		WHERE id = $1 AND status = $2
	`, leadID, from, domain.StatusCancelled, reason)
	if err != nil {
		return false, fmt.Errorf("cancel order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Cancel pulls a still-unsold lead from the marketplace, writing the
// transition and its history row together.
func (r *Repository) Cancel(ctx context.Context, leadID, adminID uuid.UUID, reason string) (bool, error) {
	var cancelled bool
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		ok, err := r.CancelTx(ctx, tx, leadID, domain.StatusLeadCreated, reason)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cancelled = true
		from := domain.StatusLeadCreated
		return r.AppendHistoryTx(ctx, tx, HistoryEntry{
			OrderID:    leadID,
			FromStatus: &from,
			ToStatus:   domain.StatusCancelled,
			ActorType:  domain.ActorAdmin,
			ActorID:    &adminID,
			Notes:      &reason,
		})
	})
	return cancelled, err
}

func (r *Repository) MarkExpiredTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, from domain.Status) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $3
		WHERE id = $1 AND status = $2
	`, leadID, from, domain.StatusExpired)
	if err != nil {
		return false, fmt.Errorf("mark order expired: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

type HistoryEntry struct {
	OrderID    uuid.UUID
	FromStatus *domain.Status
	ToStatus   domain.Status
	ActorType  domain.ActorType
	ActorID    *uuid.UUID
	Notes      *string
	CreatedAt  time.Time
}

func (r *Repository) AppendHistoryTx(ctx context.Context, q db.Querier, e HistoryEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor_type, actor_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.OrderID, e.FromStatus, e.ToStatus, e.ActorType, e.ActorID, e.Notes)
	if err != nil {
		return fmt.Errorf("append status history: %w", err)
	}
	return nil
}

func (r *Repository) AppendHistory(ctx context.Context, e HistoryEntry) error {
	return r.AppendHistoryTx(ctx, r.pool, e)
}

func (r *Repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, from_status, to_status, actor_type, actor_id, notes, created_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list status history: %w", err)
	}
	defer rows.Close()

	items := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.OrderID, &e.FromStatus, &e.ToStatus, &e.ActorType, &e.ActorID, &e.Notes, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
