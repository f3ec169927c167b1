// Package repository composes the purchase settlement transaction. The
// individual tables are owned by the orders, locks, credits, and holds
// repositories; this package strings their transactional primitives
// together so the whole settlement commits or rolls back as one.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	creditsrepo "reprice_backend/internal/credits/repository"
	holdsrepo "reprice_backend/internal/holds/repository"
	locksrepo "reprice_backend/internal/locks/repository"
	"reprice_backend/internal/orders/domain"
	ordersrepo "reprice_backend/internal/orders/repository"
	"reprice_backend/platform/db"
)

var (
	ErrLeadNotFound        = errors.New("lead not found")
	ErrNotPurchasable      = errors.New("lead is not purchasable")
	ErrNoLiveLock          = errors.New("no live lock held by purchaser")
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// HoldActiveError aborts a purchase for a partner under an account hold.
type HoldActiveError struct {
	Reason string
}

func (e *HoldActiveError) Error() string {
	return "partner account is on hold: " + e.Reason
}

type Repository struct {
	pool    *pgxpool.Pool
	orders  *ordersrepo.Repository
	locks   *locksrepo.Repository
	credits *creditsrepo.Repository
	holds   *holdsrepo.Repository
}

func New(pool *pgxpool.Pool, orders *ordersrepo.Repository, locks *locksrepo.Repository,
	credits *creditsrepo.Repository, holds *holdsrepo.Repository) *Repository {
	return &Repository{pool: pool, orders: orders, locks: locks, credits: credits, holds: holds}
}

// Purchase settles a lead purchase atomically: hold gate, lock consumption,
// credit debit with ledger entry, guarded status flip, history row. Any
// failed step rolls the whole settlement back.
func (r *Repository) Purchase(ctx context.Context, leadID, partnerID uuid.UUID, now time.Time) (ordersrepo.Order, error) {
	var order ordersrepo.Order
	err := db.InTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		hold, err := r.holds.ActiveTx(ctx, tx, partnerID)
		if err == nil {
			return &HoldActiveError{Reason: hold.Reason}
		}
		if !errors.Is(err, holdsrepo.ErrNoActiveHold) {
			return err
		}

		order, err = r.orders.GetForUpdateTx(ctx, tx, leadID)
		if errors.Is(err, ordersrepo.ErrNotFound) {
			return ErrLeadNotFound
		}
		if err != nil {
			return err
		}
		if order.Status != domain.StatusLeadCreated {
			return ErrNotPurchasable
		}

		consumed, err := r.locks.ConsumeTx(ctx, tx, leadID, partnerID, now)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrNoLiveLock
		}

		debited, err := r.credits.DebitTx(ctx, tx, partnerID, order.LeadCost)
		if err != nil {
			return err
		}
		if !debited {
			return ErrInsufficientCredits
		}
		if err := r.credits.AppendEntryTx(ctx, tx, creditsrepo.LedgerEntry{
			ID:            uuid.New(),
			PartnerID:     partnerID,
			Delta:         -order.LeadCost,
			Reason:        creditsrepo.ReasonPurchase,
			RelatedLeadID: &leadID,
		}); err != nil {
			return err
		}

		purchased, err := r.orders.MarkPurchasedTx(ctx, tx, leadID, partnerID)
		if err != nil {
			return err
		}
		if !purchased {
			return ErrNotPurchasable
		}

		from := domain.StatusLeadCreated
		return r.orders.AppendHistoryTx(ctx, tx, ordersrepo.HistoryEntry{
			OrderID:    leadID,
			FromStatus: &from,
			ToStatus:   domain.StatusLeadPurchased,
			ActorType:  domain.ActorPartner,
			ActorID:    &partnerID,
		})
	})
	if err != nil {
		return ordersrepo.Order{}, err
	}

	order, err = r.orders.GetByID(ctx, leadID)
	if err != nil {
		return ordersrepo.Order{}, fmt.Errorf("reload purchased order: %w", err)
	}
	return order, nil
}
