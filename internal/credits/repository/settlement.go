package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"reprice_backend/platform/db"
)

// TopUp credits the partner and records the matching ledger entry in one
// transaction.
func (r *Repository) TopUp(ctx context.Context, partnerID uuid.UUID, amount int64, entry LedgerEntry) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.CreditTx(ctx, tx, partnerID, amount); err != nil {
			return err
		}
		return r.AppendEntryTx(ctx, tx, entry)
	})
}

// Refund credits back up to the original purchase amount for a lead. An
// amount of zero (or one exceeding the purchase) refunds in full. The
// refund ledger entry and the balance credit land in one transaction, and
// the partial unique index on refund entries makes a second call a no-op.
// Returns the refund entry and whether this call applied it.
func (r *Repository) Refund(ctx context.Context, leadID uuid.UUID, amount int64) (LedgerEntry, bool, error) {
	var (
		entry   LedgerEntry
		applied bool
	)
	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		purchase, err := r.PurchaseEntry(ctx, tx, leadID)
		if err != nil {
			return err
		}

		refund := -purchase.Delta
		if amount > 0 && amount < refund {
			refund = amount
		}
		entry = LedgerEntry{
			ID:            uuid.New(),
			PartnerID:     purchase.PartnerID,
			Delta:         refund,
			Reason:        ReasonRefund,
			RelatedLeadID: &leadID,
		}
		if err := r.AppendEntryTx(ctx, tx, entry); err != nil {
			if errors.Is(err, ErrDuplicateEntry) {
				return errAlreadyRefunded
			}
			return err
		}
		applied = true
		return r.CreditTx(ctx, tx, purchase.PartnerID, entry.Delta)
	})
	if errors.Is(err, errAlreadyRefunded) {
		return LedgerEntry{}, false, nil
	}
	if err != nil {
		return LedgerEntry{}, false, fmt.Errorf("refund lead: %w", err)
	}
	return entry, applied, nil
}

// errAlreadyRefunded aborts the refund transaction without applying it.
var errAlreadyRefunded = errors.New("lead already refunded")
