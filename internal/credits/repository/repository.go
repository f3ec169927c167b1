package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reprice_backend/platform/db"
)

var (
	ErrNotFound       = errors.New("ledger entry not found")
	ErrDuplicateEntry = errors.New("ledger entry already exists")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type LedgerReason string

const (
	ReasonPurchase  LedgerReason = "purchase"
	ReasonPlanTopup LedgerReason = "plan_topup"
	ReasonRefund    LedgerReason = "refund"
)

type LedgerEntry struct {
	ID            uuid.UUID
	PartnerID     uuid.UUID
	Delta         int64
	Reason        LedgerReason
	RelatedLeadID *uuid.UUID
	CreatedAt     time.Time
}

// Balance returns the partner's live balance. A partner with no account
// row has a balance of zero.
func (r *Repository) Balance(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	return r.BalanceTx(ctx, r.pool, partnerID)
}

func (r *Repository) BalanceTx(ctx context.Context, q db.Querier, partnerID uuid.UUID) (int64, error) {
	var balance int64
	err := q.QueryRow(ctx, `
		SELECT balance FROM credit_balances WHERE partner_id = $1
	`, partnerID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// DebitTx decrements the balance only if it covers the amount. The balance
// CHECK constraint backs this up; the conditional WHERE keeps the common
// path a clean zero-rows miss instead of a constraint violation.
func (r *Repository) DebitTx(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID, amount int64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE credit_balances
		SET balance = balance - $2, updated_at = now()
		WHERE partner_id = $1 AND balance >= $2
	`, partnerID, amount)
	if err != nil {
		return false, fmt.Errorf("debit balance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreditTx increments the balance, creating the account row on first use.
func (r *Repository) CreditTx(ctx context.Context, q db.Querier, partnerID uuid.UUID, amount int64) error {
	_, err := q.Exec(ctx, `
		INSERT INTO credit_balances (partner_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (partner_id)
		DO UPDATE SET balance = credit_balances.balance + EXCLUDED.balance, updated_at = now()
	`, partnerID, amount)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

// AppendEntryTx writes a ledger row. The partial unique indexes on
// (related_lead_id, reason) surface duplicate purchase or refund entries
// as ErrDuplicateEntry.
func (r *Repository) AppendEntryTx(ctx context.Context, q db.Querier, e LedgerEntry) error {
	_, err := q.Exec(ctx, `
		INSERT INTO credit_ledger_entries (id, partner_id, delta, reason, related_lead_id)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, e.PartnerID, e.Delta, e.Reason, e.RelatedLeadID)
	if isUniqueViolation(err) {
		return ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (r *Repository) AppendEntry(ctx context.Context, e LedgerEntry) error {
	return r.AppendEntryTx(ctx, r.pool, e)
}

// PurchaseEntry finds the original debit for a lead, used to size refunds.
func (r *Repository) PurchaseEntry(ctx context.Context, q db.Querier, leadID uuid.UUID) (LedgerEntry, error) {
	var e LedgerEntry
	err := q.QueryRow(ctx, `
		SELECT id, partner_id, delta, reason, related_lead_id, created_at
		FROM credit_ledger_entries
		WHERE related_lead_id = $1 AND reason = $2
	`, leadID, ReasonPurchase).Scan(&e.ID, &e.PartnerID, &e.Delta, &e.Reason, &e.RelatedLeadID, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LedgerEntry{}, ErrNotFound
	}
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("get purchase entry: %w", err)
	}
	return e, nil
}

func (r *Repository) ListEntries(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, partner_id, delta, reason, related_lead_id, created_at
		FROM credit_ledger_entries
		WHERE partner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, partnerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	items := make([]LedgerEntry, 0)
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.PartnerID, &e.Delta, &e.Reason, &e.RelatedLeadID, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// SumEntries totals the ledger for a partner. Used by the reconciliation
// check that the balance equals the ledger sum.
func (r *Repository) SumEntries(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0) FROM credit_ledger_entries WHERE partner_id = $1
	`, partnerID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return sum, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
