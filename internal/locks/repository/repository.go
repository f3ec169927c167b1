package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reprice_backend/platform/db"
)

var ErrNotFound = errors.New("lock not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lock struct {
	LeadID     uuid.UUID
	PartnerID  uuid.UUID
	AcquiredAt time.Time
	ExpiresAt  time.Time
}

func (l Lock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// InsertTx claims the lead with a fresh lock. The primary key on lead_id
// means at most one row can exist; a concurrent claim simply inserts
// nothing and returns false.
func (r *Repository) InsertTx(ctx context.Context, q db.Querier, lock Lock) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO lead_locks (lead_id, partner_id, acquired_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lead_id) DO NOTHING
	`, lock.LeadID, lock.PartnerID, lock.AcquiredAt, lock.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("insert lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) Get(ctx context.Context, leadID uuid.UUID) (Lock, error) {
	return r.GetTx(ctx, r.pool, leadID)
}

func (r *Repository) GetTx(ctx context.Context, q db.Querier, leadID uuid.UUID) (Lock, error) {
	var l Lock
	err := q.QueryRow(ctx, `
		SELECT lead_id, partner_id, acquired_at, expires_at
		FROM lead_locks WHERE lead_id = $1
	`, leadID).Scan(&l.LeadID, &l.PartnerID, &l.AcquiredAt, &l.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lock{}, ErrNotFound
	}
	if err != nil {
		return Lock{}, fmt.Errorf("get lock: %w", err)
	}
	return l, nil
}

// TakeoverExpiredTx atomically replaces a dead lock with a fresh one for a
// new owner. The expires_at guard in the WHERE clause is the compare step;
// if the incumbent renewed or someone else took over first, zero rows match.
func (r *Repository) TakeoverExpiredTx(ctx context.Context, q db.Querier, lock Lock) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE lead_locks
		SET partner_id = $2, acquired_at = $3, expires_at = $4
		WHERE lead_id = $1 AND expires_at <= $3
	`, lock.LeadID, lock.PartnerID, lock.AcquiredAt, lock.ExpiresAt)
	if err != nil {
		return false, fmt.Errorf("takeover expired lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteOwnedLive removes the partner's own live lock. Expired locks are
// left for the sweeper so release cannot mask an expiry.
func (r *Repository) DeleteOwnedLive(ctx context.Context, q db.Querier, leadID, partnerID uuid.UUID, now time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		DELETE FROM lead_locks
		WHERE lead_id = $1 AND partner_id = $2 AND expires_at > $3
	`, leadID, partnerID, now)
	if err != nil {
		return false, fmt.Errorf("delete owned lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ConsumeTx deletes the lock as part of a purchase. It only matches a live
// lock held by the purchasing partner.
func (r *Repository) ConsumeTx(ctx context.Context, tx pgx.Tx, leadID, partnerID uuid.UUID, now time.Time) (bool, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM lead_locks
		WHERE lead_id = $1 AND partner_id = $2 AND expires_at > $3
	`, leadID, partnerID, now)
	if err != nil {
		return false, fmt.Errorf("consume lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpired returns reap candidates, oldest expiry first.
func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]Lock, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT lead_id, partner_id, acquired_at, expires_at
		FROM lead_locks
		WHERE expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired locks: %w", err)
	}
	defer rows.Close()

	items := make([]Lock, 0)
	for rows.Next() {
		var l Lock
		if err := rows.Scan(&l.LeadID, &l.PartnerID, &l.AcquiredAt, &l.ExpiresAt); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// DeleteIfMatches reaps a specific lock generation. The expires_at match
// makes the reap a no-op when the lead was re-locked after the candidate
// list was read.
func (r *Repository) DeleteIfMatches(ctx context.Context, q db.Querier, leadID uuid.UUID, expiresAt time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		DELETE FROM lead_locks WHERE lead_id = $1 AND expires_at = $2
	`, leadID, expiresAt)
	if err != nil {
		return false, fmt.Errorf("delete expired lock: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
