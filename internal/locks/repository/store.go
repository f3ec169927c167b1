package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Pool-backed wrappers around the transactional primitives, for callers
// that do not carry their own transaction.

func (r *Repository) Insert(ctx context.Context, lock Lock) (bool, error) {
	return r.InsertTx(ctx, r.pool, lock)
}

func (r *Repository) TakeoverExpired(ctx context.Context, lock Lock) (bool, error) {
	return r.TakeoverExpiredTx(ctx, r.pool, lock)
}

func (r *Repository) ReleaseOwnedLive(ctx context.Context, leadID, partnerID uuid.UUID, now time.Time) (bool, error) {
	return r.DeleteOwnedLive(ctx, r.pool, leadID, partnerID, now)
}

func (r *Repository) DeleteExpired(ctx context.Context, leadID uuid.UUID, expiresAt time.Time) (bool, error) {
	return r.DeleteIfMatches(ctx, r.pool, leadID, expiresAt)
}
