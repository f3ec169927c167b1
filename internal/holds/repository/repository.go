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
	ErrNoActiveHold  = errors.New("no active hold")
	ErrAlreadyOnHold = errors.New("partner already on hold")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type LiftMode string

const (
	LiftManual    LiftMode = "manual"
	LiftScheduled LiftMode = "scheduled"
)

type Hold struct {
	ID              uuid.UUID
	PartnerID       uuid.UUID
	Reason          string
	LiftMode        LiftMode
	ScheduledLiftAt *time.Time
	PlacedAt        time.Time
	PlacedBy        *uuid.UUID
	LiftedAt        *time.Time
	LiftReason      *string
}

// Place inserts a new active hold. The partial unique index on active
// holds turns a double-place into ErrAlreadyOnHold.
func (r *Repository) Place(ctx context.Context, h Hold) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO holds (id, partner_id, reason, lift_mode, scheduled_lift_at, placed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, h.ID, h.PartnerID, h.Reason, h.LiftMode, h.ScheduledLiftAt, h.PlacedBy)
	if isUniqueViolation(err) {
		return ErrAlreadyOnHold
	}
	if err != nil {
		return fmt.Errorf("place hold: %w", err)
	}
	return nil
}

func (r *Repository) Active(ctx context.Context, partnerID uuid.UUID) (Hold, error) {
	return r.ActiveTx(ctx, r.pool, partnerID)
}

// ActiveTx returns the partner's active hold, or ErrNoActiveHold.
func (r *Repository) ActiveTx(ctx context.Context, q db.Querier, partnerID uuid.UUID) (Hold, error) {
	var h Hold
	err := q.QueryRow(ctx, `
		SELECT id, partner_id, reason, lift_mode, scheduled_lift_at, placed_at, placed_by, lifted_at, lift_reason
		FROM holds
		WHERE partner_id = $1 AND lifted_at IS NULL
	`, partnerID).Scan(&h.ID, &h.PartnerID, &h.Reason, &h.LiftMode, &h.ScheduledLiftAt,
		&h.PlacedAt, &h.PlacedBy, &h.LiftedAt, &h.LiftReason)
	if errors.Is(err, pgx.ErrNoRows) {
		return Hold{}, ErrNoActiveHold
	}
	if err != nil {
		return Hold{}, fmt.Errorf("get active hold: %w", err)
	}
	return h, nil
}

// Lift closes the active hold. Returns false when there was none, which
// keeps a repeated lift idempotent.
func (r *Repository) Lift(ctx context.Context, partnerID uuid.UUID, liftReason string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE holds
		SET lifted_at = now(), lift_reason = $2
		WHERE partner_id = $1 AND lifted_at IS NULL
	`, partnerID, liftReason)
	if err != nil {
		return false, fmt.Errorf("lift hold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// LiftScheduledDue closes one scheduled hold if its lift time has passed.
// The guards make the sweeper and the asynq task race-safe: one of them
// wins, the other sees zero rows.
func (r *Repository) LiftScheduledDue(ctx context.Context, holdID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE holds
		SET lifted_at = now(), lift_reason = 'auto: scheduled lift date reached'
		WHERE id = $1 AND lifted_at IS NULL
		  AND lift_mode = 'scheduled' AND scheduled_lift_at <= $2
	`, holdID, now)
	if err != nil {
		return false, fmt.Errorf("lift scheduled hold: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListScheduledDue returns scheduled holds whose lift time has passed.
func (r *Repository) ListScheduledDue(ctx context.Context, now time.Time, limit int) ([]Hold, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, partner_id, reason, lift_mode, scheduled_lift_at, placed_at, placed_by, lifted_at, lift_reason
		FROM holds
		WHERE lifted_at IS NULL AND lift_mode = 'scheduled' AND scheduled_lift_at <= $1
		ORDER BY scheduled_lift_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due holds: %w", err)
	}
	defer rows.Close()

	items := make([]Hold, 0)
	for rows.Next() {
		var h Hold
		if err := rows.Scan(&h.ID, &h.PartnerID, &h.Reason, &h.LiftMode, &h.ScheduledLiftAt,
			&h.PlacedAt, &h.PlacedBy, &h.LiftedAt, &h.LiftReason); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
