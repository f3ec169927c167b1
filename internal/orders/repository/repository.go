package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reprice_backend/internal/orders/domain"
	"reprice_backend/platform/db"
)

var ErrNotFound = errors.New("order not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Order struct {
	ID                    uuid.UUID
	CustomerName          string
	CustomerPhone         string
	CustomerEmail         *string
	PhoneName             string
	Brand                 *string
	Model                 *string
	RAMGB                 *float64
	StorageGB             *float64
	Variant               *string
	Condition             *string
	EstimatedPrice        int64
	LeadCost              int64
	Status                domain.Status
	OwnerPartnerID        *uuid.UUID
	AgentID               *uuid.UUID
	PickupAddressLine     *string
	PickupCity            *string
	PickupState           *string
	PickupPincode         *string
	PickupAt              *time.Time
	ActualCondition       *string
	FinalOfferedPrice     *int64
	CustomerAcceptedOffer *bool
	PickupNotes           *string
	PaymentAmount         *int64
	PaymentReference      *string
	CancellationReason    *string
	CreatedAt             time.Time
	LockedAt              *time.Time
	LockExpiresAt         *time.Time
	PurchasedAt           *time.Time
	AssignedAt            *time.Time
	AcceptedAt            *time.Time
	PickupScheduledAt     *time.Time
	CompletedAt           *time.Time
	PaymentProcessedAt    *time.Time
	FinalizedAt           *time.Time
	CancelledAt           *time.Time
}

const orderColumns = `
	id, customer_name, customer_phone, customer_email, phone_name,
	brand, model, ram_gb, storage_gb, variant, condition,
	estimated_price, lead_cost, status, owner_partner_id, agent_id,
	pickup_address_line, pickup_city, pickup_state, pickup_pincode, pickup_at,
	actual_condition, final_offered_price, customer_accepted_offer, pickup_notes,
	payment_amount, payment_reference, cancellation_reason,
	created_at, locked_at, lock_expires_at, purchased_at, assigned_at, accepted_at,
	pickup_scheduled_at, completed_at, payment_processed_at, finalized_at, cancelled_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.PhoneName,
		&o.Brand, &o.Model, &o.RAMGB, &o.StorageGB, &o.Variant, &o.Condition,
		&o.EstimatedPrice, &o.LeadCost, &o.Status, &o.OwnerPartnerID, &o.AgentID,
		&o.PickupAddressLine, &o.PickupCity, &o.PickupState, &o.PickupPincode, &o.PickupAt,
		&o.ActualCondition, &o.FinalOfferedPrice, &o.CustomerAcceptedOffer, &o.PickupNotes,
		&o.PaymentAmount, &o.PaymentReference, &o.CancellationReason,
		&o.CreatedAt, &o.LockedAt, &o.LockExpiresAt, &o.PurchasedAt, &o.AssignedAt, &o.AcceptedAt,
		&o.PickupScheduledAt, &o.CompletedAt, &o.PaymentProcessedAt, &o.FinalizedAt, &o.CancelledAt,
	)
	return o, err
}

func (r *Repository) Create(ctx context.Context, o Order) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO orders (
			id, customer_name, customer_phone, customer_email, phone_name,
			brand, model, ram_gb, storage_gb, variant, condition,
			estimated_price, lead_cost, status,
			pickup_address_line, pickup_city, pickup_state, pickup_pincode
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, o.ID, o.CustomerName, o.CustomerPhone, o.CustomerEmail, o.PhoneName,
		o.Brand, o.Model, o.RAMGB, o.StorageGB, o.Variant, o.Condition,
		o.EstimatedPrice, o.LeadCost, o.Status,
		o.PickupAddressLine, o.PickupCity, o.PickupState, o.PickupPincode)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Order, error) {
	return r.GetByIDTx(ctx, r.pool, id)
}

func (r *Repository) GetByIDTx(ctx context.Context, q db.Querier, id uuid.UUID) (Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// StatusOf reads just the lifecycle status.
func (r *Repository) StatusOf(ctx context.Context, id uuid.UUID) (domain.Status, error) {
	var status domain.Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get order status: %w", err)
	}
	return status, nil
}

// GetForUpdateTx locks the order row for the duration of the transaction.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order for update: %w", err)
	}
	return o, nil
}

type ListParams struct {
	Limit  int
	Offset int
}

func (p ListParams) normalized() ListParams {
	if p.Limit <= 0 || p.Limit > 100 {
		p.Limit = 20
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// ListAvailable returns marketplace leads: unsold and not under a live lock.
// A row with an expired lock still in the table is shown; expiry is decided
// by the clock, not by whether the sweeper has reaped the row yet.
func (r *Repository) ListAvailable(ctx context.Context, params ListParams) ([]Order, error) {
	params = params.normalized()
	rows, err := r.pool.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders o
		WHERE o.status = $1
		  AND NOT EXISTS (
			SELECT 1 FROM lead_locks l
			WHERE l.lead_id = o.id AND l.expires_at > now()
		  )
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`, domain.StatusLeadCreated, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list available orders: %w", err)
	}
	return collectOrders(rows)
}

// ListLockedByPartner returns leads the partner currently holds a live lock on.
func (r *Repository) ListLockedByPartner(ctx context.Context, partnerID uuid.UUID) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders o
		JOIN lead_locks l ON l.lead_id = o.id
		WHERE l.partner_id = $1 AND l.expires_at > now()
		ORDER BY l.acquired_at DESC
	`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list locked orders: %w", err)
	}
	return collectOrders(rows)
}

type OwnedFilter struct {
	Status     *domain.Status
	Unassigned bool
	ListParams
}

func (r *Repository) ListByOwner(ctx context.Context, partnerID uuid.UUID, filter OwnedFilter) ([]Order, error) {
	params := filter.ListParams.normalized()
	query := `SELECT` + orderColumns + ` FROM orders WHERE owner_partner_id = $1`
	args := []any{partnerID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Unassigned {
		query += " AND agent_id IS NULL"
	}
	args = append(args, params.Limit, params.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders by owner: %w", err)
	}
	return collectOrders(rows)
}

func (r *Repository) ListByAgent(ctx context.Context, agentID uuid.UUID, params ListParams) ([]Order, error) {
	params = params.normalized()
	rows, err := r.pool.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE agent_id = $1
		ORDER BY assigned_at DESC NULLS LAST
		LIMIT $2 OFFSET $3
	`, agentID, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list orders by agent: %w", err)
	}
	return collectOrders(rows)
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	items := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
