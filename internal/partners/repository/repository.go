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
)

var (
	ErrPartnerNotFound = errors.New("partner not found")
	ErrAgentNotFound   = errors.New("agent not found")
	ErrDuplicateEmail  = errors.New("email already in use")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Partner struct {
	ID           uuid.UUID
	CompanyName  string
	ContactName  string
	ContactEmail string
	ContactPhone string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Agent struct {
	ID          uuid.UUID
	PartnerID   uuid.UUID
	FullName    string
	Email       string
	Phone       string
	EmployeeRef *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (r *Repository) CreatePartner(ctx context.Context, p Partner) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO partners (id, company_name, contact_name, contact_email, contact_phone, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.CompanyName, p.ContactName, p.ContactEmail, p.ContactPhone, p.IsActive)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert partner: %w", err)
	}
	return nil
}

func (r *Repository) GetPartner(ctx context.Context, id uuid.UUID) (Partner, error) {
	var p Partner
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_name, contact_name, contact_email, contact_phone, is_active, created_at, updated_at
		FROM partners WHERE id = $1
	`, id).Scan(&p.ID, &p.CompanyName, &p.ContactName, &p.ContactEmail, &p.ContactPhone,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, ErrPartnerNotFound
	}
	if err != nil {
		return Partner{}, fmt.Errorf("get partner: %w", err)
	}
	return p, nil
}

func (r *Repository) ListPartners(ctx context.Context) ([]Partner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_name, contact_name, contact_email, contact_phone, is_active, created_at, updated_at
		FROM partners
		ORDER BY company_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	items := make([]Partner, 0)
	for rows.Next() {
		var p Partner
		if err := rows.Scan(&p.ID, &p.CompanyName, &p.ContactName, &p.ContactEmail, &p.ContactPhone,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) SetPartnerActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE partners SET is_active = $2, updated_at = now() WHERE id = $1
	`, id, active)
	if err != nil {
		return false, fmt.Errorf("set partner active: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) CreateAgent(ctx context.Context, a Agent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO agents (id, partner_id, full_name, email, phone, employee_ref, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.PartnerID, a.FullName, a.Email, a.Phone, a.EmployeeRef, a.IsActive)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

func (r *Repository) GetAgent(ctx context.Context, id uuid.UUID) (Agent, error) {
	var a Agent
	err := r.pool.QueryRow(ctx, `
		SELECT id, partner_id, full_name, email, phone, employee_ref, is_active, created_at, updated_at
		FROM agents WHERE id = $1
	`, id).Scan(&a.ID, &a.PartnerID, &a.FullName, &a.Email, &a.Phone, &a.EmployeeRef,
		&a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrAgentNotFound
	}
	if err != nil {
		return Agent{}, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

func (r *Repository) ListAgents(ctx context.Context, partnerID uuid.UUID) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, partner_id, full_name, email, phone, employee_ref, is_active, created_at, updated_at
		FROM agents
		WHERE partner_id = $1
		ORDER BY full_name ASC
	`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	items := make([]Agent, 0)
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.PartnerID, &a.FullName, &a.Email, &a.Phone, &a.EmployeeRef,
			&a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

type AgentUpdate struct {
	FullName    *string
	Phone       *string
	EmployeeRef *string
	IsActive    *bool
}

// UpdateAgent patches only the provided fields, scoped to the owning partner.
func (r *Repository) UpdateAgent(ctx context.Context, partnerID, agentID uuid.UUID, u AgentUpdate) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents
		SET full_name = COALESCE($3, full_name),
		    phone = COALESCE($4, phone),
		    employee_ref = COALESCE($5, employee_ref),
		    is_active = COALESCE($6, is_active),
		    updated_at = now()
		WHERE id = $1 AND partner_id = $2
	`, agentID, partnerID, u.FullName, u.Phone, u.EmployeeRef, u.IsActive)
	if err != nil {
		return false, fmt.Errorf("update agent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) DeactivateAgent(ctx context.Context, partnerID, agentID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents SET is_active = false, updated_at = now()
		WHERE id = $1 AND partner_id = $2
	`, agentID, partnerID)
	if err != nil {
		return false, fmt.Errorf("deactivate agent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
