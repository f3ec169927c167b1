package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrPlanNotFound = errors.New("credit plan not found")

type Plan struct {
	ID           uuid.UUID
	PlanName     string
	CreditAmount int64
	Price        int64
	BonusPercent float64
	Description  *string
	IsActive     bool
	CreatedAt    time.Time
}

// TotalCredits is the credit amount plus the plan's bonus, floored.
func (p Plan) TotalCredits() int64 {
	return p.CreditAmount + int64(float64(p.CreditAmount)*p.BonusPercent/100)
}

func (r *Repository) ListActivePlans(ctx context.Context) ([]Plan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, plan_name, credit_amount, price, bonus_percent, description, is_active, created_at
		FROM credit_plans
		WHERE is_active = true
		ORDER BY price ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list credit plans: %w", err)
	}
	defer rows.Close()

	items := make([]Plan, 0)
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.PlanName, &p.CreditAmount, &p.Price, &p.BonusPercent, &p.Description, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func (r *Repository) GetActivePlan(ctx context.Context, id uuid.UUID) (Plan, error) {
	var p Plan
	err := r.pool.QueryRow(ctx, `
		SELECT id, plan_name, credit_amount, price, bonus_percent, description, is_active, created_at
		FROM credit_plans
		WHERE id = $1 AND is_active = true
	`, id).Scan(&p.ID, &p.PlanName, &p.CreditAmount, &p.Price, &p.BonusPercent, &p.Description, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Plan{}, ErrPlanNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("get credit plan: %w", err)
	}
	return p, nil
}
