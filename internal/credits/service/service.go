// Package service manages partner credit accounts: balances, the
// append-only ledger, top-up plans, and refunds. Purchase debits are
// settled inside the marketplace purchase transaction; this service
// owns everything else on the ledger.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"reprice_backend/internal/credits/repository"
	"reprice_backend/internal/events"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

// Store is the ledger persistence surface the service needs.
type Store interface {
	Balance(ctx context.Context, partnerID uuid.UUID) (int64, error)
	ListEntries(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]repository.LedgerEntry, error)
	SumEntries(ctx context.Context, partnerID uuid.UUID) (int64, error)
	ListActivePlans(ctx context.Context) ([]repository.Plan, error)
	GetActivePlan(ctx context.Context, id uuid.UUID) (repository.Plan, error)
	TopUp(ctx context.Context, partnerID uuid.UUID, amount int64, entry repository.LedgerEntry) error
	Refund(ctx context.Context, leadID uuid.UUID, amount int64) (repository.LedgerEntry, bool, error)
}

type Service struct {
	store   Store
	bus     events.Bus
	metrics *metrics.Metrics
	log     *logger.Logger
}

func New(store Store, bus events.Bus, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, metrics: m, log: log}
}

func (s *Service) Balance(ctx context.Context, partnerID uuid.UUID) (int64, error) {
	return s.store.Balance(ctx, partnerID)
}

func (s *Service) Transactions(ctx context.Context, partnerID uuid.UUID, limit, offset int) ([]repository.LedgerEntry, error) {
	return s.store.ListEntries(ctx, partnerID, limit, offset)
}

func (s *Service) Plans(ctx context.Context) ([]repository.Plan, error) {
	return s.store.ListActivePlans(ctx)
}

// PurchasePlan tops the partner up with the plan's credits plus bonus.
// Payment collection happens outside this system; by the time this is
// called the plan price has been settled.
func (s *Service) PurchasePlan(ctx context.Context, partnerID, planID uuid.UUID) (repository.Plan, int64, error) {
	plan, err := s.store.GetActivePlan(ctx, planID)
	if errors.Is(err, repository.ErrPlanNotFound) {
		return repository.Plan{}, 0, apperr.NotFound("credit plan not found")
	}
	if err != nil {
		return repository.Plan{}, 0, err
	}

	total := plan.TotalCredits()
	entry := repository.LedgerEntry{
		ID:        uuid.New(),
		PartnerID: partnerID,
		Delta:     total,
		Reason:    repository.ReasonPlanTopup,
	}
	if err := s.store.TopUp(ctx, partnerID, total, entry); err != nil {
		return repository.Plan{}, 0, err
	}
	s.metrics.LedgerEntries.WithLabelValues(string(repository.ReasonPlanTopup)).Inc()
	return plan, total, nil
}

// Refund returns the lead's purchase amount to the buying partner. Safe to
// call more than once; only the first call moves credits.
func (s *Service) Refund(ctx context.Context, leadID uuid.UUID) (int64, error) {
	return s.refund(ctx, leadID, 0)
}

// RefundPartial returns part of the purchase amount, capped at the
// original debit. Used by the final-price reconciliation after pickup.
func (s *Service) RefundPartial(ctx context.Context, leadID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, apperr.Validation("refund amount must be positive")
	}
	return s.refund(ctx, leadID, amount)
}

func (s *Service) refund(ctx context.Context, leadID uuid.UUID, amount int64) (int64, error) {
	entry, applied, err := s.store.Refund(ctx, leadID, amount)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, apperr.NotFound("no purchase found for this lead")
	}
	if err != nil {
		return 0, err
	}
	if !applied {
		return 0, nil
	}

	s.metrics.LedgerEntries.WithLabelValues(string(repository.ReasonRefund)).Inc()
	s.bus.Publish(ctx, events.CreditsRefunded{
		BaseEvent: events.NewBaseEvent(),
		PartnerID: entry.PartnerID,
		LeadID:    leadID,
		Amount:    entry.Delta,
	})
	return entry.Delta, nil
}

// Reconcile verifies the invariant that the balance equals the ledger sum.
// A mismatch is logged as an invariant violation and returned to the caller.
func (s *Service) Reconcile(ctx context.Context, partnerID uuid.UUID) (balance, ledgerSum int64, err error) {
	balance, err = s.store.Balance(ctx, partnerID)
	if err != nil {
		return 0, 0, err
	}
	ledgerSum, err = s.store.SumEntries(ctx, partnerID)
	if err != nil {
		return 0, 0, err
	}
	if balance != ledgerSum {
		s.log.InvariantViolation("credit balance equals ledger sum",
			"partner_id", partnerID.String(), "balance", balance, "ledger_sum", ledgerSum)
	}
	return balance, ledgerSum, nil
}
