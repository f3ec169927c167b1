// Package service implements the lead marketplace: intake, listing,
// reservation, and the purchase settlement flow.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"reprice_backend/internal/events"
	locksrepo "reprice_backend/internal/locks/repository"
	"reprice_backend/internal/marketplace/repository"
	"reprice_backend/internal/orders/domain"
	ordersrepo "reprice_backend/internal/orders/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
	"reprice_backend/platform/metrics"
)

// OrderStore is the order persistence surface the marketplace needs.
type OrderStore interface {
	Create(ctx context.Context, o ordersrepo.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (ordersrepo.Order, error)
	ListAvailable(ctx context.Context, params ordersrepo.ListParams) ([]ordersrepo.Order, error)
	ListLockedByPartner(ctx context.Context, partnerID uuid.UUID) ([]ordersrepo.Order, error)
	AppendHistory(ctx context.Context, e ordersrepo.HistoryEntry) error
}

// Settler runs the atomic purchase transaction.
type Settler interface {
	Purchase(ctx context.Context, leadID, partnerID uuid.UUID, now time.Time) (ordersrepo.Order, error)
}

// LockManager is the reservation surface exposed by the locks module.
type LockManager interface {
	Acquire(ctx context.Context, leadID, partnerID uuid.UUID) (locksrepo.Lock, error)
	Release(ctx context.Context, leadID, partnerID uuid.UUID) error
	Owned(ctx context.Context, leadID, partnerID uuid.UUID) (locksrepo.Lock, bool, error)
}

// BalanceReader reports partner credit balances for purchase previews.
type BalanceReader interface {
	Balance(ctx context.Context, partnerID uuid.UUID) (int64, error)
}

// ListingCache caches serialized listing pages. A nil cache disables it.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte)
	Invalidate(ctx context.Context)
}

type Service struct {
	orders  OrderStore
	settler Settler
	locks   LockManager
	credits BalanceReader
	cache   ListingCache
	bus     events.Bus
	metrics *metrics.Metrics
	log     *logger.Logger

	leadCostPercent float64
	now             func() time.Time
}

func New(orders OrderStore, settler Settler, locks LockManager, credits BalanceReader,
	bus events.Bus, m *metrics.Metrics, log *logger.Logger, leadCostPercent float64) *Service {
	return &Service{
		orders:          orders,
		settler:         settler,
		locks:           locks,
		credits:         credits,
		bus:             bus,
		metrics:         m,
		log:             log,
		leadCostPercent: leadCostPercent,
		now:             time.Now,
	}
}

// SetCache injects the listing cache.
func (s *Service) SetCache(c ListingCache) {
	s.cache = c
}

// LeadCost derives the purchase price from the customer's estimated
// device price, rounded to the nearest credit.
func (s *Service) LeadCost(estimatedPrice int64) int64 {
	return int64(math.Round(float64(estimatedPrice) * s.leadCostPercent / 100))
}

type IntakeParams struct {
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  *string
	PhoneName      string
	Brand          *string
	Model          *string
	RAMGB          *float64
	StorageGB      *float64
	Variant        *string
	Condition      *string
	EstimatedPrice int64
	AddressLine    *string
	City           *string
	State          *string
	Pincode        *string
}

// Intake registers a new customer lead on the marketplace.
func (s *Service) Intake(ctx context.Context, p IntakeParams) (ordersrepo.Order, error) {
	if p.EstimatedPrice <= 0 {
		return ordersrepo.Order{}, apperr.Validation("estimated price must be positive")
	}

	order := ordersrepo.Order{
		ID:                uuid.New(),
		CustomerName:      p.CustomerName,
		CustomerPhone:     p.CustomerPhone,
		CustomerEmail:     p.CustomerEmail,
		PhoneName:         p.PhoneName,
		Brand:             p.Brand,
		Model:             p.Model,
		RAMGB:             p.RAMGB,
		StorageGB:         p.StorageGB,
		Variant:           p.Variant,
		Condition:         p.Condition,
		EstimatedPrice:    p.EstimatedPrice,
		LeadCost:          s.LeadCost(p.EstimatedPrice),
		Status:            domain.StatusLeadCreated,
		PickupAddressLine: p.AddressLine,
		PickupCity:        p.City,
		PickupState:       p.State,
		PickupPincode:     p.Pincode,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return ordersrepo.Order{}, err
	}
	if err := s.orders.AppendHistory(ctx, ordersrepo.HistoryEntry{
		OrderID:   order.ID,
		ToStatus:  domain.StatusLeadCreated,
		ActorType: domain.ActorSystem,
	}); err != nil {
		s.log.DatabaseError("append intake history", err)
	}
	s.invalidateListing(ctx)
	return order, nil
}

// AvailableLeads returns the marketplace page, served from cache when a
// fresh copy exists.
func (s *Service) AvailableLeads(ctx context.Context, params ordersrepo.ListParams) ([]ordersrepo.Order, error) {
	key := fmt.Sprintf("marketplace:listing:%d:%d", params.Limit, params.Offset)
	if s.cache != nil {
		if payload, ok := s.cache.Get(ctx, key); ok {
			var cached []ordersrepo.Order
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		}
	}

	leads, err := s.orders.ListAvailable(ctx, params)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if payload, err := json.Marshal(leads); err == nil {
			s.cache.Set(ctx, key, payload)
		}
	}
	return leads, nil
}

func (s *Service) LockedLeads(ctx context.Context, partnerID uuid.UUID) ([]ordersrepo.Order, error) {
	return s.orders.ListLockedByPartner(ctx, partnerID)
}

func (s *Service) Lead(ctx context.Context, leadID uuid.UUID) (ordersrepo.Order, error) {
	order, err := s.orders.GetByID(ctx, leadID)
	if errors.Is(err, ordersrepo.ErrNotFound) {
		return ordersrepo.Order{}, apperr.NotFound("lead not found")
	}
	return order, err
}

// Lock reserves the lead for the partner.
func (s *Service) Lock(ctx context.Context, leadID, partnerID uuid.UUID) (locksrepo.Lock, error) {
	lock, err := s.locks.Acquire(ctx, leadID, partnerID)
	if err != nil {
		return locksrepo.Lock{}, err
	}
	s.invalidateListing(ctx)
	return lock, nil
}

// LockOwned reports whether the partner holds the live lock on the lead.
func (s *Service) LockOwned(ctx context.Context, leadID, partnerID uuid.UUID) (locksrepo.Lock, bool, error) {
	return s.locks.Owned(ctx, leadID, partnerID)
}

// Unlock releases the partner's reservation.
func (s *Service) Unlock(ctx context.Context, leadID, partnerID uuid.UUID) error {
	if err := s.locks.Release(ctx, leadID, partnerID); err != nil {
		return err
	}
	s.invalidateListing(ctx)
	return nil
}

// PurchaseInfo previews a purchase: the price, the partner's balance, and
// whether the partner currently holds the lock required to buy.
type PurchaseInfo struct {
	LeadID        uuid.UUID
	LeadCost      int64
	Balance       int64
	CanAfford     bool
	HoldsLock     bool
	LockExpiresAt *time.Time
}

func (s *Service) GetPurchaseInfo(ctx context.Context, leadID, partnerID uuid.UUID) (PurchaseInfo, error) {
	order, err := s.Lead(ctx, leadID)
	if err != nil {
		return PurchaseInfo{}, err
	}

	balance, err := s.credits.Balance(ctx, partnerID)
	if err != nil {
		return PurchaseInfo{}, err
	}

	info := PurchaseInfo{
		LeadID:    leadID,
		LeadCost:  order.LeadCost,
		Balance:   balance,
		CanAfford: balance >= order.LeadCost,
	}
	if lock, owned, err := s.locks.Owned(ctx, leadID, partnerID); err == nil && owned {
		info.HoldsLock = true
		expiresAt := lock.ExpiresAt
		info.LockExpiresAt = &expiresAt
	}
	return info, nil
}

// Purchase settles the lead purchase and transfers ownership.
func (s *Service) Purchase(ctx context.Context, leadID, partnerID uuid.UUID) (ordersrepo.Order, error) {
	order, err := s.settler.Purchase(ctx, leadID, partnerID, s.now())
	if err != nil {
		return ordersrepo.Order{}, s.mapPurchaseError(err)
	}

	s.metrics.Purchases.WithLabelValues("settled").Inc()
	s.metrics.LedgerEntries.WithLabelValues("purchase").Inc()
	s.metrics.LockReleases.WithLabelValues("consumed").Inc()
	s.bus.Publish(ctx, events.LeadPurchased{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		PartnerID: partnerID,
		LeadCost:  order.LeadCost,
	})
	s.invalidateListing(ctx)
	return order, nil
}

func (s *Service) mapPurchaseError(err error) error {
	var holdErr *repository.HoldActiveError
	switch {
	case errors.As(err, &holdErr):
		s.metrics.Purchases.WithLabelValues("hold_active").Inc()
		return apperr.NewCoded(apperr.KindLocked, "HoldActive", "account is on hold").
			WithDetails(map[string]string{"reason": holdErr.Reason})
	case errors.Is(err, repository.ErrLeadNotFound):
		s.metrics.Purchases.WithLabelValues("not_found").Inc()
		return apperr.NotFound("lead not found")
	case errors.Is(err, repository.ErrNotPurchasable):
		s.metrics.Purchases.WithLabelValues("not_available").Inc()
		return apperr.NewCoded(apperr.KindGone, "LeadNotAvailable", "lead is no longer available for purchase")
	case errors.Is(err, repository.ErrNoLiveLock):
		s.metrics.Purchases.WithLabelValues("lock_expired").Inc()
		return apperr.NewCoded(apperr.KindGone, "LockExpired", "purchase requires a live lock on the lead")
	case errors.Is(err, repository.ErrInsufficientCredits):
		s.metrics.Purchases.WithLabelValues("insufficient_credits").Inc()
		return apperr.NewCoded(apperr.KindPaymentRequired, "InsufficientCredits", "credit balance does not cover the lead cost")
	case isTransient(err):
		s.metrics.Purchases.WithLabelValues("unavailable").Inc()
		s.log.DatabaseError("purchase settlement", err)
		return apperr.Unavailable("settlement could not complete, please retry")
	default:
		s.metrics.Purchases.WithLabelValues("error").Inc()
		s.log.DatabaseError("purchase settlement", err)
		return apperr.Internal("purchase failed")
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01" || pgErr.Code == "57P03"
	}
	return false
}

func (s *Service) invalidateListing(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
