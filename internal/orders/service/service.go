// Package service is the read side of the order book plus the admin
// cancel. State transitions live with marketplace (purchase) and
// assignment (fulfillment); this service answers "what do I have and
// what happened to it".
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"reprice_backend/internal/orders/domain"
	"reprice_backend/internal/orders/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
)

// Store is the order persistence surface the service reads from.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Order, error)
	ListByOwner(ctx context.Context, partnerID uuid.UUID, filter repository.OwnedFilter) ([]repository.Order, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, params repository.ListParams) ([]repository.Order, error)
	ListHistory(ctx context.Context, orderID uuid.UUID) ([]repository.HistoryEntry, error)
	Cancel(ctx context.Context, leadID, adminID uuid.UUID, reason string) (bool, error)
}

// ListingCache is invalidated when a cancel removes a lead from the
// marketplace listing.
type ListingCache interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	store Store
	log   *logger.Logger

	cache ListingCache
}

func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// SetCache injects the marketplace listing cache.
func (s *Service) SetCache(cache ListingCache) {
	s.cache = cache
}

// Viewer identifies who is asking, for per-order access checks.
type Viewer struct {
	ActorID   uuid.UUID
	PartnerID uuid.UUID
	IsAdmin   bool
	IsAgent   bool
}

// CanView reports whether the viewer may read this order: admins always,
// the owning partner, and the currently assigned agent.
func (v Viewer) CanView(o repository.Order) bool {
	if v.IsAdmin {
		return true
	}
	if v.IsAgent {
		return o.AgentID != nil && *o.AgentID == v.ActorID
	}
	return o.OwnerPartnerID != nil && *o.OwnerPartnerID == v.PartnerID
}

// Order returns one order if the viewer may see it.
func (s *Service) Order(ctx context.Context, orderID uuid.UUID, viewer Viewer) (repository.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Order{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return repository.Order{}, err
	}
	if !viewer.CanView(order) {
		// Hide existence from outsiders.
		return repository.Order{}, apperr.NotFound("order not found")
	}
	return order, nil
}

// OwnedFilter narrows the partner's order list.
type OwnedFilter struct {
	Status     *domain.Status
	Unassigned bool
	Limit      int
	Offset     int
}

func (s *Service) OwnedOrders(ctx context.Context, partnerID uuid.UUID, f OwnedFilter) ([]repository.Order, error) {
	if f.Status != nil && !domain.Known(*f.Status) {
		return nil, apperr.Validation("unknown order status")
	}
	return s.store.ListByOwner(ctx, partnerID, repository.OwnedFilter{
		Status:     f.Status,
		Unassigned: f.Unassigned,
		ListParams: repository.ListParams{Limit: f.Limit, Offset: f.Offset},
	})
}

func (s *Service) AgentOrders(ctx context.Context, agentID uuid.UUID, limit, offset int) ([]repository.Order, error) {
	return s.store.ListByAgent(ctx, agentID, repository.ListParams{Limit: limit, Offset: offset})
}

// History returns the order's audit trail, oldest first.
func (s *Service) History(ctx context.Context, orderID uuid.UUID, viewer Viewer) ([]repository.HistoryEntry, error) {
	if _, err := s.Order(ctx, orderID, viewer); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, orderID)
}

// Cancel pulls an unsold lead from the marketplace. Only leads nobody has
// purchased can be cancelled; sold orders belong to their partner.
func (s *Service) Cancel(ctx context.Context, leadID, adminID uuid.UUID, reason string) error {
	reason = strings.TrimSpace(reason)
	if len(reason) < 3 {
		return apperr.Validation("cancellation reason must be at least 3 characters")
	}

	cancelled, err := s.store.Cancel(ctx, leadID, adminID, reason)
	if err != nil {
		return err
	}
	if !cancelled {
		order, err := s.store.GetByID(ctx, leadID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		if err != nil {
			return err
		}
		return apperr.NewCoded(apperr.KindConflict, "InvalidTransition", "only unsold leads can be cancelled").
			WithDetails(map[string]string{"status": string(order.Status)})
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Error("listing cache invalidation failed", "error", err)
		}
	}
	return nil
}
