// Package service manages the partner and agent registry. Agents belong
// to exactly one partner; the eligibility check here is what assignment
// relies on before binding a lead to an agent.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"reprice_backend/internal/partners/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
)

// Store is the registry persistence surface the service needs.
type Store interface {
	CreatePartner(ctx context.Context, p repository.Partner) error
	GetPartner(ctx context.Context, id uuid.UUID) (repository.Partner, error)
	ListPartners(ctx context.Context) ([]repository.Partner, error)
	SetPartnerActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	CreateAgent(ctx context.Context, a repository.Agent) error
	GetAgent(ctx context.Context, id uuid.UUID) (repository.Agent, error)
	ListAgents(ctx context.Context, partnerID uuid.UUID) ([]repository.Agent, error)
	UpdateAgent(ctx context.Context, partnerID, agentID uuid.UUID, u repository.AgentUpdate) (bool, error)
	DeactivateAgent(ctx context.Context, partnerID, agentID uuid.UUID) (bool, error)
}

type Service struct {
	repo Store
	log  *logger.Logger
}

func New(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

type CreatePartnerParams struct {
	CompanyName  string
	ContactName  string
	ContactEmail string
	ContactPhone string
}

func (s *Service) CreatePartner(ctx context.Context, p CreatePartnerParams) (repository.Partner, error) {
	partner := repository.Partner{
		ID:           uuid.New(),
		CompanyName:  p.CompanyName,
		ContactName:  p.ContactName,
		ContactEmail: p.ContactEmail,
		ContactPhone: p.ContactPhone,
		IsActive:     true,
	}
	if err := s.repo.CreatePartner(ctx, partner); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return repository.Partner{}, apperr.Conflict("a partner with this email already exists")
		}
		return repository.Partner{}, err
	}
	return partner, nil
}

func (s *Service) GetPartner(ctx context.Context, id uuid.UUID) (repository.Partner, error) {
	partner, err := s.repo.GetPartner(ctx, id)
	if errors.Is(err, repository.ErrPartnerNotFound) {
		return repository.Partner{}, apperr.NotFound("partner not found")
	}
	return partner, err
}

func (s *Service) ListPartners(ctx context.Context) ([]repository.Partner, error) {
	return s.repo.ListPartners(ctx)
}

func (s *Service) SetPartnerActive(ctx context.Context, id uuid.UUID, active bool) error {
	updated, err := s.repo.SetPartnerActive(ctx, id, active)
	if err != nil {
		return err
	}
	if !updated {
		return apperr.NotFound("partner not found")
	}
	return nil
}

type CreateAgentParams struct {
	PartnerID   uuid.UUID
	FullName    string
	Email       string
	Phone       string
	EmployeeRef *string
}

func (s *Service) CreateAgent(ctx context.Context, p CreateAgentParams) (repository.Agent, error) {
	agent := repository.Agent{
		ID:          uuid.New(),
		PartnerID:   p.PartnerID,
		FullName:    p.FullName,
		Email:       p.Email,
		Phone:       p.Phone,
		EmployeeRef: p.EmployeeRef,
		IsActive:    true,
	}
	if err := s.repo.CreateAgent(ctx, agent); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return repository.Agent{}, apperr.Conflict("an agent with this email already exists")
		}
		return repository.Agent{}, err
	}
	return agent, nil
}

func (s *Service) ListAgents(ctx context.Context, partnerID uuid.UUID) ([]repository.Agent, error) {
	return s.repo.ListAgents(ctx, partnerID)
}

func (s *Service) GetAgent(ctx context.Context, partnerID, agentID uuid.UUID) (repository.Agent, error) {
	agent, err := s.repo.GetAgent(ctx, agentID)
	if errors.Is(err, repository.ErrAgentNotFound) {
		return repository.Agent{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return repository.Agent{}, err
	}
	if agent.PartnerID != partnerID {
		return repository.Agent{}, apperr.NotFound("agent not found")
	}
	return agent, nil
}

func (s *Service) UpdateAgent(ctx context.Context, partnerID, agentID uuid.UUID, u repository.AgentUpdate) (repository.Agent, error) {
	updated, err := s.repo.UpdateAgent(ctx, partnerID, agentID, u)
	if err != nil {
		return repository.Agent{}, err
	}
	if !updated {
		return repository.Agent{}, apperr.NotFound("agent not found")
	}
	return s.GetAgent(ctx, partnerID, agentID)
}

func (s *Service) DeactivateAgent(ctx context.Context, partnerID, agentID uuid.UUID) error {
	updated, err := s.repo.DeactivateAgent(ctx, partnerID, agentID)
	if err != nil {
		return err
	}
	if !updated {
		return apperr.NotFound("agent not found")
	}
	return nil
}

// EligibleAgent verifies the agent exists, is active, and works for the
// partner. The error codes line up with what assignment reports upstream.
func (s *Service) EligibleAgent(ctx context.Context, partnerID, agentID uuid.UUID) (repository.Agent, error) {
	agent, err := s.repo.GetAgent(ctx, agentID)
	if errors.Is(err, repository.ErrAgentNotFound) {
		return repository.Agent{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return repository.Agent{}, err
	}
	if agent.PartnerID != partnerID {
		return repository.Agent{}, apperr.NewCoded(apperr.KindForbidden, "NotOwner", "agent belongs to a different partner")
	}
	if !agent.IsActive {
		return repository.Agent{}, apperr.NewCoded(apperr.KindConflict, "AgentInactive", "agent is deactivated")
	}
	return agent, nil
}
