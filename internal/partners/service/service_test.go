package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"reprice_backend/internal/partners/repository"
	"reprice_backend/platform/apperr"
	"reprice_backend/platform/logger"
)

type fakeRegistry struct {
	partners map[uuid.UUID]repository.Partner
	agents   map[uuid.UUID]repository.Agent
	emails   map[string]bool
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		partners: make(map[uuid.UUID]repository.Partner),
		agents:   make(map[uuid.UUID]repository.Agent),
		emails:   make(map[string]bool),
	}
}

func (f *fakeRegistry) CreatePartner(_ context.Context, p repository.Partner) error {
	if f.emails[p.ContactEmail] {
		return repository.ErrDuplicateEmail
	}
	f.emails[p.ContactEmail] = true
	f.partners[p.ID] = p
	return nil
}

func (f *fakeRegistry) GetPartner(_ context.Context, id uuid.UUID) (repository.Partner, error) {
	p, ok := f.partners[id]
	if !ok {
		return repository.Partner{}, repository.ErrPartnerNotFound
	}
	return p, nil
}

func (f *fakeRegistry) ListPartners(_ context.Context) ([]repository.Partner, error) {
	out := make([]repository.Partner, 0, len(f.partners))
	for _, p := range f.partners {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRegistry) SetPartnerActive(_ context.Context, id uuid.UUID, active bool) (bool, error) {
	p, ok := f.partners[id]
	if !ok {
		return false, nil
	}
	p.IsActive = active
	f.partners[id] = p
	return true, nil
}

func (f *fakeRegistry) CreateAgent(_ context.Context, a repository.Agent) error {
	if f.emails[a.Email] {
		return repository.ErrDuplicateEmail
	}
	f.emails[a.Email] = true
	f.agents[a.ID] = a
	return nil
}

func (f *fakeRegistry) GetAgent(_ context.Context, id uuid.UUID) (repository.Agent, error) {
	a, ok := f.agents[id]
	if !ok {
		return repository.Agent{}, repository.ErrAgentNotFound
	}
	return a, nil
}

func (f *fakeRegistry) ListAgents(_ context.Context, partnerID uuid.UUID) ([]repository.Agent, error) {
	out := make([]repository.Agent, 0)
	for _, a := range f.agents {
		if a.PartnerID == partnerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeRegistry) UpdateAgent(_ context.Context, partnerID, agentID uuid.UUID, u repository.AgentUpdate) (bool, error) {
	a, ok := f.agents[agentID]
	if !ok || a.PartnerID != partnerID {
		return false, nil
	}
	if u.FullName != nil {
		a.FullName = *u.FullName
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
	if u.EmployeeRef != nil {
		a.EmployeeRef = u.EmployeeRef
	}
	if u.IsActive != nil {
		a.IsActive = *u.IsActive
	}
	f.agents[agentID] = a
	return true, nil
}

func (f *fakeRegistry) DeactivateAgent(_ context.Context, partnerID, agentID uuid.UUID) (bool, error) {
	active := false
	return f.UpdateAgent(context.Background(), partnerID, agentID, repository.AgentUpdate{IsActive: &active})
}

func newRegistryService(store Store) *Service {
	return New(store, logger.New("development"))
}

func seedAgent(t *testing.T, svc *Service, partnerID uuid.UUID) repository.Agent {
	t.Helper()
	agent, err := svc.CreateAgent(context.Background(), CreateAgentParams{
		PartnerID: partnerID,
		FullName:  "Ravi Kumar",
		Email:     uuid.NewString() + "@pickup.example",
		Phone:     "+919812345678",
	})
	if err != nil {
		t.Fatalf("CreateAgent() error = %v", err)
	}
	return agent
}

func TestCreatePartnerRejectsDuplicateEmail(t *testing.T) {
	svc := newRegistryService(newFakeRegistry())
	params := CreatePartnerParams{
		CompanyName:  "Cashify Hub East",
		ContactName:  "Meera Shah",
		ContactEmail: "ops@hubeast.example",
		ContactPhone: "+919811112222",
	}

	if _, err := svc.CreatePartner(context.Background(), params); err != nil {
		t.Fatalf("CreatePartner() error = %v", err)
	}
	_, err := svc.CreatePartner(context.Background(), params)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("duplicate CreatePartner() error = %v, want KindConflict", err)
	}
}

func TestEligibleAgentChecks(t *testing.T) {
	store := newFakeRegistry()
	svc := newRegistryService(store)
	partnerID := uuid.New()

	agent := seedAgent(t, svc, partnerID)
	inactive := seedAgent(t, svc, partnerID)
	if err := svc.DeactivateAgent(context.Background(), partnerID, inactive.ID); err != nil {
		t.Fatalf("DeactivateAgent() error = %v", err)
	}

	tests := []struct {
		name      string
		partnerID uuid.UUID
		agentID   uuid.UUID
		wantCode  string
	}{
		{"eligible", partnerID, agent.ID, ""},
		{"unknown agent", partnerID, uuid.New(), ""},
		{"foreign partner", uuid.New(), agent.ID, "NotOwner"},
		{"deactivated", partnerID, inactive.ID, "AgentInactive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.EligibleAgent(context.Background(), tt.partnerID, tt.agentID)
			switch tt.name {
			case "eligible":
				if err != nil {
					t.Fatalf("EligibleAgent() error = %v", err)
				}
				if got.ID != agent.ID {
					t.Errorf("EligibleAgent() = %s, want %s", got.ID, agent.ID)
				}
			case "unknown agent":
				if apperr.GetKind(err) != apperr.KindNotFound {
					t.Fatalf("EligibleAgent() error = %v, want KindNotFound", err)
				}
			default:
				if !apperr.IsCode(err, tt.wantCode) {
					t.Fatalf("EligibleAgent() error = %v, want code %s", err, tt.wantCode)
				}
			}
		})
	}
}

func TestGetAgentScopedToPartner(t *testing.T) {
	svc := newRegistryService(newFakeRegistry())
	partnerID := uuid.New()
	agent := seedAgent(t, svc, partnerID)

	if _, err := svc.GetAgent(context.Background(), partnerID, agent.ID); err != nil {
		t.Fatalf("GetAgent() error = %v", err)
	}
	_, err := svc.GetAgent(context.Background(), uuid.New(), agent.ID)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("foreign GetAgent() error = %v, want KindNotFound", err)
	}
}

func TestUpdateAgentUnknownReturnsNotFound(t *testing.T) {
	svc := newRegistryService(newFakeRegistry())
	name := "Renamed Agent"
	_, err := svc.UpdateAgent(context.Background(), uuid.New(), uuid.New(), repository.AgentUpdate{FullName: &name})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("UpdateAgent() error = %v, want KindNotFound", err)
	}
}
