// Package transport defines request/response DTOs for the partners module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"reprice_backend/internal/partners/repository"
)

type CreatePartnerRequest struct {
	CompanyName  string `json:"companyName" validate:"required,min=2,max=200"`
	ContactName  string `json:"contactName" validate:"required,min=2,max=100"`
	ContactEmail string `json:"contactEmail" validate:"required,email"`
	ContactPhone string `json:"contactPhone" validate:"required,min=7,max=20"`
}

type PartnerResponse struct {
	ID           uuid.UUID `json:"id"`
	CompanyName  string    `json:"companyName"`
	ContactName  string    `json:"contactName"`
	ContactEmail string    `json:"contactEmail"`
	ContactPhone string    `json:"contactPhone"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

func ToPartnerResponse(p repository.Partner) PartnerResponse {
	return PartnerResponse{
		ID:           p.ID,
		CompanyName:  p.CompanyName,
		ContactName:  p.ContactName,
		ContactEmail: p.ContactEmail,
		ContactPhone: p.ContactPhone,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
	}
}

type CreateAgentRequest struct {
	FullName    string  `json:"fullName" validate:"required,min=2,max=100"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       string  `json:"phone" validate:"required,min=7,max=20"`
	EmployeeRef *string `json:"employeeRef,omitempty" validate:"omitempty,max=50"`
}

type UpdateAgentRequest struct {
	FullName    *string `json:"fullName,omitempty" validate:"omitempty,min=2,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
	EmployeeRef *string `json:"employeeRef,omitempty" validate:"omitempty,max=50"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

type AgentResponse struct {
	ID          uuid.UUID `json:"id"`
	PartnerID   uuid.UUID `json:"partnerId"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	EmployeeRef *string   `json:"employeeRef,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

func ToAgentResponse(a repository.Agent) AgentResponse {
	return AgentResponse{
		ID:          a.ID,
		PartnerID:   a.PartnerID,
		FullName:    a.FullName,
		Email:       a.Email,
		Phone:       a.Phone,
		EmployeeRef: a.EmployeeRef,
		IsActive:    a.IsActive,
		CreatedAt:   a.CreatedAt,
	}
}
