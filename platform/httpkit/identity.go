// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Actor roles carried in the access token. Partners and agents are distinct
// identities with different capability sets; a role discriminant replaces
// any notion of user-type inheritance.
const (
	RolePartner = "partner"
	RoleAgent   = "agent"
	RoleAdmin   = "admin"
)

// Identity represents the authenticated caller's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access caller information without depending on Gin.
type Identity interface {
	// ActorID returns the authenticated partner/agent/admin ID.
	ActorID() uuid.UUID
	// Role returns the caller's role discriminant.
	Role() string
	// PartnerID returns the partner this actor acts for: the actor itself
	// for partners, the employing partner for agents, uuid.Nil for admins.
	PartnerID() uuid.UUID
	// IsAuthenticated returns true if the caller is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	actorID       uuid.UUID
	role          string
	partnerID     uuid.UUID
	authenticated bool
}

func (i *identity) ActorID() uuid.UUID   { return i.actorID }
func (i *identity) Role() string         { return i.role }
func (i *identity) PartnerID() uuid.UUID { return i.partnerID }
func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if caller info is not present.
func GetIdentity(c *gin.Context) Identity {
	actorID, actorOK := c.Get(ContextActorIDKey)
	if !actorOK {
		return &identity{authenticated: false}
	}

	aid, ok := actorID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	role, _ := c.Get(ContextRoleKey)
	roleStr, _ := role.(string)

	var partnerID uuid.UUID
	if value, ok := c.Get(ContextPartnerIDKey); ok {
		partnerID, _ = value.(uuid.UUID)
	}

	return &identity{
		actorID:       aid,
		role:          roleStr,
		partnerID:     partnerID,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the caller is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
