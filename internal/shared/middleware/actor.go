package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextKeyActor     = "actor"
	ContextKeyRequestID = "request_id"

	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// Actor is the authenticated caller of one request
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

func SetActor(c *gin.Context, actor *Actor) {
	c.Set(ContextKeyActor, actor)
}

// CurrentActor returns the request actor, nil for anonymous requests
func CurrentActor(c *gin.Context) *Actor {
	v, exists := c.Get(ContextKeyActor)
	if !exists {
		return nil
	}
	actor, _ := v.(*Actor)
	return actor
}

// CurrentActorID is a shortcut for handlers that only need the customer id
func CurrentActorID(c *gin.Context) *uuid.UUID {
	actor := CurrentActor(c)
	if actor == nil {
		return nil
	}
	id := actor.ID
	return &id
}
