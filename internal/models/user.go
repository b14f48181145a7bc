package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWT claims structure
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// Caller identifies who is driving a cart or checkout request. Guests only
// carry a session; signed-in users carry both.
type Caller struct {
	UserID    *uuid.UUID
	SessionID string
}

func (c Caller) IsAnonymous() bool {
	return c.UserID == nil && c.SessionID == ""
}
