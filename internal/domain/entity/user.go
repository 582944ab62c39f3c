package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the local identity a gateway customer reference resolves to
type User struct {
	ID                uuid.UUID
	GatewayCustomerID string
	Email             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewUser creates a new user entity
func NewUser(gatewayCustomerID, email string) *User {
	now := time.Now()
	return &User{
		ID:                uuid.New(),
		GatewayCustomerID: gatewayCustomerID,
		Email:             email,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
