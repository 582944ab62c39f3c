package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// GetByGatewayCustomerID resolves a gateway customer reference to a user
	GetByGatewayCustomerID(ctx context.Context, gatewayCustomerID string) (*entity.User, error)
}
