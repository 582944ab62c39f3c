package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// PaymentMethodRepository defines the interface for payment method data access
type PaymentMethodRepository interface {
	// Create stores a new payment method
	Create(ctx context.Context, method *entity.PaymentMethod) error

	// GetByGatewayID retrieves a payment method by its gateway identifier
	GetByGatewayID(ctx context.Context, gatewayMethodID string) (*entity.PaymentMethod, error)

	// GetByUserID retrieves all payment methods for a user
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.PaymentMethod, error)

	// GetActiveByUserID retrieves payment methods with status active for a user
	GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.PaymentMethod, error)

	// GetExpiringCards retrieves card methods whose expiry falls before the horizon
	GetExpiringCards(ctx context.Context, horizon time.Time) ([]*entity.PaymentMethod, error)

	// UpdateStatus updates the stored status and last error of a payment method.
	// Last-write-wins keyed by gateway identifier.
	UpdateStatus(ctx context.Context, gatewayMethodID string, status entity.PaymentMethodStatus, lastError *string) error

	// UpdateExpiry persists a refreshed card expiry reported by the gateway
	UpdateExpiry(ctx context.Context, gatewayMethodID string, expMonth, expYear int) error

	// SetDefault marks the given method as the user's sole default
	SetDefault(ctx context.Context, userID uuid.UUID, gatewayMethodID string) error
}
