package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// SubscriptionRepository defines the interface for subscription data access
type SubscriptionRepository interface {
	// GetByID retrieves a subscription by ID
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error)

	// GetPausableByUserID retrieves the user's subscriptions in status active or trialing
	GetPausableByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)

	// GetPausedForPaymentFailure retrieves subscriptions paused by this engine
	// with reason payment_method_failed
	GetPausedForPaymentFailure(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error)

	// Update persists status and pause metadata
	Update(ctx context.Context, subscription *entity.Subscription) error
}
