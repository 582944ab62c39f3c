package repository

import (
	"context"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// PaymentFailureRepository defines the interface for the append-only failure
// audit store. There is deliberately no update or delete.
type PaymentFailureRepository interface {
	// Create appends one failure occurrence row
	Create(ctx context.Context, failure *entity.PaymentMethodFailure) error

	// GetRecentByPaymentMethodID retrieves the most recent failures for an instrument
	GetRecentByPaymentMethodID(ctx context.Context, gatewayMethodID string, limit int) ([]*entity.PaymentMethodFailure, error)

	// GetLatest retrieves the newest failure for a (payment method, failure type) pair
	GetLatest(ctx context.Context, gatewayMethodID string, failureType entity.FailureType) (*entity.PaymentMethodFailure, error)
}
