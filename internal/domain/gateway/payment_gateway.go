package gateway

import (
	"context"
	"time"
)

// Instrument is the gateway's view of a stored payment method
type Instrument struct {
	ID         string
	CustomerID string
	Type       string
	Brand      string
	Last4      string
	ExpMonth   int
	ExpYear    int
}

// ExpiresAt returns the instant the instrument stops being valid
func (i Instrument) ExpiresAt() time.Time {
	return time.Date(i.ExpYear, time.Month(i.ExpMonth), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// IsExpired reports whether the gateway-side expiry has passed
func (i Instrument) IsExpired(now time.Time) bool {
	return !i.ExpiresAt().After(now)
}

// PaymentGateway is the client boundary to the external payment processor.
// The gateway is the authoritative source of truth; every method is a thin
// remote call bounded by the client's own timeout.
type PaymentGateway interface {
	// GetPaymentMethod retrieves instrument details by gateway identifier
	GetPaymentMethod(ctx context.Context, methodID string) (*Instrument, error)

	// SetDefaultPaymentMethod updates the customer's default instrument
	SetDefaultPaymentMethod(ctx context.Context, customerID, methodID string) error

	// PauseSubscription pauses collection on a subscription with a structured
	// metadata reason. Pausing an already-paused subscription is a no-op.
	PauseSubscription(ctx context.Context, subscriptionID string, metadata map[string]string) error

	// ResumeSubscription resumes collection on a paused subscription.
	// Resuming a running subscription is a no-op.
	ResumeSubscription(ctx context.Context, subscriptionID string) error
}
