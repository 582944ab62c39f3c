package entity

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethodStatus represents the stored state of a payment method
type PaymentMethodStatus string

const (
	MethodStatusActive         PaymentMethodStatus = "active"
	MethodStatusRequiresAction PaymentMethodStatus = "requires_action"
	MethodStatusExpired        PaymentMethodStatus = "expired"
	MethodStatusFailed         PaymentMethodStatus = "failed"
)

// PaymentMethod mirrors a tokenized card instrument stored at the gateway.
// The gateway owns the authoritative state; this row is the local view that
// reconciliation keeps in agreement with it.
type PaymentMethod struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	GatewayMethodID   string // opaque gateway identifier (e.g. pm_...)
	GatewayCustomerID string // opaque gateway identifier (e.g. cus_...)
	Type              string // "card" is the only type the expiry scan covers
	Brand             string
	Last4             string
	ExpMonth          int
	ExpYear           int
	Status            PaymentMethodStatus
	IsDefault         bool
	LastError         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewPaymentMethod creates a new local payment method record
func NewPaymentMethod(userID uuid.UUID, gatewayMethodID, gatewayCustomerID string, expMonth, expYear int) *PaymentMethod {
	now := time.Now()
	return &PaymentMethod{
		ID:                uuid.New(),
		UserID:            userID,
		GatewayMethodID:   gatewayMethodID,
		GatewayCustomerID: gatewayCustomerID,
		Type:              "card",
		ExpMonth:          expMonth,
		ExpYear:           expYear,
		Status:            MethodStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// ExpiresAt returns the instant the card stops being valid: the first moment
// of the month after the on-file expiry month.
func (m *PaymentMethod) ExpiresAt() time.Time {
	return time.Date(m.ExpYear, time.Month(m.ExpMonth), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// DaysUntilExpiry returns whole days from now until the card expires.
// Negative values mean the card is already expired.
func (m *PaymentMethod) DaysUntilExpiry(now time.Time) int {
	return int(m.ExpiresAt().Sub(now).Hours() / 24)
}

// IsExpired returns true if the on-file expiry has passed
func (m *PaymentMethod) IsExpired(now time.Time) bool {
	return !m.ExpiresAt().After(now)
}

// IsActive returns true if the method can be charged
func (m *PaymentMethod) IsActive(now time.Time) bool {
	return m.Status == MethodStatusActive && !m.IsExpired(now)
}

// PaymentMethodValidation is a point-in-time validation snapshot of a stored
// payment method, produced by on-demand validation and the expiry scan.
type PaymentMethodValidation struct {
	Status      PaymentMethodStatus
	LastError   *string
	ExpiresAt   time.Time
	NeedsUpdate bool
}

// Validate returns the validation snapshot for the method as of now
func (m *PaymentMethod) Validate(now time.Time) PaymentMethodValidation {
	status := m.Status
	needsUpdate := false

	switch {
	case m.IsExpired(now):
		status = MethodStatusExpired
		needsUpdate = true
	case m.Status == MethodStatusRequiresAction, m.Status == MethodStatusFailed:
		needsUpdate = true
	}

	return PaymentMethodValidation{
		Status:      status,
		LastError:   m.LastError,
		ExpiresAt:   m.ExpiresAt(),
		NeedsUpdate: needsUpdate,
	}
}
