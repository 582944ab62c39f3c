package entity

import (
	"time"

	"github.com/google/uuid"
)

// FailureType classifies a gateway payment method failure
type FailureType string

const (
	FailureExpired                FailureType = "expired"
	FailureDeclined               FailureType = "declined"
	FailureInvalid                FailureType = "invalid"
	FailureAuthenticationRequired FailureType = "authentication_required"
	FailureProcessingError        FailureType = "processing_error"
)

// IsValid reports whether ft is one of the known failure types
func (ft FailureType) IsValid() bool {
	switch ft {
	case FailureExpired, FailureDeclined, FailureInvalid,
		FailureAuthenticationRequired, FailureProcessingError:
		return true
	}
	return false
}

// PaymentMethodFailure records one failed payment instrument event.
// Rows are append-only: one row per occurrence, never updated or deleted.
// Duplicate webhook deliveries produce duplicate rows; classification is
// cheap and idempotent to repeat.
type PaymentMethodFailure struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	PaymentMethodID string // gateway identifier of the failed instrument
	CustomerID      string // gateway customer identifier
	FailureType     FailureType
	FailureCode     string
	FailureMessage  string
	Retryable       bool // derived once at classification time, immutable
	LastAttempt     time.Time
	CreatedAt       time.Time
}

// NewPaymentMethodFailure creates a new failure occurrence record
func NewPaymentMethodFailure(userID uuid.UUID, paymentMethodID, customerID string, failureType FailureType, code, message string, retryable bool, occurredAt time.Time) *PaymentMethodFailure {
	return &PaymentMethodFailure{
		ID:              uuid.New(),
		UserID:          userID,
		PaymentMethodID: paymentMethodID,
		CustomerID:      customerID,
		FailureType:     failureType,
		FailureCode:     code,
		FailureMessage:  message,
		Retryable:       retryable,
		LastAttempt:     occurredAt,
		CreatedAt:       time.Now(),
	}
}
