package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusTrialing  SubscriptionStatus = "trialing"
	StatusPaused    SubscriptionStatus = "paused"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// PauseReasonPaymentFailed tags subscriptions paused by the reconciliation
// engine, so resume only touches pauses this engine created.
const PauseReasonPaymentFailed = "payment_method_failed"

// PauseMetadata is the structured reason attached to a paused subscription
type PauseMetadata struct {
	Reason          string    `json:"reason"`
	PaymentMethodID string    `json:"payment_method_id"`
	PausedAt        time.Time `json:"paused_at"`
}

type Subscription struct {
	ID                    uuid.UUID
	UserID                uuid.UUID
	GatewaySubscriptionID string
	Status                SubscriptionStatus
	PlanID                string
	Pause                 *PauseMetadata
	ExpiresAt             time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewSubscription creates a new subscription entity
func NewSubscription(userID uuid.UUID, gatewaySubscriptionID, planID string, expiresAt time.Time) *Subscription {
	now := time.Now()
	return &Subscription{
		ID:                    uuid.New(),
		UserID:                userID,
		GatewaySubscriptionID: gatewaySubscriptionID,
		Status:                StatusActive,
		PlanID:                planID,
		ExpiresAt:             expiresAt,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// IsPausable returns true if a payment failure may pause this subscription
func (s *Subscription) IsPausable() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// IsPaused returns true if the subscription is currently paused
func (s *Subscription) IsPaused() bool {
	return s.Status == StatusPaused
}

// MarkPaused pauses the subscription with a structured reason. Pausing an
// already-paused subscription is a no-op, not an error; it returns false when
// no state transition happened.
func (s *Subscription) MarkPaused(reason PauseMetadata) bool {
	if s.Status == StatusPaused {
		return false
	}
	s.Status = StatusPaused
	s.Pause = &reason
	s.UpdatedAt = time.Now()
	return true
}

// MarkResumed returns the subscription to active. Resuming a subscription
// that is not paused is a no-op; it returns false when nothing changed.
func (s *Subscription) MarkResumed() bool {
	if s.Status != StatusPaused {
		return false
	}
	s.Status = StatusActive
	s.Pause = nil
	s.UpdatedAt = time.Now()
	return true
}

// PausedForPaymentFailure reports whether the current pause was created by
// the reconciliation engine for the given payment method
func (s *Subscription) PausedForPaymentFailure(paymentMethodID string) bool {
	return s.Status == StatusPaused &&
		s.Pause != nil &&
		s.Pause.Reason == PauseReasonPaymentFailed &&
		(paymentMethodID == "" || s.Pause.PaymentMethodID == paymentMethodID)
}
