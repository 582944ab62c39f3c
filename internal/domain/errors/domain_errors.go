package errors

import (
	"errors"
	"fmt"
)

var (
	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Payment method errors
	ErrPaymentMethodNotFound   = errors.New("payment method not found")
	ErrNoAlternativeMethod     = errors.New("no alternative active payment method")
	ErrPaymentMethodNotDefault = errors.New("payment method is not the default")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// External service errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// NotFoundError wraps an error with not found context
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found: %v", e.Entity, e.ID, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// GatewayError wraps an error returned by the payment gateway client
type GatewayError struct {
	Operation string
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s failed: %v", e.Operation, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
