package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bivex/billing-recon/internal/domain/gateway"
)

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

// NewMockPaymentGateway creates a new mock payment gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (m *MockPaymentGateway) GetPaymentMethod(ctx context.Context, methodID string) (*gateway.Instrument, error) {
	args := m.Called(ctx, methodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Instrument), args.Error(1)
}

func (m *MockPaymentGateway) SetDefaultPaymentMethod(ctx context.Context, customerID, methodID string) error {
	args := m.Called(ctx, customerID, methodID)
	return args.Error(0)
}

func (m *MockPaymentGateway) PauseSubscription(ctx context.Context, subscriptionID string, metadata map[string]string) error {
	args := m.Called(ctx, subscriptionID, metadata)
	return args.Error(0)
}

func (m *MockPaymentGateway) ResumeSubscription(ctx context.Context, subscriptionID string) error {
	args := m.Called(ctx, subscriptionID)
	return args.Error(0)
}
