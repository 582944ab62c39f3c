package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// MockPaymentFailureRepository is a mock implementation of PaymentFailureRepository
type MockPaymentFailureRepository struct {
	mock.Mock
}

// NewMockPaymentFailureRepository creates a new mock payment failure repository
func NewMockPaymentFailureRepository() *MockPaymentFailureRepository {
	return &MockPaymentFailureRepository{}
}

func (m *MockPaymentFailureRepository) Create(ctx context.Context, failure *entity.PaymentMethodFailure) error {
	args := m.Called(ctx, failure)
	return args.Error(0)
}

func (m *MockPaymentFailureRepository) GetRecentByPaymentMethodID(ctx context.Context, gatewayMethodID string, limit int) ([]*entity.PaymentMethodFailure, error) {
	args := m.Called(ctx, gatewayMethodID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.PaymentMethodFailure), args.Error(1)
}

func (m *MockPaymentFailureRepository) GetLatest(ctx context.Context, gatewayMethodID string, failureType entity.FailureType) (*entity.PaymentMethodFailure, error) {
	args := m.Called(ctx, gatewayMethodID, failureType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaymentMethodFailure), args.Error(1)
}
