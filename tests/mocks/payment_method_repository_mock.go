package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// MockPaymentMethodRepository is a mock implementation of PaymentMethodRepository
type MockPaymentMethodRepository struct {
	mock.Mock
}

// NewMockPaymentMethodRepository creates a new mock payment method repository
func NewMockPaymentMethodRepository() *MockPaymentMethodRepository {
	return &MockPaymentMethodRepository{}
}

func (m *MockPaymentMethodRepository) Create(ctx context.Context, method *entity.PaymentMethod) error {
	args := m.Called(ctx, method)
	return args.Error(0)
}

func (m *MockPaymentMethodRepository) GetByGatewayID(ctx context.Context, gatewayMethodID string) (*entity.PaymentMethod, error) {
	args := m.Called(ctx, gatewayMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.PaymentMethod, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.PaymentMethod, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) GetExpiringCards(ctx context.Context, horizon time.Time) ([]*entity.PaymentMethod, error) {
	args := m.Called(ctx, horizon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.PaymentMethod), args.Error(1)
}

func (m *MockPaymentMethodRepository) UpdateStatus(ctx context.Context, gatewayMethodID string, status entity.PaymentMethodStatus, lastError *string) error {
	args := m.Called(ctx, gatewayMethodID, status, lastError)
	return args.Error(0)
}

func (m *MockPaymentMethodRepository) UpdateExpiry(ctx context.Context, gatewayMethodID string, expMonth, expYear int) error {
	args := m.Called(ctx, gatewayMethodID, expMonth, expYear)
	return args.Error(0)
}

func (m *MockPaymentMethodRepository) SetDefault(ctx context.Context, userID uuid.UUID, gatewayMethodID string) error {
	args := m.Called(ctx, userID, gatewayMethodID)
	return args.Error(0)
}
