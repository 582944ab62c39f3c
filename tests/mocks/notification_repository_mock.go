package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

// NewMockNotificationRepository creates a new mock notification repository
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) CreateAdminAlert(ctx context.Context, alert *entity.AdminAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Notification), args.Error(1)
}
