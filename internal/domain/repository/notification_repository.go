package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// NotificationRepository defines the interface for notification and alert inserts
type NotificationRepository interface {
	// CreateNotification inserts a customer-facing notification record
	CreateNotification(ctx context.Context, notification *entity.Notification) error

	// CreateAdminAlert inserts an operator-facing alert record
	CreateAdminAlert(ctx context.Context, alert *entity.AdminAlert) error

	// GetRecentByUserID retrieves the most recent notifications for a user
	GetRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Notification, error)
}
