package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/billing-recon/internal/domain/entity"
	"github.com/bivex/billing-recon/internal/domain/repository"
)

// NotificationRepositoryImpl implements NotificationRepository using pgxpool
type NotificationRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(pool *pgxpool.Pool) repository.NotificationRepository {
	return &NotificationRepositoryImpl{pool: pool}
}

// CreateNotification inserts a customer-facing notification record
func (r *NotificationRepositoryImpl) CreateNotification(ctx context.Context, n *entity.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, body, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.pool.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Body, metadata, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// CreateAdminAlert inserts an operator-facing alert record
func (r *NotificationRepositoryImpl) CreateAdminAlert(ctx context.Context, a *entity.AdminAlert) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal alert metadata: %w", err)
	}

	query := `
		INSERT INTO admin_alerts (id, severity, type, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.pool.Exec(ctx, query, a.ID, a.Severity, a.Type, a.Message, metadata, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert admin alert: %w", err)
	}
	return nil
}

// GetRecentByUserID retrieves the most recent notifications for a user
func (r *NotificationRepositoryImpl) GetRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, user_id, type, title, body, metadata, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var results []*entity.Notification
	for rows.Next() {
		n := &entity.Notification{}
		var metadata []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &metadata, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal notification metadata: %w", err)
			}
		}
		results = append(results, n)
	}
	return results, rows.Err()
}
