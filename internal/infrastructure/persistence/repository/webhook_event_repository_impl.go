package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/billing-recon/internal/domain/repository"
)

// WebhookEventRepositoryImpl implements WebhookEventRepository using pgxpool
type WebhookEventRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(pool *pgxpool.Pool) repository.WebhookEventRepository {
	return &WebhookEventRepositoryImpl{pool: pool}
}

// Insert appends one delivery row
func (r *WebhookEventRepositoryImpl) Insert(ctx context.Context, event repository.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (provider, event_type, event_id, payload, received_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		event.Provider, event.EventType, event.EventID, event.Payload, event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert webhook event: %w", err)
	}
	return nil
}
