package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/billing-recon/internal/domain/entity"
	domainErrors "github.com/bivex/billing-recon/internal/domain/errors"
	"github.com/bivex/billing-recon/internal/domain/repository"
)

const subscriptionColumns = `
	id, user_id, gateway_subscription_id, status, plan_id, pause_metadata,
	expires_at, created_at, updated_at`

// SubscriptionRepositoryImpl implements SubscriptionRepository using pgxpool
type SubscriptionRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(pool *pgxpool.Pool) repository.SubscriptionRepository {
	return &SubscriptionRepositoryImpl{pool: pool}
}

// GetByID retrieves a subscription by ID
func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions
		WHERE id = $1
	`
	sub, err := r.scanOne(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subscription %s: %w", id, domainErrors.ErrSubscriptionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// GetPausableByUserID retrieves the user's active or trialing subscriptions
func (r *SubscriptionRepositoryImpl) GetPausableByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'trialing')
		ORDER BY created_at
	`
	return r.queryMany(ctx, query, userID)
}

// GetPausedForPaymentFailure retrieves subscriptions this engine paused with
// reason payment_method_failed
func (r *SubscriptionRepositoryImpl) GetPausedForPaymentFailure(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		  AND status = 'paused'
		  AND pause_metadata->>'reason' = 'payment_method_failed'
		ORDER BY created_at
	`
	return r.queryMany(ctx, query, userID)
}

// Update persists status and pause metadata
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, sub *entity.Subscription) error {
	var pauseJSON []byte
	if sub.Pause != nil {
		var err error
		pauseJSON, err = json.Marshal(sub.Pause)
		if err != nil {
			return fmt.Errorf("failed to marshal pause metadata: %w", err)
		}
	}

	query := `
		UPDATE subscriptions
		SET status = $2, pause_metadata = $3, updated_at = $4
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, sub.ID, sub.Status, pauseJSON, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) queryMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Subscription, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var results []*entity.Subscription
	for rows.Next() {
		sub, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		results = append(results, sub)
	}
	return results, rows.Err()
}

func (r *SubscriptionRepositoryImpl) scanOne(row pgx.Row) (*entity.Subscription, error) {
	sub := &entity.Subscription{}
	var pauseJSON []byte
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.GatewaySubscriptionID, &sub.Status, &sub.PlanID,
		&pauseJSON, &sub.ExpiresAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(pauseJSON) > 0 {
		pause := &entity.PauseMetadata{}
		if err := json.Unmarshal(pauseJSON, pause); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pause metadata: %w", err)
		}
		sub.Pause = pause
	}
	return sub, nil
}
