package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/billing-recon/internal/domain/entity"
	"github.com/bivex/billing-recon/internal/domain/repository"
)

const failureColumns = `
	id, user_id, payment_method_id, customer_id, failure_type, failure_code,
	failure_message, retryable, last_attempt, created_at`

// PaymentFailureRepositoryImpl implements the append-only failure store
type PaymentFailureRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewPaymentFailureRepository creates a new payment failure repository
func NewPaymentFailureRepository(pool *pgxpool.Pool) repository.PaymentFailureRepository {
	return &PaymentFailureRepositoryImpl{pool: pool}
}

// Create appends one failure occurrence row
func (r *PaymentFailureRepositoryImpl) Create(ctx context.Context, f *entity.PaymentMethodFailure) error {
	query := `
		INSERT INTO payment_method_failures (
			id, user_id, payment_method_id, customer_id, failure_type, failure_code,
			failure_message, retryable, last_attempt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		f.ID, f.UserID, f.PaymentMethodID, f.CustomerID, f.FailureType, f.FailureCode,
		f.FailureMessage, f.Retryable, f.LastAttempt, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment method failure: %w", err)
	}
	return nil
}

// GetRecentByPaymentMethodID retrieves the most recent failures for an instrument
func (r *PaymentFailureRepositoryImpl) GetRecentByPaymentMethodID(ctx context.Context, gatewayMethodID string, limit int) ([]*entity.PaymentMethodFailure, error) {
	query := `SELECT` + failureColumns + `
		FROM payment_method_failures
		WHERE payment_method_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, gatewayMethodID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment method failures: %w", err)
	}
	defer rows.Close()

	var results []*entity.PaymentMethodFailure
	for rows.Next() {
		f := &entity.PaymentMethodFailure{}
		err := rows.Scan(
			&f.ID, &f.UserID, &f.PaymentMethodID, &f.CustomerID, &f.FailureType, &f.FailureCode,
			&f.FailureMessage, &f.Retryable, &f.LastAttempt, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment method failure: %w", err)
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

// GetLatest retrieves the newest failure for a (payment method, failure type)
// pair, or nil when none exists.
func (r *PaymentFailureRepositoryImpl) GetLatest(ctx context.Context, gatewayMethodID string, failureType entity.FailureType) (*entity.PaymentMethodFailure, error) {
	query := `SELECT` + failureColumns + `
		FROM payment_method_failures
		WHERE payment_method_id = $1 AND failure_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	f := &entity.PaymentMethodFailure{}
	err := r.pool.QueryRow(ctx, query, gatewayMethodID, failureType).Scan(
		&f.ID, &f.UserID, &f.PaymentMethodID, &f.CustomerID, &f.FailureType, &f.FailureCode,
		&f.FailureMessage, &f.Retryable, &f.LastAttempt, &f.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest payment method failure: %w", err)
	}
	return f, nil
}
