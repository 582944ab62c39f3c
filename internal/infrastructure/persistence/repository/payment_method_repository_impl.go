package repository

import (
	"context"
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

const paymentMethodColumns = `
	id, user_id, gateway_method_id, gateway_customer_id, type, brand, last4,
	exp_month, exp_year, status, is_default, last_error, created_at, updated_at`

// PaymentMethodRepositoryImpl implements PaymentMethodRepository using pgxpool
type PaymentMethodRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewPaymentMethodRepository creates a new payment method repository
func NewPaymentMethodRepository(pool *pgxpool.Pool) repository.PaymentMethodRepository {
	return &PaymentMethodRepositoryImpl{pool: pool}
}

// Create stores a new payment method
func (r *PaymentMethodRepositoryImpl) Create(ctx context.Context, m *entity.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (
			id, user_id, gateway_method_id, gateway_customer_id, type, brand, last4,
			exp_month, exp_year, status, is_default, last_error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		m.ID, m.UserID, m.GatewayMethodID, m.GatewayCustomerID, m.Type, m.Brand, m.Last4,
		m.ExpMonth, m.ExpYear, m.Status, m.IsDefault, m.LastError, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return nil
}

// GetByGatewayID retrieves a payment method by its gateway identifier
func (r *PaymentMethodRepositoryImpl) GetByGatewayID(ctx context.Context, gatewayMethodID string) (*entity.PaymentMethod, error) {
	query := `SELECT` + paymentMethodColumns + `
		FROM payment_methods
		WHERE gateway_method_id = $1
	`
	m := &entity.PaymentMethod{}
	err := r.pool.QueryRow(ctx, query, gatewayMethodID).Scan(
		&m.ID, &m.UserID, &m.GatewayMethodID, &m.GatewayCustomerID, &m.Type, &m.Brand, &m.Last4,
		&m.ExpMonth, &m.ExpYear, &m.Status, &m.IsDefault, &m.LastError, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment method %s: %w", gatewayMethodID, domainErrors.ErrPaymentMethodNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return m, nil
}

// GetByUserID retrieves all payment methods for a user
func (r *PaymentMethodRepositoryImpl) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.PaymentMethod, error) {
	query := `SELECT` + paymentMethodColumns + `
		FROM payment_methods
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC
	`
	return r.queryMethods(ctx, query, userID)
}

// GetActiveByUserID retrieves payment methods with status active for a user
func (r *PaymentMethodRepositoryImpl) GetActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.PaymentMethod, error) {
	query := `SELECT` + paymentMethodColumns + `
		FROM payment_methods
		WHERE user_id = $1 AND status = 'active'
		ORDER BY is_default DESC, created_at DESC
	`
	return r.queryMethods(ctx, query, userID)
}

// GetExpiringCards retrieves card methods whose on-file expiry falls before
// the horizon, including already expired cards.
func (r *PaymentMethodRepositoryImpl) GetExpiringCards(ctx context.Context, horizon time.Time) ([]*entity.PaymentMethod, error) {
	query := `SELECT` + paymentMethodColumns + `
		FROM payment_methods
		WHERE type = 'card'
		  AND status IN ('active', 'requires_action', 'expired')
		  AND make_date(exp_year, exp_month, 1) + interval '1 month' <= $1
		ORDER BY exp_year, exp_month
	`
	return r.queryMethods(ctx, query, horizon)
}

// UpdateStatus updates status and last error, last-write-wins by gateway id
func (r *PaymentMethodRepositoryImpl) UpdateStatus(ctx context.Context, gatewayMethodID string, status entity.PaymentMethodStatus, lastError *string) error {
	query := `
		UPDATE payment_methods
		SET status = $2, last_error = $3, updated_at = $4
		WHERE gateway_method_id = $1
	`
	_, err := r.pool.Exec(ctx, query, gatewayMethodID, status, lastError, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update payment method status: %w", err)
	}
	return nil
}

// UpdateExpiry persists a refreshed card expiry reported by the gateway
func (r *PaymentMethodRepositoryImpl) UpdateExpiry(ctx context.Context, gatewayMethodID string, expMonth, expYear int) error {
	query := `
		UPDATE payment_methods
		SET exp_month = $2, exp_year = $3, updated_at = $4
		WHERE gateway_method_id = $1
	`
	_, err := r.pool.Exec(ctx, query, gatewayMethodID, expMonth, expYear, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update payment method expiry: %w", err)
	}
	return nil
}

// SetDefault marks the given method as the user's sole default. A single
// statement keeps the one-default invariant without a transaction.
func (r *PaymentMethodRepositoryImpl) SetDefault(ctx context.Context, userID uuid.UUID, gatewayMethodID string) error {
	query := `
		UPDATE payment_methods
		SET is_default = (gateway_method_id = $2), updated_at = $3
		WHERE user_id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID, gatewayMethodID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set default payment method: %w", err)
	}
	return nil
}

func (r *PaymentMethodRepositoryImpl) queryMethods(ctx context.Context, query string, args ...interface{}) ([]*entity.PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment methods: %w", err)
	}
	defer rows.Close()

	var results []*entity.PaymentMethod
	for rows.Next() {
		m := &entity.PaymentMethod{}
		err := rows.Scan(
			&m.ID, &m.UserID, &m.GatewayMethodID, &m.GatewayCustomerID, &m.Type, &m.Brand, &m.Last4,
			&m.ExpMonth, &m.ExpYear, &m.Status, &m.IsDefault, &m.LastError, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		results = append(results, m)
	}
	return results, rows.Err()
}
