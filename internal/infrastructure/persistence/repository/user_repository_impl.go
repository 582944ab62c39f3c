package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/billing-recon/internal/domain/entity"
	domainErrors "github.com/bivex/billing-recon/internal/domain/errors"
	"github.com/bivex/billing-recon/internal/domain/repository"
)

// UserRepositoryImpl implements UserRepository using pgxpool
type UserRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &UserRepositoryImpl{pool: pool}
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	query := `
		SELECT id, gateway_customer_id, email, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	u := &entity.User{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.GatewayCustomerID, &u.Email, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, domainErrors.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetByGatewayCustomerID resolves a gateway customer reference to a user
func (r *UserRepositoryImpl) GetByGatewayCustomerID(ctx context.Context, gatewayCustomerID string) (*entity.User, error) {
	query := `
		SELECT id, gateway_customer_id, email, created_at, updated_at
		FROM users
		WHERE gateway_customer_id = $1
	`
	u := &entity.User{}
	err := r.pool.QueryRow(ctx, query, gatewayCustomerID).Scan(
		&u.ID, &u.GatewayCustomerID, &u.Email, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("gateway customer %s: %w", gatewayCustomerID, domainErrors.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by gateway customer: %w", err)
	}
	return u, nil
}
