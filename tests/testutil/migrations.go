package testutil

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations applies the schema to the test database. The inline DDL
// mirrors migrations/000001_init.up.sql without the migrator binary.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
	CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		gateway_customer_id VARCHAR(255) NOT NULL UNIQUE,
		email VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS payment_methods (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		gateway_method_id VARCHAR(255) NOT NULL UNIQUE,
		gateway_customer_id VARCHAR(255) NOT NULL,
		type VARCHAR(32) NOT NULL DEFAULT 'card',
		brand VARCHAR(32) NOT NULL DEFAULT '',
		last4 VARCHAR(4) NOT NULL DEFAULT '',
		exp_month INT NOT NULL,
		exp_year INT NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS payment_method_failures (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		payment_method_id VARCHAR(255) NOT NULL,
		customer_id VARCHAR(255) NOT NULL,
		failure_type VARCHAR(64) NOT NULL,
		failure_code VARCHAR(128) NOT NULL DEFAULT '',
		failure_message TEXT NOT NULL DEFAULT '',
		retryable BOOLEAN NOT NULL,
		last_attempt TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		gateway_subscription_id VARCHAR(255) NOT NULL UNIQUE,
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		plan_id VARCHAR(255) NOT NULL,
		pause_metadata JSONB,
		expires_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		type VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		body TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS admin_alerts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		severity VARCHAR(16) NOT NULL,
		type VARCHAR(64) NOT NULL,
		message TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS webhook_events (
		id BIGSERIAL PRIMARY KEY,
		provider VARCHAR(32) NOT NULL,
		event_type VARCHAR(128) NOT NULL,
		event_id VARCHAR(255) NOT NULL,
		payload JSONB NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply test schema: %w", err)
	}
	return nil
}

// TruncateAll empties all tables between test cases
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	tables := []string{
		"webhook_events", "admin_alerts", "notifications",
		"subscriptions", "payment_method_failures", "payment_methods", "users",
	}
	for _, table := range tables {
		if _, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return err
		}
	}
	return nil
}
