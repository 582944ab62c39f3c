//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bivex/billing-recon/internal/domain/entity"
	"github.com/bivex/billing-recon/internal/infrastructure/persistence/repository"
	"github.com/bivex/billing-recon/tests/testutil"
)

func TestSubscriptionRepository(t *testing.T) {
	ctx := context.Background()

	dbContainer, err := testutil.SetupTestDBContainer(ctx, t)
	require.NoError(t, err)
	defer dbContainer.Teardown(ctx, t)

	err = testutil.RunMigrations(ctx, dbContainer.Pool)
	require.NoError(t, err)

	repo := repository.NewSubscriptionRepository(dbContainer.Pool)

	user := entity.NewUser("cus_stest", "stest@example.com")
	_, err = dbContainer.Pool.Exec(ctx, `
		INSERT INTO users (id, gateway_customer_id, email)
		VALUES ($1, $2, $3)`,
		user.ID, user.GatewayCustomerID, user.Email)
	require.NoError(t, err)

	insertSubscription := func(t *testing.T, sub *entity.Subscription) {
		t.Helper()
		_, err := dbContainer.Pool.Exec(ctx, `
			INSERT INTO subscriptions (id, user_id, gateway_subscription_id, status, plan_id, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			sub.ID, sub.UserID, sub.GatewaySubscriptionID, sub.Status, sub.PlanID, sub.ExpiresAt)
		require.NoError(t, err)
	}

	t.Run("pause metadata round trips through jsonb", func(t *testing.T) {
		sub := entity.NewSubscription(user.ID, "sub_pause", "plan_monthly", time.Now().AddDate(0, 1, 0))
		insertSubscription(t, sub)

		pausedAt := time.Now().UTC().Truncate(time.Second)
		sub.MarkPaused(entity.PauseMetadata{
			Reason:          entity.PauseReasonPaymentFailed,
			PaymentMethodID: "pm_1",
			PausedAt:        pausedAt,
		})
		require.NoError(t, repo.Update(ctx, sub))

		found, err := repo.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusPaused, found.Status)
		require.NotNil(t, found.Pause)
		assert.Equal(t, entity.PauseReasonPaymentFailed, found.Pause.Reason)
		assert.Equal(t, "pm_1", found.Pause.PaymentMethodID)
		assert.True(t, found.Pause.PausedAt.Equal(pausedAt))
	})

	t.Run("GetPausedForPaymentFailure ignores manual pauses", func(t *testing.T) {
		enginePaused := entity.NewSubscription(user.ID, "sub_engine", "plan_monthly", time.Now().AddDate(0, 1, 0))
		insertSubscription(t, enginePaused)
		enginePaused.MarkPaused(entity.PauseMetadata{
			Reason:          entity.PauseReasonPaymentFailed,
			PaymentMethodID: "pm_1",
			PausedAt:        time.Now().UTC(),
		})
		require.NoError(t, repo.Update(ctx, enginePaused))

		manual := entity.NewSubscription(user.ID, "sub_manual", "plan_monthly", time.Now().AddDate(0, 1, 0))
		insertSubscription(t, manual)
		manual.MarkPaused(entity.PauseMetadata{
			Reason:   "customer_request",
			PausedAt: time.Now().UTC(),
		})
		require.NoError(t, repo.Update(ctx, manual))

		paused, err := repo.GetPausedForPaymentFailure(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, paused, 1)
		assert.Equal(t, "sub_engine", paused[0].GatewaySubscriptionID)
	})

	t.Run("GetPausableByUserID covers active and trialing", func(t *testing.T) {
		trialing := entity.NewSubscription(user.ID, "sub_trial", "plan_monthly", time.Now().AddDate(0, 1, 0))
		trialing.Status = entity.StatusTrialing
		insertSubscription(t, trialing)

		cancelled := entity.NewSubscription(user.ID, "sub_gone", "plan_monthly", time.Now().AddDate(0, 1, 0))
		cancelled.Status = entity.StatusCancelled
		insertSubscription(t, cancelled)

		pausable, err := repo.GetPausableByUserID(ctx, user.ID)
		require.NoError(t, err)
		for _, sub := range pausable {
			assert.True(t, sub.IsPausable(), "subscription %s", sub.GatewaySubscriptionID)
		}
	})
}
