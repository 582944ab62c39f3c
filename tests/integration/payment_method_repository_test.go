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

func TestPaymentMethodRepository(t *testing.T) {
	ctx := context.Background()

	dbContainer, err := testutil.SetupTestDBContainer(ctx, t)
	require.NoError(t, err)
	defer dbContainer.Teardown(ctx, t)

	err = testutil.RunMigrations(ctx, dbContainer.Pool)
	require.NoError(t, err)

	repo := repository.NewPaymentMethodRepository(dbContainer.Pool)

	user := entity.NewUser("cus_itest", "itest@example.com")
	_, err = dbContainer.Pool.Exec(ctx, `
		INSERT INTO users (id, gateway_customer_id, email)
		VALUES ($1, $2, $3)`,
		user.ID, user.GatewayCustomerID, user.Email)
	require.NoError(t, err)

	t.Run("Create and GetByGatewayID", func(t *testing.T) {
		method := entity.NewPaymentMethod(user.ID, "pm_create", "cus_itest", 6, 2030)
		method.Brand = "visa"
		method.Last4 = "4242"
		require.NoError(t, repo.Create(ctx, method))

		found, err := repo.GetByGatewayID(ctx, "pm_create")
		require.NoError(t, err)
		assert.Equal(t, method.ID, found.ID)
		assert.Equal(t, entity.MethodStatusActive, found.Status)
		assert.Equal(t, "4242", found.Last4)
	})

	t.Run("SetDefault keeps exactly one default", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, dbContainer.Pool))
		_, err = dbContainer.Pool.Exec(ctx, `
			INSERT INTO users (id, gateway_customer_id, email)
			VALUES ($1, $2, $3)`,
			user.ID, user.GatewayCustomerID, user.Email)
		require.NoError(t, err)

		first := entity.NewPaymentMethod(user.ID, "pm_first", "cus_itest", 6, 2030)
		second := entity.NewPaymentMethod(user.ID, "pm_second", "cus_itest", 7, 2030)
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		require.NoError(t, repo.SetDefault(ctx, user.ID, "pm_first"))
		require.NoError(t, repo.SetDefault(ctx, user.ID, "pm_second"))

		var defaults int
		err := dbContainer.Pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM payment_methods WHERE user_id = $1 AND is_default`,
			user.ID).Scan(&defaults)
		require.NoError(t, err)
		assert.Equal(t, 1, defaults)

		found, err := repo.GetByGatewayID(ctx, "pm_second")
		require.NoError(t, err)
		assert.True(t, found.IsDefault)
	})

	t.Run("UpdateStatus stores last error", func(t *testing.T) {
		method := entity.NewPaymentMethod(user.ID, "pm_status", "cus_itest", 6, 2030)
		require.NoError(t, repo.Create(ctx, method))

		lastErr := "Card declined."
		require.NoError(t, repo.UpdateStatus(ctx, "pm_status", entity.MethodStatusFailed, &lastErr))

		found, err := repo.GetByGatewayID(ctx, "pm_status")
		require.NoError(t, err)
		assert.Equal(t, entity.MethodStatusFailed, found.Status)
		require.NotNil(t, found.LastError)
		assert.Equal(t, lastErr, *found.LastError)
	})

	t.Run("GetExpiringCards honors the horizon", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, dbContainer.Pool))
		_, err = dbContainer.Pool.Exec(ctx, `
			INSERT INTO users (id, gateway_customer_id, email)
			VALUES ($1, $2, $3)`,
			user.ID, user.GatewayCustomerID, user.Email)
		require.NoError(t, err)

		now := time.Now().UTC()
		soon := entity.NewPaymentMethod(user.ID, "pm_soon", "cus_itest", int(now.Month()), now.Year())
		later := entity.NewPaymentMethod(user.ID, "pm_later", "cus_itest", int(now.Month()), now.Year()+3)
		require.NoError(t, repo.Create(ctx, soon))
		require.NoError(t, repo.Create(ctx, later))

		expiring, err := repo.GetExpiringCards(ctx, now.AddDate(0, 0, 45))
		require.NoError(t, err)
		require.Len(t, expiring, 1)
		assert.Equal(t, "pm_soon", expiring[0].GatewayMethodID)
	})
}
