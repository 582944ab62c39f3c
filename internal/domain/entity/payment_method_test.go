package entity_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

func TestPaymentMethodExpiry(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("ExpiresAt is the first moment after the expiry month", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 6, 2026)
		assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), method.ExpiresAt())
	})

	t.Run("December rolls over to January", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 12, 2026)
		assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), method.ExpiresAt())
	})

	t.Run("card is valid through its expiry month", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 6, 2026)
		assert.False(t, method.IsExpired(now))
		assert.True(t, method.IsActive(now))
	})

	t.Run("card is expired the month after", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 5, 2026)
		assert.True(t, method.IsExpired(now))
		assert.False(t, method.IsActive(now))
	})

	t.Run("DaysUntilExpiry counts whole days", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 6, 2026)
		assert.Equal(t, 15, method.DaysUntilExpiry(now))
	})

	t.Run("non-active status is never chargeable", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 12, 2027)
		method.Status = entity.MethodStatusFailed
		assert.False(t, method.IsActive(now))
	})
}

func TestPaymentMethodValidate(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("healthy card needs nothing", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 12, 2027)
		v := method.Validate(now)
		assert.Equal(t, entity.MethodStatusActive, v.Status)
		assert.False(t, v.NeedsUpdate)
	})

	t.Run("lapsed expiry overrides stored status", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 1, 2026)
		v := method.Validate(now)
		assert.Equal(t, entity.MethodStatusExpired, v.Status)
		assert.True(t, v.NeedsUpdate)
	})

	t.Run("failed status needs update", func(t *testing.T) {
		method := entity.NewPaymentMethod(uuid.New(), "pm_1", "cus_1", 12, 2027)
		method.Status = entity.MethodStatusFailed
		lastErr := "Card declined."
		method.LastError = &lastErr

		v := method.Validate(now)
		assert.Equal(t, entity.MethodStatusFailed, v.Status)
		assert.True(t, v.NeedsUpdate)
		assert.Equal(t, &lastErr, v.LastError)
	})
}
