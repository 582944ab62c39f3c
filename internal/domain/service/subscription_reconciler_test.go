package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/entity"
	"github.com/bivex/billing-recon/internal/domain/service"
	"github.com/bivex/billing-recon/tests/mocks"
)

func nonRetryableFailure(userID uuid.UUID) *entity.PaymentMethodFailure {
	return entity.NewPaymentMethodFailure(
		userID, "pm_1", "cus_123",
		entity.FailureDeclined, "do_not_honor", "Card declined.",
		false, time.Now(),
	)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("recovered failure leaves subscriptions alone", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		subRepo := mocks.NewMockSubscriptionRepository()
		reconciler := service.NewSubscriptionReconciler(gw, subRepo, zap.NewNop())

		err := reconciler.Reconcile(ctx, nonRetryableFailure(userID), entity.PaymentMethodRecovery{Success: true})

		assert.NoError(t, err)
		subRepo.AssertNotCalled(t, "GetPausableByUserID", mock.Anything, mock.Anything)
	})

	t.Run("retryable failure leaves subscriptions alone", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		subRepo := mocks.NewMockSubscriptionRepository()
		reconciler := service.NewSubscriptionReconciler(gw, subRepo, zap.NewNop())

		failure := entity.NewPaymentMethodFailure(
			userID, "pm_1", "cus_123",
			entity.FailureProcessingError, "insufficient_funds", "",
			true, time.Now(),
		)
		err := reconciler.Reconcile(ctx, failure, entity.PaymentMethodRecovery{Success: false})

		assert.NoError(t, err)
		subRepo.AssertNotCalled(t, "GetPausableByUserID", mock.Anything, mock.Anything)
	})

	t.Run("unrecovered non-retryable failure pauses active subscriptions", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		subRepo := mocks.NewMockSubscriptionRepository()
		reconciler := service.NewSubscriptionReconciler(gw, subRepo, zap.NewNop())

		sub := entity.NewSubscription(userID, "sub_1", "plan_monthly", time.Now().AddDate(0, 1, 0))
		subRepo.On("GetPausableByUserID", ctx, userID).Return([]*entity.Subscription{sub}, nil).Once()
		gw.On("PauseSubscription", ctx, "sub_1", mock.Anything).Return(nil).Once()
		subRepo.On("Update", ctx, sub).Return(nil).Once()

		err := reconciler.Reconcile(ctx, nonRetryableFailure(userID), entity.PaymentMethodRecovery{Success: false})

		require.NoError(t, err)
		assert.Equal(t, entity.StatusPaused, sub.Status)
		require.NotNil(t, sub.Pause)
		assert.Equal(t, entity.PauseReasonPaymentFailed, sub.Pause.Reason)
		assert.Equal(t, "pm_1", sub.Pause.PaymentMethodID)
		gw.AssertExpectations(t)
		subRepo.AssertExpectations(t)
	})

	t.Run("one gateway failure does not stop other subscriptions", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		subRepo := mocks.NewMockSubscriptionRepository()
		reconciler := service.NewSubscriptionReconciler(gw, subRepo, zap.NewNop())

		broken := entity.NewSubscription(userID, "sub_broken", "plan_monthly", time.Now().AddDate(0, 1, 0))
		healthy := entity.NewSubscription(userID, "sub_healthy", "plan_annual", time.Now().AddDate(1, 0, 0))
		subRepo.On("GetPausableByUserID", ctx, userID).Return([]*entity.Subscription{broken, healthy}, nil).Once()
		gw.On("PauseSubscription", ctx, "sub_broken", mock.Anything).Return(errors.New("gateway unavailable")).Once()
		gw.On("PauseSubscription", ctx, "sub_healthy", mock.Anything).Return(nil).Once()
		subRepo.On("Update", ctx, healthy).Return(nil).Once()

		err := reconciler.Reconcile(ctx, nonRetryableFailure(userID), entity.PaymentMethodRecovery{Success: false})

		require.NoError(t, err)
		assert.Equal(t, entity.StatusPaused, healthy.Status)
		subRepo.AssertExpectations(t)
	})
}

func TestResumeForPaymentMethod(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("resumes engine-paused subscriptions", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		subRepo := mocks.NewMockSubscriptionRepository()
		reconciler := service.NewSubscriptionReconciler(gw, subRepo, zap.NewNop())

		sub := entity.NewSubscription(userID, "sub_1", "plan_monthly", time.Now().AddDate(0, 1, 0))
		sub.MarkPaused(entity.PauseMetadata{
			Reason:          entity.PauseReasonPaymentFailed,
			PaymentMethodID: "pm_1",
			PausedAt:        time.Now().UTC(),
		})

		subRepo.On("GetPausedForPaymentFailure", ctx, userID).Return([]*entity.Subscription{sub}, nil).Once()
		gw.On("ResumeSubscription", ctx, "sub_1").Return(nil).Once()
		subRepo.On("Update", ctx, sub).Return(nil).Once()

		err := reconciler.ResumeForPaymentMethod(ctx, userID, "pm_1")

		require.NoError(t, err)
		assert.Equal(t, entity.StatusActive, sub.Status)
		assert.Nil(t, sub.Pause)
		gw.AssertExpectations(t)
		subRepo.AssertExpectations(t)
	})

	t.Run("no engine-paused subscriptions is a no-op", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		subRepo := mocks.NewMockSubscriptionRepository()
		reconciler := service.NewSubscriptionReconciler(gw, subRepo, zap.NewNop())

		subRepo.On("GetPausedForPaymentFailure", ctx, userID).Return([]*entity.Subscription{}, nil).Once()

		err := reconciler.ResumeForPaymentMethod(ctx, userID, "pm_1")

		require.NoError(t, err)
		gw.AssertNotCalled(t, "ResumeSubscription", mock.Anything, mock.Anything)
	})
}
