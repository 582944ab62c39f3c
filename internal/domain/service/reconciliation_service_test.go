package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/entity"
	domainErrors "github.com/bivex/billing-recon/internal/domain/errors"
	"github.com/bivex/billing-recon/internal/domain/gateway"
	"github.com/bivex/billing-recon/internal/domain/service"
	"github.com/bivex/billing-recon/tests/mocks"
)

type pipelineFixture struct {
	userRepo   *mocks.MockUserRepository
	methodRepo *mocks.MockPaymentMethodRepository
	failRepo   *mocks.MockPaymentFailureRepository
	subRepo    *mocks.MockSubscriptionRepository
	notifRepo  *mocks.MockNotificationRepository
	gw         *mocks.MockPaymentGateway
	svc        *service.ReconciliationService
}

func newPipeline() *pipelineFixture {
	f := &pipelineFixture{
		userRepo:   mocks.NewMockUserRepository(),
		methodRepo: mocks.NewMockPaymentMethodRepository(),
		failRepo:   mocks.NewMockPaymentFailureRepository(),
		subRepo:    mocks.NewMockSubscriptionRepository(),
		notifRepo:  mocks.NewMockNotificationRepository(),
		gw:         mocks.NewMockPaymentGateway(),
	}

	recovery := service.NewRecoveryService(f.gw, f.methodRepo, zap.NewNop())
	recovery.SetNow(func() time.Time { return testNow })
	reconciler := service.NewSubscriptionReconciler(f.gw, f.subRepo, zap.NewNop())
	dispatcher := service.NewNotificationDispatcher(f.notifRepo, f.userRepo, zap.NewNop())
	f.svc = service.NewReconciliationService(f.userRepo, f.failRepo, recovery, reconciler, dispatcher, zap.NewNop())
	return f
}

func TestHandlePaymentFailureExpiredCard(t *testing.T) {
	// An expired-card webhook with no gateway-side refresh: the failure is
	// recorded non-retryable, the subscription pauses, the customer is asked
	// to update the card, and an operator alert fires.
	ctx := context.Background()
	userID := uuid.New()
	user := &entity.User{ID: userID, GatewayCustomerID: "cus_9", Email: "sam@example.com"}

	f := newPipeline()
	f.userRepo.On("GetByGatewayCustomerID", ctx, "cus_9").Return(user, nil).Once()
	f.userRepo.On("GetByID", ctx, userID).Return(user, nil).Once()

	var recorded *entity.PaymentMethodFailure
	f.failRepo.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*entity.PaymentMethodFailure)
	}).Return(nil).Once()

	// Gateway still reports the lapsed expiry.
	f.gw.On("GetPaymentMethod", ctx, "pm_old").Return(&gateway.Instrument{
		ID: "pm_old", CustomerID: "cus_9", Type: "card", ExpMonth: 3, ExpYear: 2026,
	}, nil).Once()
	f.methodRepo.On("UpdateStatus", ctx, "pm_old", entity.MethodStatusExpired, mock.AnythingOfType("*string")).Return(nil).Once()

	sub := entity.NewSubscription(userID, "sub_9", "plan_monthly", testNow.AddDate(0, 1, 0))
	f.subRepo.On("GetPausableByUserID", ctx, userID).Return([]*entity.Subscription{sub}, nil).Once()
	f.gw.On("PauseSubscription", ctx, "sub_9", mock.Anything).Return(nil).Once()
	f.subRepo.On("Update", ctx, sub).Return(nil).Once()

	f.notifRepo.On("CreateNotification", ctx, mock.MatchedBy(func(n *entity.Notification) bool {
		return n.Type == "payment_method_action_required"
	})).Return(nil).Once()
	f.notifRepo.On("CreateAdminAlert", ctx, mock.Anything).Return(nil).Once()

	result := f.svc.HandlePaymentFailure(ctx, service.FailureEvent{
		CustomerID:      "cus_9",
		PaymentMethodID: "pm_old",
		RawFailureType:  "expired_card",
		FailureCode:     "expired_card",
		FailureMessage:  "Your card has expired.",
		OccurredAt:      testNow,
	})

	require.True(t, result.Handled)
	require.NotNil(t, recorded)
	assert.Equal(t, entity.FailureExpired, recorded.FailureType)
	assert.False(t, recorded.Retryable)
	assert.Equal(t, entity.StatusPaused, sub.Status)
	assert.False(t, result.ShouldRetryLater())
	f.notifRepo.AssertExpectations(t)
	f.subRepo.AssertExpectations(t)
}

func TestHandlePaymentFailureDeclinedWithBackup(t *testing.T) {
	// A hard decline while a backup card exists: billing switches to the
	// backup, nothing pauses, and the customer hears about the switch.
	ctx := context.Background()
	userID := uuid.New()
	user := &entity.User{ID: userID, GatewayCustomerID: "cus_9", Email: "sam@example.com"}

	f := newPipeline()
	f.userRepo.On("GetByGatewayCustomerID", ctx, "cus_9").Return(user, nil).Once()
	f.userRepo.On("GetByID", ctx, userID).Return(user, nil).Once()
	f.failRepo.On("Create", ctx, mock.Anything).Return(nil).Once()

	backup := entity.NewPaymentMethod(userID, "pm_backup", "cus_9", 12, 2027)
	f.methodRepo.On("GetActiveByUserID", ctx, userID).Return([]*entity.PaymentMethod{backup}, nil).Once()
	f.methodRepo.On("UpdateStatus", ctx, "pm_primary", entity.MethodStatusFailed, mock.AnythingOfType("*string")).Return(nil).Once()
	f.gw.On("SetDefaultPaymentMethod", ctx, "cus_9", "pm_backup").Return(nil).Once()
	f.methodRepo.On("SetDefault", ctx, userID, "pm_backup").Return(nil).Once()

	f.notifRepo.On("CreateNotification", ctx, mock.MatchedBy(func(n *entity.Notification) bool {
		return n.Type == "payment_method_resolved" && n.Metadata["new_payment_method_id"] == "pm_backup"
	})).Return(nil).Once()

	result := f.svc.HandlePaymentFailure(ctx, service.FailureEvent{
		CustomerID:      "cus_9",
		PaymentMethodID: "pm_primary",
		RawFailureType:  "card_declined",
		FailureCode:     "do_not_honor",
		FailureMessage:  "Card declined.",
		OccurredAt:      testNow,
	})

	require.True(t, result.Handled)
	assert.True(t, result.Recovery.Success)
	assert.Equal(t, "pm_backup", result.Recovery.NewPaymentMethodID)
	f.subRepo.AssertNotCalled(t, "GetPausableByUserID", mock.Anything, mock.Anything)
	f.notifRepo.AssertNotCalled(t, "CreateAdminAlert", mock.Anything, mock.Anything)
}

func TestHandlePaymentFailureTransient(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	user := &entity.User{ID: userID, GatewayCustomerID: "cus_9", Email: "sam@example.com"}

	f := newPipeline()
	f.userRepo.On("GetByGatewayCustomerID", ctx, "cus_9").Return(user, nil).Once()
	f.userRepo.On("GetByID", ctx, userID).Return(user, nil).Once()
	f.failRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.notifRepo.On("CreateNotification", ctx, mock.MatchedBy(func(n *entity.Notification) bool {
		return n.Type == "payment_method_retrying"
	})).Return(nil).Once()

	result := f.svc.HandlePaymentFailure(ctx, service.FailureEvent{
		CustomerID:      "cus_9",
		PaymentMethodID: "pm_1",
		RawFailureType:  "insufficient_funds",
		FailureCode:     "insufficient_funds",
		OccurredAt:      testNow,
	})

	require.True(t, result.Handled)
	assert.True(t, result.ShouldRetryLater())
	f.subRepo.AssertNotCalled(t, "GetPausableByUserID", mock.Anything, mock.Anything)
	f.notifRepo.AssertNotCalled(t, "CreateAdminAlert", mock.Anything, mock.Anything)
}

func TestHandlePaymentFailureUnknownCustomer(t *testing.T) {
	ctx := context.Background()

	f := newPipeline()
	f.userRepo.On("GetByGatewayCustomerID", ctx, "cus_missing").Return(nil, domainErrors.ErrUserNotFound).Once()

	result := f.svc.HandlePaymentFailure(ctx, service.FailureEvent{
		CustomerID:      "cus_missing",
		PaymentMethodID: "pm_1",
		RawFailureType:  "card_declined",
		OccurredAt:      testNow,
	})

	assert.False(t, result.Handled)
	f.failRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandlePaymentMethodUpdated(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	user := &entity.User{ID: userID, GatewayCustomerID: "cus_9", Email: "sam@example.com"}

	f := newPipeline()
	f.userRepo.On("GetByGatewayCustomerID", ctx, "cus_9").Return(user, nil).Once()
	f.methodRepo.On("UpdateExpiry", ctx, "pm_1", 9, 2028).Return(nil).Once()
	f.methodRepo.On("UpdateStatus", ctx, "pm_1", entity.MethodStatusActive, (*string)(nil)).Return(nil).Once()

	paused := entity.NewSubscription(userID, "sub_1", "plan_monthly", testNow.AddDate(0, 1, 0))
	paused.MarkPaused(entity.PauseMetadata{
		Reason:          entity.PauseReasonPaymentFailed,
		PaymentMethodID: "pm_1",
		PausedAt:        testNow,
	})
	f.subRepo.On("GetPausedForPaymentFailure", ctx, userID).Return([]*entity.Subscription{paused}, nil).Once()
	f.gw.On("ResumeSubscription", ctx, "sub_1").Return(nil).Once()
	f.subRepo.On("Update", ctx, paused).Return(nil).Once()

	f.svc.HandlePaymentMethodUpdated(ctx, "cus_9", "pm_1", 9, 2028)

	assert.Equal(t, entity.StatusActive, paused.Status)
	f.methodRepo.AssertExpectations(t)
	f.subRepo.AssertExpectations(t)
}

func TestRetryRecovery(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	user := &entity.User{ID: userID, GatewayCustomerID: "cus_9", Email: "sam@example.com"}
	_ = user

	t.Run("still transient schedules another retry", func(t *testing.T) {
		f := newPipeline()
		latest := entity.NewPaymentMethodFailure(
			userID, "pm_1", "cus_9",
			entity.FailureProcessingError, "insufficient_funds", "",
			true, testNow,
		)
		f.failRepo.On("GetLatest", ctx, "pm_1", entity.FailureProcessingError).Return(latest, nil).Once()

		retryAgain := f.svc.RetryRecovery(ctx, "pm_1", entity.FailureProcessingError)

		assert.True(t, retryAgain)
		f.notifRepo.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
	})

	t.Run("non-retryable record never re-attempts", func(t *testing.T) {
		f := newPipeline()
		latest := entity.NewPaymentMethodFailure(
			userID, "pm_1", "cus_9",
			entity.FailureDeclined, "do_not_honor", "",
			false, testNow,
		)
		f.failRepo.On("GetLatest", ctx, "pm_1", entity.FailureDeclined).Return(latest, nil).Once()

		retryAgain := f.svc.RetryRecovery(ctx, "pm_1", entity.FailureDeclined)

		assert.False(t, retryAgain)
		f.gw.AssertNotCalled(t, "GetPaymentMethod", mock.Anything, mock.Anything)
		f.methodRepo.AssertNotCalled(t, "GetActiveByUserID", mock.Anything, mock.Anything)
	})

	t.Run("no recorded failure is a no-op", func(t *testing.T) {
		f := newPipeline()
		f.failRepo.On("GetLatest", ctx, "pm_1", entity.FailureProcessingError).Return(nil, nil).Once()

		retryAgain := f.svc.RetryRecovery(ctx, "pm_1", entity.FailureProcessingError)

		assert.False(t, retryAgain)
	})
}
