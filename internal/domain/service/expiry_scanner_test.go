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
	"github.com/bivex/billing-recon/internal/domain/gateway"
	"github.com/bivex/billing-recon/internal/domain/service"
	"github.com/bivex/billing-recon/tests/mocks"
)

// fakePipeline records synthetic failure events the scanner emits
type fakePipeline struct {
	events []service.FailureEvent
}

func (f *fakePipeline) HandlePaymentFailure(ctx context.Context, event service.FailureEvent) service.ReconciliationResult {
	f.events = append(f.events, event)
	return service.ReconciliationResult{Handled: true}
}

// scanNow pins the sweep clock: cards expiring 6/2026 have 5 full days left.
var scanNow = time.Date(2026, 6, 25, 9, 0, 0, 0, time.UTC)

func newScanner(gw *mocks.MockPaymentGateway, methodRepo *mocks.MockPaymentMethodRepository, notifRepo *mocks.MockNotificationRepository, pipeline *fakePipeline) *service.ExpiryScanner {
	userRepo := mocks.NewMockUserRepository()
	dispatcher := service.NewNotificationDispatcher(notifRepo, userRepo, zap.NewNop())
	scanner := service.NewExpiryScanner(gw, methodRepo, dispatcher, pipeline, 30, 7, zap.NewNop())
	scanner.SetNow(func() time.Time { return scanNow })
	return scanner
}

func sameExpiryInstrument(method *entity.PaymentMethod) *gateway.Instrument {
	return &gateway.Instrument{
		ID:         method.GatewayMethodID,
		CustomerID: method.GatewayCustomerID,
		Type:       "card",
		ExpMonth:   method.ExpMonth,
		ExpYear:    method.ExpYear,
	}
}

func TestScanNotifies(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("urgent window", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		methodRepo := mocks.NewMockPaymentMethodRepository()
		notifRepo := mocks.NewMockNotificationRepository()
		pipeline := &fakePipeline{}
		scanner := newScanner(gw, methodRepo, notifRepo, pipeline)

		method := entity.NewPaymentMethod(userID, "pm_urgent", "cus_123", 6, 2026)
		methodRepo.On("GetExpiringCards", ctx, mock.Anything).Return([]*entity.PaymentMethod{method}, nil).Once()
		gw.On("GetPaymentMethod", ctx, "pm_urgent").Return(sameExpiryInstrument(method), nil).Once()
		notifRepo.On("CreateNotification", ctx, mock.MatchedBy(func(n *entity.Notification) bool {
			return n.Type == "payment_method_expiring_urgent"
		})).Return(nil).Once()

		report, err := scanner.Scan(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, report.Scanned)
		assert.Equal(t, 1, report.Notified)
		assert.Equal(t, 0, report.Expired)
		assert.Empty(t, pipeline.events)
		notifRepo.AssertExpectations(t)
	})

	t.Run("warning window", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		methodRepo := mocks.NewMockPaymentMethodRepository()
		notifRepo := mocks.NewMockNotificationRepository()
		pipeline := &fakePipeline{}
		scanner := newScanner(gw, methodRepo, notifRepo, pipeline)

		// From June 10, a 6/2026 card has 21 days left: inside the 30-day
		// horizon, outside the 7-day urgent window.
		scanner.SetNow(func() time.Time { return time.Date(2026, 6, 10, 9, 0, 0, 0, time.UTC) })
		method := entity.NewPaymentMethod(userID, "pm_warning", "cus_123", 6, 2026)
		methodRepo.On("GetExpiringCards", ctx, mock.Anything).Return([]*entity.PaymentMethod{method}, nil).Once()
		gw.On("GetPaymentMethod", ctx, "pm_warning").Return(sameExpiryInstrument(method), nil).Once()
		notifRepo.On("CreateNotification", ctx, mock.MatchedBy(func(n *entity.Notification) bool {
			return n.Type == "payment_method_expiring"
		})).Return(nil).Once()

		report, err := scanner.Scan(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, report.Notified)
		notifRepo.AssertExpectations(t)
	})

	t.Run("beyond horizon stays quiet", func(t *testing.T) {
		gw := mocks.NewMockPaymentGateway()
		methodRepo := mocks.NewMockPaymentMethodRepository()
		notifRepo := mocks.NewMockNotificationRepository()
		pipeline := &fakePipeline{}
		scanner := newScanner(gw, methodRepo, notifRepo, pipeline)

		method := entity.NewPaymentMethod(userID, "pm_fresh", "cus_123", 12, 2027)
		methodRepo.On("GetExpiringCards", ctx, mock.Anything).Return([]*entity.PaymentMethod{method}, nil).Once()
		gw.On("GetPaymentMethod", ctx, "pm_fresh").Return(sameExpiryInstrument(method), nil).Once()

		report, err := scanner.Scan(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, report.Notified)
		notifRepo.AssertNotCalled(t, "CreateNotification", mock.Anything, mock.Anything)
	})
}

func TestScanExpiredCardReentersPipeline(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	gw := mocks.NewMockPaymentGateway()
	methodRepo := mocks.NewMockPaymentMethodRepository()
	notifRepo := mocks.NewMockNotificationRepository()
	pipeline := &fakePipeline{}
	scanner := newScanner(gw, methodRepo, notifRepo, pipeline)

	method := entity.NewPaymentMethod(userID, "pm_lapsed", "cus_123", 5, 2026)
	methodRepo.On("GetExpiringCards", ctx, mock.Anything).Return([]*entity.PaymentMethod{method}, nil).Once()
	gw.On("GetPaymentMethod", ctx, "pm_lapsed").Return(sameExpiryInstrument(method), nil).Once()

	report, err := scanner.Scan(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, 0, report.Notified)
	require.Len(t, pipeline.events, 1)
	assert.Equal(t, "pm_lapsed", pipeline.events[0].PaymentMethodID)
	assert.Equal(t, "cus_123", pipeline.events[0].CustomerID)
	assert.Equal(t, "expired_card", pipeline.events[0].RawFailureType)
}

func TestScanRefreshesGatewayExpiry(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	gw := mocks.NewMockPaymentGateway()
	methodRepo := mocks.NewMockPaymentMethodRepository()
	notifRepo := mocks.NewMockNotificationRepository()
	pipeline := &fakePipeline{}
	scanner := newScanner(gw, methodRepo, notifRepo, pipeline)

	// Stored as expiring this month, but the card network already pushed a
	// refreshed expiry to the gateway.
	method := entity.NewPaymentMethod(userID, "pm_refreshed", "cus_123", 6, 2026)
	methodRepo.On("GetExpiringCards", ctx, mock.Anything).Return([]*entity.PaymentMethod{method}, nil).Once()
	gw.On("GetPaymentMethod", ctx, "pm_refreshed").Return(&gateway.Instrument{
		ID: "pm_refreshed", CustomerID: "cus_123", Type: "card",
		ExpMonth: 6, ExpYear: 2029,
	}, nil).Once()
	methodRepo.On("UpdateExpiry", ctx, "pm_refreshed", 6, 2029).Return(nil).Once()

	report, err := scanner.Scan(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Refreshed)
	assert.Equal(t, 0, report.Notified)
	assert.Equal(t, 0, report.Expired)
	assert.Empty(t, pipeline.events)
	methodRepo.AssertExpectations(t)
}

func TestScanIsolatesItemFailures(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	gw := mocks.NewMockPaymentGateway()
	methodRepo := mocks.NewMockPaymentMethodRepository()
	notifRepo := mocks.NewMockNotificationRepository()
	pipeline := &fakePipeline{}
	scanner := newScanner(gw, methodRepo, notifRepo, pipeline)

	broken := entity.NewPaymentMethod(userID, "pm_broken", "cus_123", 6, 2026)
	healthy := entity.NewPaymentMethod(userID, "pm_healthy", "cus_123", 6, 2026)
	methodRepo.On("GetExpiringCards", ctx, mock.Anything).Return([]*entity.PaymentMethod{broken, healthy}, nil).Once()
	gw.On("GetPaymentMethod", ctx, "pm_broken").Return(nil, errors.New("gateway timeout")).Once()
	gw.On("GetPaymentMethod", ctx, "pm_healthy").Return(sameExpiryInstrument(healthy), nil).Once()
	notifRepo.On("CreateNotification", ctx, mock.Anything).Return(nil).Once()

	report, err := scanner.Scan(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Notified)
}

func TestScanPropagatesListError(t *testing.T) {
	ctx := context.Background()

	gw := mocks.NewMockPaymentGateway()
	methodRepo := mocks.NewMockPaymentMethodRepository()
	notifRepo := mocks.NewMockNotificationRepository()
	pipeline := &fakePipeline{}
	scanner := newScanner(gw, methodRepo, notifRepo, pipeline)

	methodRepo.On("GetExpiringCards", ctx, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	_, err := scanner.Scan(ctx)
	assert.Error(t, err)
}
