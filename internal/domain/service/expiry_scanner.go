package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/entity"
	"github.com/bivex/billing-recon/internal/domain/gateway"
	"github.com/bivex/billing-recon/internal/domain/repository"
)

// failurePipeline is the slice of the reconciliation service the scanner
// re-enters for cards that are already expired.
type failurePipeline interface {
	HandlePaymentFailure(ctx context.Context, event FailureEvent) ReconciliationResult
}

// ScanReport summarizes one expiry scan run
type ScanReport struct {
	Scanned   int
	Refreshed int
	Notified  int
	Expired   int
	Failed    int
}

// ExpiryScanner proactively sweeps stored card payment methods nearing
// expiry. Runs are sequential per invocation but may overlap across
// invocations; every step is an idempotent fetch plus conditional update, so
// processing an item twice is safe.
type ExpiryScanner struct {
	gateway     gateway.PaymentGateway
	methodRepo  repository.PaymentMethodRepository
	dispatcher  *NotificationDispatcher
	pipeline    failurePipeline
	logger      *zap.Logger
	horizonDays int
	urgentDays  int
	now         func() time.Time
}

// NewExpiryScanner creates a new expiry scanner. Non-positive window values
// fall back to a 30-day horizon and a 7-day urgent threshold.
func NewExpiryScanner(
	gw gateway.PaymentGateway,
	methodRepo repository.PaymentMethodRepository,
	dispatcher *NotificationDispatcher,
	pipeline failurePipeline,
	horizonDays, urgentDays int,
	logger *zap.Logger,
) *ExpiryScanner {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	if urgentDays <= 0 {
		urgentDays = 7
	}
	return &ExpiryScanner{
		gateway:     gw,
		methodRepo:  methodRepo,
		dispatcher:  dispatcher,
		pipeline:    pipeline,
		logger:      logger,
		horizonDays: horizonDays,
		urgentDays:  urgentDays,
		now:         time.Now,
	}
}

// Scan enumerates card methods expiring within the horizon and feeds each one
// through refresh, classification, and notification. Per-item failures are
// isolated: one item's error never stops the rest of the sweep.
func (s *ExpiryScanner) Scan(ctx context.Context) (ScanReport, error) {
	now := s.now()
	horizon := now.AddDate(0, 0, s.horizonDays)

	methods, err := s.methodRepo.GetExpiringCards(ctx, horizon)
	if err != nil {
		return ScanReport{}, fmt.Errorf("list expiring cards: %w", err)
	}

	report := ScanReport{Scanned: len(methods)}
	for _, method := range methods {
		if err := s.scanOne(ctx, method, now, &report); err != nil {
			report.Failed++
			s.logger.Error("expiry scan item failed",
				zap.String("payment_method_id", method.GatewayMethodID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("expiry scan completed",
		zap.Int("scanned", report.Scanned),
		zap.Int("refreshed", report.Refreshed),
		zap.Int("notified", report.Notified),
		zap.Int("expired", report.Expired),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *ExpiryScanner) scanOne(ctx context.Context, method *entity.PaymentMethod, now time.Time, report *ScanReport) error {
	// Re-fetch from the gateway: card networks push refreshed expiry dates
	// there first. A differing expiry is persisted before classification so a
	// refreshed card drops out of the warning window.
	instrument, err := s.gateway.GetPaymentMethod(ctx, method.GatewayMethodID)
	if err != nil {
		return fmt.Errorf("fetch instrument: %w", err)
	}
	if instrument.ExpMonth != method.ExpMonth || instrument.ExpYear != method.ExpYear {
		if err := s.methodRepo.UpdateExpiry(ctx, method.GatewayMethodID, instrument.ExpMonth, instrument.ExpYear); err != nil {
			return fmt.Errorf("persist refreshed expiry: %w", err)
		}
		method.ExpMonth = instrument.ExpMonth
		method.ExpYear = instrument.ExpYear
		report.Refreshed++
	}

	if method.IsExpired(now) {
		// Already lapsed: re-enter the recovery/notification pipeline with a
		// synthetic expired event instead of a mere warning.
		report.Expired++
		s.pipeline.HandlePaymentFailure(ctx, FailureEvent{
			CustomerID:      method.GatewayCustomerID,
			PaymentMethodID: method.GatewayMethodID,
			RawFailureType:  "expired_card",
			FailureMessage:  "card expired, detected by expiry scan",
			OccurredAt:      now,
		})
		return nil
	}

	daysLeft := method.DaysUntilExpiry(now)
	switch {
	case daysLeft <= s.urgentDays:
		s.dispatcher.NotifyExpiring(ctx, method.UserID, method, daysLeft, "urgent")
		report.Notified++
	case daysLeft <= s.horizonDays:
		s.dispatcher.NotifyExpiring(ctx, method.UserID, method, daysLeft, "warning")
		report.Notified++
	}
	// Beyond the horizon after a refresh: nothing to say.

	return nil
}
