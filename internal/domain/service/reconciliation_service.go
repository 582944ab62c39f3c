package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/entity"
	"github.com/bivex/billing-recon/internal/domain/repository"
)

// FailureEvent is the parsed gateway evidence that drives one pipeline pass.
// Payload validation and signature checks happen upstream in the webhook
// handler; the scanner builds synthetic events from stored expiry data.
type FailureEvent struct {
	CustomerID      string
	PaymentMethodID string
	RawFailureType  string
	FailureCode     string
	FailureMessage  string
	OccurredAt      time.Time
}

// ReconciliationResult summarizes one pipeline pass for callers that need to
// schedule a later retry. It carries no error: the pipeline swallows internal
// failures.
type ReconciliationResult struct {
	Handled  bool
	Failure  *entity.PaymentMethodFailure
	Recovery entity.PaymentMethodRecovery
}

// ShouldRetryLater reports whether the caller may re-invoke recovery later
func (r ReconciliationResult) ShouldRetryLater() bool {
	return r.Handled && !r.Recovery.Success && r.Recovery.NextAction == entity.ActionRetryLater
}

// ReconciliationService drives the webhook pipeline: classify, persist,
// recover, reconcile subscriptions, notify. Each step is independently fault
// tolerant; nothing escapes this boundary as an error, because the gateway
// retries delivery on non-2xx responses and a retry would not change an
// already-failed internal step.
type ReconciliationService struct {
	userRepo    repository.UserRepository
	failureRepo repository.PaymentFailureRepository
	recovery    *RecoveryService
	reconciler  *SubscriptionReconciler
	dispatcher  *NotificationDispatcher
	logger      *zap.Logger
}

// NewReconciliationService creates the webhook pipeline service
func NewReconciliationService(
	userRepo repository.UserRepository,
	failureRepo repository.PaymentFailureRepository,
	recovery *RecoveryService,
	reconciler *SubscriptionReconciler,
	dispatcher *NotificationDispatcher,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		userRepo:    userRepo,
		failureRepo: failureRepo,
		recovery:    recovery,
		reconciler:  reconciler,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// HandlePaymentFailure runs the five pipeline steps for one gateway failure
// event. Duplicate deliveries repeat the pass and append another audit row;
// every downstream mutation is idempotent so repeating is harmless.
func (s *ReconciliationService) HandlePaymentFailure(ctx context.Context, event FailureEvent) ReconciliationResult {
	// Step 1: resolve the gateway customer reference. Unknown customers are
	// expected under eventual consistency, so abort this event only.
	user, err := s.userRepo.GetByGatewayCustomerID(ctx, event.CustomerID)
	if err != nil {
		s.logger.Info("webhook for unknown customer dropped",
			zap.String("customer_id", event.CustomerID),
			zap.Error(err),
		)
		return ReconciliationResult{}
	}

	// Step 2: classify and persist the failure occurrence (append-only).
	failureType, retryable := ClassifyFailure(event.RawFailureType, event.FailureCode)
	failure := entity.NewPaymentMethodFailure(
		user.ID, event.PaymentMethodID, event.CustomerID,
		failureType, event.FailureCode, event.FailureMessage,
		retryable, event.OccurredAt,
	)
	if err := s.failureRepo.Create(ctx, failure); err != nil {
		// Best effort: losing an audit row does not block recovery.
		s.logger.Error("failed to persist payment method failure",
			zap.String("payment_method_id", event.PaymentMethodID),
			zap.Error(err),
		)
	}

	// Step 3: attempt recovery. Gateway errors surface inside the outcome.
	outcome := s.recovery.AttemptRecovery(ctx, failure)
	if outcome.Err != nil {
		s.logger.Error("recovery attempt needs manual intervention",
			zap.String("payment_method_id", event.PaymentMethodID),
			zap.String("failure_type", string(failureType)),
			zap.Error(outcome.Err),
		)
	}

	// Step 4: reconcile dependent subscriptions.
	if err := s.reconciler.Reconcile(ctx, failure, outcome); err != nil {
		s.logger.Error("subscription reconciliation failed",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}

	// Step 5: notify. Best effort, swallowed inside the dispatcher.
	s.dispatcher.DispatchFailureOutcome(ctx, failure, outcome)

	s.logger.Info("payment failure reconciled",
		zap.String("user_id", user.ID.String()),
		zap.String("payment_method_id", event.PaymentMethodID),
		zap.String("failure_type", string(failureType)),
		zap.Bool("retryable", retryable),
		zap.Bool("recovered", outcome.Success),
		zap.String("recovery_method", string(outcome.RecoveryMethod)),
	)

	return ReconciliationResult{Handled: true, Failure: failure, Recovery: outcome}
}

// HandlePaymentMethodUpdated reacts to gateway evidence that an instrument
// was attached or refreshed: the local mirror is updated and subscriptions
// paused for payment failure are resumed.
func (s *ReconciliationService) HandlePaymentMethodUpdated(ctx context.Context, customerID, paymentMethodID string, expMonth, expYear int) {
	user, err := s.userRepo.GetByGatewayCustomerID(ctx, customerID)
	if err != nil {
		s.logger.Info("payment method update for unknown customer dropped",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
		return
	}

	if expMonth != 0 && expYear != 0 {
		if err := s.recovery.methodRepo.UpdateExpiry(ctx, paymentMethodID, expMonth, expYear); err != nil {
			s.logger.Error("failed to persist updated expiry",
				zap.String("payment_method_id", paymentMethodID),
				zap.Error(err),
			)
		}
	}
	if err := s.recovery.methodRepo.UpdateStatus(ctx, paymentMethodID, entity.MethodStatusActive, nil); err != nil {
		s.logger.Error("failed to reset payment method status",
			zap.String("payment_method_id", paymentMethodID),
			zap.Error(err),
		)
	}

	if err := s.reconciler.ResumeForPaymentMethod(ctx, user.ID, paymentMethodID); err != nil {
		s.logger.Error("failed to resume subscriptions after payment method update",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}
}

// RetryRecovery re-enters recovery for the latest persisted failure of a
// (payment method, failure type) pair. A non-retryable record never triggers
// another automatic attempt: only a fresh webhook or scan can.
// It reports whether the caller may schedule yet another retry.
func (s *ReconciliationService) RetryRecovery(ctx context.Context, paymentMethodID string, failureType entity.FailureType) bool {
	failure, err := s.failureRepo.GetLatest(ctx, paymentMethodID, failureType)
	if err != nil {
		s.logger.Warn("retry skipped, latest failure lookup failed",
			zap.String("payment_method_id", paymentMethodID),
			zap.Error(err),
		)
		return false
	}
	if failure == nil || !failure.Retryable {
		return false
	}

	outcome := s.recovery.AttemptRecovery(ctx, failure)
	if outcome.Success {
		s.dispatcher.DispatchFailureOutcome(ctx, failure, outcome)
		return false
	}
	if outcome.NextAction == entity.ActionRetryLater {
		// Still transient: no state change, no duplicate notification.
		return true
	}

	// The retry surfaced a terminal outcome: run the remaining pipeline steps.
	if err := s.reconciler.Reconcile(ctx, failure, outcome); err != nil {
		s.logger.Error("subscription reconciliation failed on retry",
			zap.String("payment_method_id", paymentMethodID),
			zap.Error(err),
		)
	}
	s.dispatcher.DispatchFailureOutcome(ctx, failure, outcome)
	return false
}
