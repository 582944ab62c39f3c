package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/entity"
	"github.com/bivex/billing-recon/internal/domain/gateway"
	"github.com/bivex/billing-recon/internal/domain/repository"
)

// SubscriptionReconciler decides whether subscriptions tied to a failing
// payment method must be paused, resumed, or left alone.
type SubscriptionReconciler struct {
	gateway          gateway.PaymentGateway
	subscriptionRepo repository.SubscriptionRepository
	logger           *zap.Logger
}

// NewSubscriptionReconciler creates a new subscription reconciler
func NewSubscriptionReconciler(gw gateway.PaymentGateway, subscriptionRepo repository.SubscriptionRepository, logger *zap.Logger) *SubscriptionReconciler {
	return &SubscriptionReconciler{
		gateway:          gw,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// Reconcile applies the pause rule for one failure and its recovery outcome:
//   - recovered: no subscription mutation
//   - unrecovered and retryable: left alone (grace period policy lives
//     outside this engine)
//   - unrecovered and non-retryable: every active or trialing subscription
//     owned by the user is paused with a structured reason
func (r *SubscriptionReconciler) Reconcile(ctx context.Context, failure *entity.PaymentMethodFailure, recovery entity.PaymentMethodRecovery) error {
	if recovery.Success {
		return nil
	}
	if failure.Retryable {
		return nil
	}

	subscriptions, err := r.subscriptionRepo.GetPausableByUserID(ctx, failure.UserID)
	if err != nil {
		return fmt.Errorf("list pausable subscriptions for user %s: %w", failure.UserID, err)
	}

	reason := entity.PauseMetadata{
		Reason:          entity.PauseReasonPaymentFailed,
		PaymentMethodID: failure.PaymentMethodID,
		PausedAt:        time.Now().UTC(),
	}

	for _, sub := range subscriptions {
		if !sub.MarkPaused(reason) {
			// Already paused: idempotent no-op, not an error.
			continue
		}

		if err := r.gateway.PauseSubscription(ctx, sub.GatewaySubscriptionID, map[string]string{
			"pause_reason":      reason.Reason,
			"payment_method_id": reason.PaymentMethodID,
			"paused_at":         reason.PausedAt.Format(time.RFC3339),
		}); err != nil {
			// Gateway pause is idempotent; a failed call is retried by the
			// next webhook or scan for this instrument.
			r.logger.Error("failed to pause subscription at gateway",
				zap.String("subscription_id", sub.ID.String()),
				zap.String("gateway_subscription_id", sub.GatewaySubscriptionID),
				zap.Error(err),
			)
			continue
		}

		if err := r.subscriptionRepo.Update(ctx, sub); err != nil {
			r.logger.Error("failed to persist paused subscription",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err),
			)
			continue
		}

		r.logger.Info("subscription paused for payment failure",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("user_id", failure.UserID.String()),
			zap.String("payment_method_id", failure.PaymentMethodID),
		)
	}

	return nil
}

// ResumeForPaymentMethod resumes subscriptions this engine previously paused
// with reason payment_method_failed, on fresh gateway evidence that the
// customer's instrument is healthy again. Both the gateway call and the local
// update are idempotent.
func (r *SubscriptionReconciler) ResumeForPaymentMethod(ctx context.Context, userID uuid.UUID, paymentMethodID string) error {
	subscriptions, err := r.subscriptionRepo.GetPausedForPaymentFailure(ctx, userID)
	if err != nil {
		return fmt.Errorf("list paused subscriptions for user %s: %w", userID, err)
	}

	for _, sub := range subscriptions {
		if !sub.PausedForPaymentFailure("") {
			continue
		}
		if !sub.MarkResumed() {
			continue
		}

		if err := r.gateway.ResumeSubscription(ctx, sub.GatewaySubscriptionID); err != nil {
			r.logger.Error("failed to resume subscription at gateway",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if err := r.subscriptionRepo.Update(ctx, sub); err != nil {
			r.logger.Error("failed to persist resumed subscription",
				zap.String("subscription_id", sub.ID.String()),
				zap.Error(err),
			)
			continue
		}

		r.logger.Info("subscription resumed after payment method update",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("user_id", userID.String()),
			zap.String("payment_method_id", paymentMethodID),
		)
	}

	return nil
}
