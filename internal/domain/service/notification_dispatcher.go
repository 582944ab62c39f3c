package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/entity"
	"github.com/bivex/billing-recon/internal/domain/repository"
)

// messageKey selects a customer-facing message from the fixed table
type messageKey struct {
	recovered   bool
	failureType entity.FailureType
}

type messageTemplate struct {
	notifType string
	title     string
	body      string
}

// failureMessages is the fixed message table keyed on (recovery success,
// failure type). Exactly one entry is selected per dispatch.
var failureMessages = map[messageKey]messageTemplate{
	{true, entity.FailureExpired}: {
		notifType: "payment_method_resolved",
		title:     "Your card details were updated",
		body:      "Your card issuer provided updated details and your payment method is active again. No action is needed.",
	},
	{true, entity.FailureDeclined}: {
		notifType: "payment_method_resolved",
		title:     "We switched to your backup payment method",
		body:      "A charge on your default payment method was declined, so we switched billing to another card on file.",
	},
	{true, entity.FailureInvalid}: {
		notifType: "payment_method_resolved",
		title:     "We switched to your backup payment method",
		body:      "Your default payment method could not be used, so we switched billing to another card on file.",
	},
	{true, entity.FailureAuthenticationRequired}: {
		notifType: "payment_method_resolved",
		title:     "Your payment went through",
		body:      "Authentication completed and your payment method is active again.",
	},
	{true, entity.FailureProcessingError}: {
		notifType: "payment_method_resolved",
		title:     "Your payment went through",
		body:      "A temporary processing issue was resolved and your payment method is active again.",
	},
	{false, entity.FailureExpired}: {
		notifType: "payment_method_action_required",
		title:     "Your card has expired",
		body:      "The card on file has expired. Please update your card details to keep your subscription running.",
	},
	{false, entity.FailureDeclined}: {
		notifType: "payment_method_action_required",
		title:     "Your payment was declined",
		body:      "Your card issuer declined the payment. Please add a new payment method to keep your subscription running.",
	},
	{false, entity.FailureInvalid}: {
		notifType: "payment_method_action_required",
		title:     "Your payment details need attention",
		body:      "The payment details on file could not be used. Please update your payment method.",
	},
	{false, entity.FailureAuthenticationRequired}: {
		notifType: "payment_method_action_required",
		title:     "Confirm your payment",
		body:      "Your bank requires additional authentication. Please confirm the payment to keep your subscription running.",
	},
	{false, entity.FailureProcessingError}: {
		notifType: "payment_method_retrying",
		title:     "We hit a temporary payment issue",
		body:      "A temporary issue prevented your payment from going through. We will retry automatically, no action is needed yet.",
	},
}

// expiryMessages keyed by urgency level for the proactive expiry scan
var expiryMessages = map[string]messageTemplate{
	"urgent": {
		notifType: "payment_method_expiring_urgent",
		title:     "Your card expires in a few days",
		body:      "The card on file expires within a week. Please update your card details to avoid any interruption.",
	},
	"warning": {
		notifType: "payment_method_expiring",
		title:     "Your card expires soon",
		body:      "The card on file expires within 30 days. Take a moment to update your card details.",
	},
}

// NotificationDispatcher translates failure and recovery outcomes into
// customer-facing notifications and operator alerts. Dispatch is best effort:
// failures here are logged and swallowed, never propagated to the
// reconciliation that triggered them.
type NotificationDispatcher struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	logger           *zap.Logger
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(notificationRepo repository.NotificationRepository, userRepo repository.UserRepository, logger *zap.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		logger:           logger,
	}
}

// DispatchFailureOutcome emits exactly one customer notification for the
// failure/recovery pair and, only for an unrecovered non-retryable failure,
// one medium admin alert.
func (d *NotificationDispatcher) DispatchFailureOutcome(ctx context.Context, failure *entity.PaymentMethodFailure, recovery entity.PaymentMethodRecovery) {
	template, ok := failureMessages[messageKey{recovery.Success, failure.FailureType}]
	if !ok {
		// The table covers every (bool, FailureType) pair; this only fires on
		// a corrupted failure record.
		template = failureMessages[messageKey{false, entity.FailureProcessingError}]
	}

	user, err := d.userRepo.GetByID(ctx, failure.UserID)
	if err != nil {
		d.logger.Warn("notification skipped, contact record lookup failed",
			zap.String("user_id", failure.UserID.String()),
			zap.Error(err),
		)
		return
	}

	metadata := map[string]string{
		"payment_method_id": failure.PaymentMethodID,
		"failure_type":      string(failure.FailureType),
	}
	if recovery.NextAction != "" {
		metadata["next_action"] = recovery.NextAction
	}
	if recovery.NewPaymentMethodID != "" {
		metadata["new_payment_method_id"] = recovery.NewPaymentMethodID
	}

	notification := entity.NewNotification(user.ID, template.notifType, template.title, template.body, metadata)
	if err := d.notificationRepo.CreateNotification(ctx, notification); err != nil {
		d.logger.Error("failed to insert customer notification",
			zap.String("user_id", user.ID.String()),
			zap.String("type", template.notifType),
			zap.Error(err),
		)
	}

	if !recovery.Success && !failure.Retryable {
		d.raiseAdminAlert(ctx, failure, recovery)
	}
}

// NotifyExpiring emits the urgent or warning expiry notice for a card
// approaching its expiry date.
func (d *NotificationDispatcher) NotifyExpiring(ctx context.Context, userID uuid.UUID, method *entity.PaymentMethod, daysLeft int, urgency string) {
	template, ok := expiryMessages[urgency]
	if !ok {
		d.logger.Warn("unknown expiry urgency, notice dropped", zap.String("urgency", urgency))
		return
	}

	notification := entity.NewNotification(userID, template.notifType, template.title, template.body, map[string]string{
		"payment_method_id": method.GatewayMethodID,
		"card_last4":        method.Last4,
		"days_until_expiry": fmt.Sprintf("%d", daysLeft),
	})
	if err := d.notificationRepo.CreateNotification(ctx, notification); err != nil {
		d.logger.Error("failed to insert expiry notification",
			zap.String("user_id", userID.String()),
			zap.String("payment_method_id", method.GatewayMethodID),
			zap.Error(err),
		)
	}
}

func (d *NotificationDispatcher) raiseAdminAlert(ctx context.Context, failure *entity.PaymentMethodFailure, recovery entity.PaymentMethodRecovery) {
	message := fmt.Sprintf("unrecoverable payment failure (%s) for customer %s on %s",
		failure.FailureType, failure.CustomerID, failure.PaymentMethodID)

	metadata := map[string]string{
		"user_id":           failure.UserID.String(),
		"customer_id":       failure.CustomerID,
		"payment_method_id": failure.PaymentMethodID,
		"failure_type":      string(failure.FailureType),
		"failure_code":      failure.FailureCode,
		"recovery_method":   string(recovery.RecoveryMethod),
	}
	if recovery.Err != nil {
		metadata["recovery_error"] = recovery.Err.Error()
	}

	alert := entity.NewAdminAlert(entity.SeverityMedium, "payment_method_unrecoverable", message, metadata)
	if err := d.notificationRepo.CreateAdminAlert(ctx, alert); err != nil {
		d.logger.Error("failed to insert admin alert",
			zap.String("customer_id", failure.CustomerID),
			zap.Error(err),
		)
	}
}
