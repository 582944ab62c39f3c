package tasks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// HandleRetryRecovery re-enters recovery for a transient payment failure.
// The attempt counter lives in the payload, not in asynq's own retry
// machinery: a pass that still comes back transient is a successful task run
// that enqueues its successor, so asynq retries stay reserved for crashes.
func (h *TaskHandlers) HandleRetryRecovery(ctx context.Context, t *asynq.Task) error {
	var payload retryRecoveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}

	failureType := entity.FailureType(payload.FailureType)
	if !failureType.IsValid() {
		h.logger.Warn("retry task with unknown failure type dropped",
			zap.String("failure_type", payload.FailureType),
		)
		return nil
	}

	retryAgain := h.reconciliation.RetryRecovery(ctx, payload.PaymentMethodID, failureType)
	if !retryAgain {
		return nil
	}

	if payload.Attempt >= h.maxRetries {
		h.logger.Info("recovery retries exhausted",
			zap.String("payment_method_id", payload.PaymentMethodID),
			zap.Int("attempts", payload.Attempt),
		)
		return nil
	}

	next, err := NewRetryRecoveryTask(payload.PaymentMethodID, payload.FailureType, payload.Attempt+1)
	if err != nil {
		return err
	}
	// Linear backoff: attempt n waits n times the base delay.
	delay := h.retryDelay * time.Duration(payload.Attempt+1)
	if _, err := h.asynqClient.Enqueue(next,
		asynq.Queue("critical"),
		asynq.ProcessIn(delay),
	); err != nil {
		return err
	}

	h.logger.Info("recovery retry scheduled",
		zap.String("payment_method_id", payload.PaymentMethodID),
		zap.Int("attempt", payload.Attempt+1),
		zap.Duration("delay", delay),
	)
	return nil
}
