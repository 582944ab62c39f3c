package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/service"
	"github.com/bivex/billing-recon/internal/infrastructure/config"
	"github.com/bivex/billing-recon/internal/infrastructure/logging"
)

// Task names
const (
	TypeRetryRecovery = "recovery:retry"
	TypeScanExpiring  = "scan:expiring"
)

// retryRecoveryPayload drives one deferred recovery re-attempt
type retryRecoveryPayload struct {
	PaymentMethodID string `json:"payment_method_id"`
	FailureType     string `json:"failure_type"`
	Attempt         int    `json:"attempt"`
}

// NewRetryRecoveryTask builds a retry task for a transient payment failure
func NewRetryRecoveryTask(paymentMethodID, failureType string, attempt int) (*asynq.Task, error) {
	payload, err := json.Marshal(retryRecoveryPayload{
		PaymentMethodID: paymentMethodID,
		FailureType:     failureType,
		Attempt:         attempt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal retry payload: %w", err)
	}
	return asynq.NewTask(TypeRetryRecovery, payload), nil
}

// TaskHandlers holds dependencies for all task handlers.
type TaskHandlers struct {
	reconciliation *service.ReconciliationService
	scanner        *service.ExpiryScanner
	asynqClient    *asynq.Client
	retryDelay     time.Duration
	maxRetries     int
	logger         *zap.Logger
}

// NewTaskHandlers creates task handlers with service access.
func NewTaskHandlers(
	reconciliation *service.ReconciliationService,
	scanner *service.ExpiryScanner,
	asynqClient *asynq.Client,
	gatewayCfg config.GatewayConfig,
) *TaskHandlers {
	return &TaskHandlers{
		reconciliation: reconciliation,
		scanner:        scanner,
		asynqClient:    asynqClient,
		retryDelay:     gatewayCfg.RetryDelay,
		maxRetries:     gatewayCfg.MaxRecoveryRetries,
		logger:         logging.Logger,
	}
}

// RegisterHandlers registers all task handlers with the server mux.
func RegisterHandlers(mux *asynq.ServeMux, h *TaskHandlers) {
	mux.HandleFunc(TypeRetryRecovery, h.HandleRetryRecovery)
	mux.HandleFunc(TypeScanExpiring, h.HandleScanExpiring)
}

// RegisterScheduledTasks registers all scheduled (cron) tasks
func RegisterScheduledTasks(scheduler *asynq.Scheduler, scannerCfg config.ScannerConfig) {
	_, err := scheduler.Register(scannerCfg.Cron, asynq.NewTask(TypeScanExpiring, nil), asynq.Queue("low"))
	if err != nil {
		logging.Logger.Error("Failed to schedule expiry scan", zap.Error(err))
	}
}
