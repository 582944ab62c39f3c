package tasks

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// HandleScanExpiring runs one proactive expiry sweep
func (h *TaskHandlers) HandleScanExpiring(ctx context.Context, t *asynq.Task) error {
	report, err := h.scanner.Scan(ctx)
	if err != nil {
		return err
	}

	h.logger.Info("Expiry scan finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("refreshed", report.Refreshed),
		zap.Int("notified", report.Notified),
		zap.Int("expired", report.Expired),
		zap.Int("failed", report.Failed),
	)
	return nil
}
