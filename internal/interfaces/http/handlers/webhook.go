package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/bivex/billing-recon/internal/domain/repository"
	"github.com/bivex/billing-recon/internal/domain/service"
	"github.com/bivex/billing-recon/internal/infrastructure/logging"
	"github.com/bivex/billing-recon/internal/interfaces/http/response"
	"github.com/bivex/billing-recon/internal/worker/tasks"
)

// WebhookHandler receives payment gateway events. Signature failures are the
// only rejections; once an event is authenticated the handler always answers
// 200 so the gateway does not redeliver events we already looked at.
type WebhookHandler struct {
	webhookSecret  string
	retryDelay     time.Duration
	reconciliation *service.ReconciliationService
	eventRepo      repository.WebhookEventRepository
	asynqClient    *asynq.Client
	logger         *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(
	webhookSecret string,
	retryDelay time.Duration,
	reconciliation *service.ReconciliationService,
	eventRepo repository.WebhookEventRepository,
	asynqClient *asynq.Client,
) *WebhookHandler {
	return &WebhookHandler{
		webhookSecret:  webhookSecret,
		retryDelay:     retryDelay,
		reconciliation: reconciliation,
		eventRepo:      eventRepo,
		asynqClient:    asynqClient,
		logger:         logging.WithComponent("webhook_handler"),
	}
}

// StripeWebhook handles Stripe webhook events
// @Summary Stripe webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Router /webhook/stripe [post]
func (h *WebhookHandler) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "Failed to read body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body, c.GetHeader("Stripe-Signature"), h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", zap.Error(err))
		response.Unauthorized(c, "Invalid signature")
		return
	}

	if err := h.eventRepo.Insert(c.Request.Context(), repository.WebhookEvent{
		Provider:   "stripe",
		EventType:  string(event.Type),
		EventID:    event.ID,
		Payload:    body,
		ReceivedAt: time.Now(),
	}); err != nil {
		// Log and keep going, a lost audit row must not fail the delivery
		h.logger.Error("failed to record webhook event",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
	}

	switch event.Type {
	case "invoice.payment_failed":
		h.handleInvoicePaymentFailed(c, event)
	case "payment_method.attached", "payment_method.updated", "payment_method.automatically_updated":
		h.handlePaymentMethodUpdated(c, event)
	default:
		h.logger.Debug("unhandled webhook event type",
			zap.String("event_type", string(event.Type)),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (h *WebhookHandler) handleInvoicePaymentFailed(c *gin.Context, event stripe.Event) {
	// Only the fields the pipeline consumes; the full payload is already in
	// the audit table.
	var invoice struct {
		Customer             string `json:"customer"`
		DefaultPaymentMethod string `json:"default_payment_method"`
		LastPaymentError     *struct {
			Code          string `json:"code"`
			Message       string `json:"message"`
			Type          string `json:"type"`
			DeclineCode   string `json:"decline_code"`
			PaymentMethod *struct {
				ID string `json:"id"`
			} `json:"payment_method"`
		} `json:"last_payment_error"`
	}
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice.payment_failed payload",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return
	}

	fe := service.FailureEvent{
		CustomerID:      invoice.Customer,
		PaymentMethodID: invoice.DefaultPaymentMethod,
		OccurredAt:      time.Unix(event.Created, 0),
	}
	if lpe := invoice.LastPaymentError; lpe != nil {
		fe.RawFailureType = lpe.Type
		fe.FailureCode = lpe.Code
		if lpe.DeclineCode != "" {
			fe.FailureCode = lpe.DeclineCode
		}
		fe.FailureMessage = lpe.Message
		if lpe.PaymentMethod != nil && lpe.PaymentMethod.ID != "" {
			fe.PaymentMethodID = lpe.PaymentMethod.ID
		}
	}
	if fe.PaymentMethodID == "" {
		h.logger.Warn("payment failure event without payment method reference",
			zap.String("event_id", event.ID),
			zap.String("customer_id", fe.CustomerID),
		)
		return
	}

	result := h.reconciliation.HandlePaymentFailure(c.Request.Context(), fe)
	if result.ShouldRetryLater() {
		h.enqueueRetry(result.Failure.PaymentMethodID, string(result.Failure.FailureType), 1)
	}
}

func (h *WebhookHandler) handlePaymentMethodUpdated(c *gin.Context, event stripe.Event) {
	var pm struct {
		ID       string `json:"id"`
		Customer string `json:"customer"`
		Card     *struct {
			ExpMonth int `json:"exp_month"`
			ExpYear  int `json:"exp_year"`
		} `json:"card"`
	}
	if err := json.Unmarshal(event.Data.Raw, &pm); err != nil {
		h.logger.Error("failed to parse payment method payload",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		return
	}
	if pm.Customer == "" || pm.ID == "" {
		return
	}

	var expMonth, expYear int
	if pm.Card != nil {
		expMonth, expYear = pm.Card.ExpMonth, pm.Card.ExpYear
	}
	h.reconciliation.HandlePaymentMethodUpdated(c.Request.Context(), pm.Customer, pm.ID, expMonth, expYear)
}

func (h *WebhookHandler) enqueueRetry(paymentMethodID, failureType string, attempt int) {
	task, err := tasks.NewRetryRecoveryTask(paymentMethodID, failureType, attempt)
	if err != nil {
		h.logger.Error("failed to build retry task", zap.Error(err))
		return
	}
	if _, err := h.asynqClient.Enqueue(task,
		asynq.Queue("critical"),
		asynq.ProcessIn(h.retryDelay),
	); err != nil {
		h.logger.Error("failed to enqueue recovery retry",
			zap.String("payment_method_id", paymentMethodID),
			zap.Error(err),
		)
	}
}
