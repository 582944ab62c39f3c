package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/bivex/billing-recon/internal/domain/errors"
	"github.com/bivex/billing-recon/internal/domain/repository"
	"github.com/bivex/billing-recon/internal/domain/service"
	"github.com/bivex/billing-recon/internal/interfaces/http/response"
)

// PaymentMethodHandler handles payment method read endpoints
type PaymentMethodHandler struct {
	recovery    *service.RecoveryService
	failureRepo repository.PaymentFailureRepository
}

// NewPaymentMethodHandler creates a new payment method handler
func NewPaymentMethodHandler(recovery *service.RecoveryService, failureRepo repository.PaymentFailureRepository) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		recovery:    recovery,
		failureRepo: failureRepo,
	}
}

type validationResponse struct {
	Status      string     `json:"status"`
	LastError   *string    `json:"last_error,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	NeedsUpdate bool       `json:"needs_update"`
}

type failureResponse struct {
	FailureType    string    `json:"failure_type"`
	FailureCode    string    `json:"failure_code,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
	Retryable      bool      `json:"retryable"`
	LastAttempt    time.Time `json:"last_attempt"`
}

// GetStatus returns a point-in-time validation snapshot for an instrument
// @Summary Validate a payment method
// @Tags payment-methods
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=validationResponse}
// @Failure 404 {object} response.ErrorResponse
// @Router /v1/payment-methods/{id}/status [get]
func (h *PaymentMethodHandler) GetStatus(c *gin.Context) {
	methodID := c.Param("id")
	if methodID == "" {
		response.BadRequest(c, "Payment method id is required")
		return
	}

	validation, err := h.recovery.ValidatePaymentMethod(c.Request.Context(), methodID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrPaymentMethodNotFound) {
			response.NotFound(c, "Payment method not found")
			return
		}
		response.InternalError(c, "Failed to validate payment method")
		return
	}

	resp := validationResponse{
		Status:      string(validation.Status),
		LastError:   validation.LastError,
		NeedsUpdate: validation.NeedsUpdate,
	}
	if !validation.ExpiresAt.IsZero() {
		expiresAt := validation.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	response.OK(c, resp)
}

// GetFailures returns the most recent failure records for an instrument
// @Summary List recent payment method failures
// @Tags payment-methods
// @Produce json
// @Success 200 {object} response.SuccessResponse{data=[]failureResponse}
// @Router /v1/payment-methods/{id}/failures [get]
func (h *PaymentMethodHandler) GetFailures(c *gin.Context) {
	methodID := c.Param("id")
	if methodID == "" {
		response.BadRequest(c, "Payment method id is required")
		return
	}

	failures, err := h.failureRepo.GetRecentByPaymentMethodID(c.Request.Context(), methodID, 20)
	if err != nil {
		response.InternalError(c, "Failed to list payment method failures")
		return
	}

	resp := make([]failureResponse, 0, len(failures))
	for _, f := range failures {
		resp = append(resp, failureResponse{
			FailureType:    string(f.FailureType),
			FailureCode:    f.FailureCode,
			FailureMessage: f.FailureMessage,
			Retryable:      f.Retryable,
			LastAttempt:    f.LastAttempt,
		})
	}
	response.OK(c, resp)
}
