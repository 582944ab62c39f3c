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

// RecoveryService attempts bounded automatic recovery for classified payment
// method failures. The gateway stays authoritative: local rows are updated to
// match what the gateway reports, never the other way around.
type RecoveryService struct {
	gateway    gateway.PaymentGateway
	methodRepo repository.PaymentMethodRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(gw gateway.PaymentGateway, methodRepo repository.PaymentMethodRepository, logger *zap.Logger) *RecoveryService {
	return &RecoveryService{
		gateway:    gw,
		methodRepo: methodRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// AttemptRecovery dispatches on the failure type and returns the recovery
// outcome. Gateway client errors never propagate: they are captured into the
// outcome as manual_intervention.
func (s *RecoveryService) AttemptRecovery(ctx context.Context, failure *entity.PaymentMethodFailure) entity.PaymentMethodRecovery {
	switch failure.FailureType {
	case entity.FailureExpired:
		return s.recoverExpired(ctx, failure)
	case entity.FailureDeclined, entity.FailureInvalid:
		return s.recoverWithAlternative(ctx, failure)
	case entity.FailureAuthenticationRequired:
		// Never auto-resolved: only the customer can complete the challenge.
		return customerAction(entity.ActionCompleteAuthentication)
	case entity.FailureProcessingError:
		if failure.Retryable {
			// Transient outcome: no state change, caller may re-invoke later.
			return entity.PaymentMethodRecovery{
				Success:        false,
				RecoveryMethod: entity.RecoveryAutomaticUpdate,
				NextAction:     entity.ActionRetryLater,
			}
		}
		return customerAction(entity.ActionUpdatePaymentMethod)
	default:
		return customerAction(entity.ActionUpdatePaymentMethod)
	}
}

// recoverExpired re-fetches the instrument from the gateway. Card networks
// sometimes push a refreshed expiry to the gateway before we hear about it;
// if so, persisting the new expiry is the whole recovery.
func (s *RecoveryService) recoverExpired(ctx context.Context, failure *entity.PaymentMethodFailure) entity.PaymentMethodRecovery {
	instrument, err := s.gateway.GetPaymentMethod(ctx, failure.PaymentMethodID)
	if err != nil {
		return manualIntervention(fmt.Errorf("fetch payment method %s: %w", failure.PaymentMethodID, err))
	}

	if !instrument.IsExpired(s.now()) {
		if err := s.methodRepo.UpdateExpiry(ctx, failure.PaymentMethodID, instrument.ExpMonth, instrument.ExpYear); err != nil {
			// Best effort: the next webhook or scan re-derives this from the gateway.
			s.logger.Error("failed to persist refreshed expiry",
				zap.String("payment_method_id", failure.PaymentMethodID),
				zap.Error(err),
			)
		}
		if err := s.methodRepo.UpdateStatus(ctx, failure.PaymentMethodID, entity.MethodStatusActive, nil); err != nil {
			s.logger.Error("failed to reset payment method status",
				zap.String("payment_method_id", failure.PaymentMethodID),
				zap.Error(err),
			)
		}
		return entity.PaymentMethodRecovery{
			Success:        true,
			RecoveryMethod: entity.RecoveryAutomaticUpdate,
		}
	}

	lastError := failure.FailureMessage
	if err := s.methodRepo.UpdateStatus(ctx, failure.PaymentMethodID, entity.MethodStatusExpired, &lastError); err != nil {
		s.logger.Error("failed to mark payment method expired",
			zap.String("payment_method_id", failure.PaymentMethodID),
			zap.Error(err),
		)
	}
	return customerAction(entity.ActionUpdateExpiredCard)
}

// recoverWithAlternative switches the customer to another active instrument
// when one exists. Switching the default is the only mutation on this path;
// exactly one method per customer stays default.
func (s *RecoveryService) recoverWithAlternative(ctx context.Context, failure *entity.PaymentMethodFailure) entity.PaymentMethodRecovery {
	methods, err := s.methodRepo.GetActiveByUserID(ctx, failure.UserID)
	if err != nil {
		return manualIntervention(fmt.Errorf("list active payment methods for user %s: %w", failure.UserID, err))
	}

	var alternative *entity.PaymentMethod
	for _, m := range methods {
		if m.GatewayMethodID == failure.PaymentMethodID {
			continue
		}
		if !m.IsActive(s.now()) {
			continue
		}
		alternative = m
		break
	}

	lastError := failure.FailureMessage
	if err := s.methodRepo.UpdateStatus(ctx, failure.PaymentMethodID, entity.MethodStatusFailed, &lastError); err != nil {
		s.logger.Error("failed to mark payment method failed",
			zap.String("payment_method_id", failure.PaymentMethodID),
			zap.Error(err),
		)
	}

	if alternative == nil {
		return customerAction(entity.ActionAddNewPaymentMethod)
	}

	if err := s.gateway.SetDefaultPaymentMethod(ctx, failure.CustomerID, alternative.GatewayMethodID); err != nil {
		return manualIntervention(fmt.Errorf("set default payment method for customer %s: %w", failure.CustomerID, err))
	}
	if err := s.methodRepo.SetDefault(ctx, failure.UserID, alternative.GatewayMethodID); err != nil {
		// The gateway already holds the new default; the local flag is
		// re-derived on the next webhook or scan.
		s.logger.Error("failed to persist default payment method flag",
			zap.String("payment_method_id", alternative.GatewayMethodID),
			zap.Error(err),
		)
	}

	return entity.PaymentMethodRecovery{
		Success:            true,
		RecoveryMethod:     entity.RecoveryAutomaticUpdate,
		NewPaymentMethodID: alternative.GatewayMethodID,
	}
}

// ValidatePaymentMethod re-fetches an instrument from the gateway, persists a
// refreshed expiry if the gateway reports one, and returns a point-in-time
// validation snapshot.
func (s *RecoveryService) ValidatePaymentMethod(ctx context.Context, gatewayMethodID string) (entity.PaymentMethodValidation, error) {
	method, err := s.methodRepo.GetByGatewayID(ctx, gatewayMethodID)
	if err != nil {
		return entity.PaymentMethodValidation{}, err
	}

	instrument, err := s.gateway.GetPaymentMethod(ctx, gatewayMethodID)
	if err == nil && (instrument.ExpMonth != method.ExpMonth || instrument.ExpYear != method.ExpYear) {
		if updateErr := s.methodRepo.UpdateExpiry(ctx, gatewayMethodID, instrument.ExpMonth, instrument.ExpYear); updateErr != nil {
			s.logger.Error("failed to persist refreshed expiry",
				zap.String("payment_method_id", gatewayMethodID),
				zap.Error(updateErr),
			)
		} else {
			method.ExpMonth = instrument.ExpMonth
			method.ExpYear = instrument.ExpYear
		}
	}
	if err != nil {
		s.logger.Warn("gateway fetch failed during validation, using stored state",
			zap.String("payment_method_id", gatewayMethodID),
			zap.Error(err),
		)
	}

	return method.Validate(s.now()), nil
}

func customerAction(nextAction string) entity.PaymentMethodRecovery {
	return entity.PaymentMethodRecovery{
		Success:        false,
		RecoveryMethod: entity.RecoveryCustomerActionRequired,
		NextAction:     nextAction,
	}
}

func manualIntervention(err error) entity.PaymentMethodRecovery {
	return entity.PaymentMethodRecovery{
		Success:        false,
		RecoveryMethod: entity.RecoveryManualIntervention,
		Err:            err,
	}
}
