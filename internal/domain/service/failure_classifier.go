package service

import (
	"strings"

	"github.com/bivex/billing-recon/internal/domain/entity"
)

// failureTypeTable maps raw gateway failure type strings to the internal
// taxonomy. Anything not listed classifies as processing_error.
var failureTypeTable = map[string]entity.FailureType{
	// expired instrument
	"expired_card": entity.FailureExpired,

	// hard declines
	"card_declined":   entity.FailureDeclined,
	"generic_decline": entity.FailureDeclined,
	"do_not_honor":    entity.FailureDeclined,
	"fraudulent":      entity.FailureDeclined,
	"lost_card":       entity.FailureDeclined,
	"stolen_card":     entity.FailureDeclined,
	"pickup_card":     entity.FailureDeclined,

	// bad instrument data
	"incorrect_cvc":          entity.FailureInvalid,
	"invalid_cvc":            entity.FailureInvalid,
	"incorrect_number":       entity.FailureInvalid,
	"invalid_number":         entity.FailureInvalid,
	"invalid_expiry_month":   entity.FailureInvalid,
	"invalid_expiry_year":    entity.FailureInvalid,
	"card_not_supported":     entity.FailureInvalid,
	"currency_not_supported": entity.FailureInvalid,

	// customer must complete SCA
	"authentication_required":      entity.FailureAuthenticationRequired,
	"card_authentication_required": entity.FailureAuthenticationRequired,

	// transient processor outcomes, retryable
	"insufficient_funds": entity.FailureProcessingError,
	"try_again_later":    entity.FailureProcessingError,
	"processing_error":   entity.FailureProcessingError,
	"issuer_unavailable": entity.FailureProcessingError,
	"approve_with_id":    entity.FailureProcessingError,
}

// nonRetryableTypes is the deny list over classified types: no automatic
// retry can change the outcome for these.
var nonRetryableTypes = map[entity.FailureType]struct{}{
	entity.FailureExpired:  {},
	entity.FailureDeclined: {},
	entity.FailureInvalid:  {},
}

// nonRetryableCodes is the deny list over raw gateway codes. Everything not
// listed here or in nonRetryableTypes stays retryable: treating a permanent
// failure as retryable is cheaper than giving up on a transient one.
var nonRetryableCodes = map[string]struct{}{
	"expired_card":           {},
	"incorrect_cvc":          {},
	"invalid_cvc":            {},
	"incorrect_number":       {},
	"invalid_number":         {},
	"invalid_expiry_month":   {},
	"invalid_expiry_year":    {},
	"card_not_supported":     {},
	"currency_not_supported": {},
	"fraudulent":             {},
	"lost_card":              {},
	"stolen_card":            {},
}

// ClassifyFailure maps a raw gateway failure type and optional failure code
// into the internal taxonomy and the retryable flag. It is pure and total:
// unknown input classifies as processing_error, never an error.
func ClassifyFailure(rawType, code string) (entity.FailureType, bool) {
	failureType := classifyType(rawType)
	return failureType, isRetryable(failureType, code)
}

func classifyType(rawType string) entity.FailureType {
	normalized := strings.ToLower(strings.TrimSpace(rawType))
	if ft, ok := failureTypeTable[normalized]; ok {
		return ft
	}
	return entity.FailureProcessingError
}

func isRetryable(failureType entity.FailureType, code string) bool {
	if _, denied := nonRetryableTypes[failureType]; denied {
		return false
	}
	normalized := strings.ToLower(strings.TrimSpace(code))
	if _, denied := nonRetryableCodes[normalized]; denied {
		return false
	}
	return true
}
