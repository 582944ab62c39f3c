package entity

// RecoveryMethod describes how a recovery attempt was (or must be) resolved
type RecoveryMethod string

const (
	RecoveryAutomaticUpdate        RecoveryMethod = "automatic_update"
	RecoveryCustomerActionRequired RecoveryMethod = "customer_action_required"
	RecoveryManualIntervention     RecoveryMethod = "manual_intervention"
)

// Next-action hints consumed by the notification dispatcher
const (
	ActionUpdateExpiredCard      = "update_expired_card"
	ActionAddNewPaymentMethod    = "add_new_payment_method"
	ActionCompleteAuthentication = "complete_authentication"
	ActionRetryLater             = "retry_later"
	ActionUpdatePaymentMethod    = "update_payment_method"
)

// PaymentMethodRecovery is the outcome of one recovery attempt. It is never
// persisted on its own: it is produced alongside a failure and consumed
// immediately by the reconciler and the dispatcher.
type PaymentMethodRecovery struct {
	Success            bool
	RecoveryMethod     RecoveryMethod
	NewPaymentMethodID string // set only when recovery substituted an instrument
	NextAction         string
	Err                error // populated on internal failure of the attempt itself
}

// RecoveredAutomatically reports whether the gateway resolved the failure
// without customer involvement
func (r PaymentMethodRecovery) RecoveredAutomatically() bool {
	return r.Success && r.RecoveryMethod == RecoveryAutomaticUpdate
}
