package notify

import "errors"

var (
	// ErrRulesNil is returned when an engine is constructed without a rule
	// service.
	ErrRulesNil = errors.New("rule service cannot be nil")

	// ErrPrefsNil is returned when an engine is constructed without a
	// preference service.
	ErrPrefsNil = errors.New("preference service cannot be nil")

	// ErrDispatcherNil is returned when an engine is constructed without a
	// dispatcher.
	ErrDispatcherNil = errors.New("dispatcher cannot be nil")

	// ErrLedgerNil is returned when an engine is constructed without ledger
	// storage.
	ErrLedgerNil = errors.New("ledger storage cannot be nil")

	// ErrInvalidWebhook is returned when a provider status webhook fails
	// validation.
	ErrInvalidWebhook = errors.New("invalid delivery status webhook")
)
