package dispatch

import "errors"

var (
	// ErrMissingUser is returned when an event carries no user to notify.
	ErrMissingUser = errors.New("event has no target user")

	// ErrRegistryNil is returned when a dispatcher is constructed without a
	// channel registry.
	ErrRegistryNil = errors.New("channel registry cannot be nil")

	// ErrLedgerNil is returned when a dispatcher is constructed without
	// ledger storage.
	ErrLedgerNil = errors.New("ledger storage cannot be nil")

	// ErrNoDestination is returned by a directory when a user has no
	// destination for a channel.
	ErrNoDestination = errors.New("no destination registered for channel")

	// ErrSchedulerNotConfigured is returned when the scheduler is started
	// without a dispatcher.
	ErrSchedulerNotConfigured = errors.New("scheduler has no dispatcher")
)
