package ledger

import "errors"

var (
	// ErrAttemptNotFound is returned when no attempt matches a lookup.
	ErrAttemptNotFound = errors.New("delivery attempt not found")

	// ErrDuplicateAttempt is returned when recording an attempt while a
	// non-terminal one already exists for the same notification and channel.
	ErrDuplicateAttempt = errors.New("non-terminal delivery attempt already exists")

	// ErrAttemptFinal is returned when a status update targets an attempt
	// already in a terminal state.
	ErrAttemptFinal = errors.New("delivery attempt is already in a terminal state")
)
