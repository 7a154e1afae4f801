package channel

import "errors"

var (
	// ErrInvalidDestination is returned when a destination fails the
	// channel's format validation before any send is attempted.
	ErrInvalidDestination = errors.New("invalid destination for channel")

	// ErrUnknownChannel is returned when no adapter is registered for a
	// channel.
	ErrUnknownChannel = errors.New("no adapter registered for channel")
)
