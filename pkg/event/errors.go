package event

import "errors"

var (
	// ErrInvalidEvent is returned when a raw event is missing required data.
	ErrInvalidEvent = errors.New("invalid notification event")

	// ErrUnknownEventType is returned when the raw event type is not part of
	// the canonical type set.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrUnknownPriority is returned when parsing a priority string that is
	// not one of low, medium, high or critical.
	ErrUnknownPriority = errors.New("unknown priority")
)
