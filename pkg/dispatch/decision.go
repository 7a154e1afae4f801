package dispatch

import (
	"time"

	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/ledger"
)

// Decision is the routing outcome for one event.
type Decision string

const (
	DecisionSuppressed Decision = "suppressed"
	DecisionDelivered  Decision = "delivered-now"
	DecisionHeld       Decision = "held-for-quiet-hours"
	DecisionDigest     Decision = "queued-for-digest"
)

// Outcome describes what the dispatcher did with an event.
type Outcome struct {
	Decision Decision       `json:"decision"`
	Reason   string         `json:"reason,omitempty"`
	Priority event.Priority `json:"priority"`

	// ReleaseAt is set for held events: when the quiet-hours window ends.
	ReleaseAt *time.Time `json:"release_at,omitempty"`

	// Attempts lists the ledger entries written for delivered events.
	Attempts []ledger.Attempt `json:"attempts,omitempty"`
}

func suppressed(reason string, priority event.Priority) Outcome {
	return Outcome{Decision: DecisionSuppressed, Reason: reason, Priority: priority}
}
