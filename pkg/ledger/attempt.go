package ledger

import (
	"time"
)

// Status is the lifecycle state of a delivery attempt.
type Status string

const (
	StatusPending     Status = "pending"
	StatusSent        Status = "sent"
	StatusDelivered   Status = "delivered"
	StatusFailed      Status = "failed"
	StatusUndelivered Status = "undelivered"
)

// Terminal reports whether the status is final. Terminal attempts are
// immutable except for timestamp bookkeeping.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusFailed, StatusUndelivered:
		return true
	}
	return false
}

// Valid checks if the status is part of the defined set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusDelivered, StatusFailed, StatusUndelivered:
		return true
	}
	return false
}

// Attempt is one ledger entry: a single try to deliver one notification
// through one channel.
type Attempt struct {
	ID                string     `json:"id"`
	NotificationID    string     `json:"notification_id"`
	UserID            string     `json:"user_id"`
	Channel           string     `json:"channel"`
	Provider          string     `json:"provider"`
	Destination       string     `json:"destination"`
	Status            Status     `json:"status"`
	ProviderMessageID string     `json:"provider_message_id,omitempty"`
	Cost              float64    `json:"cost,omitempty"`
	Segments          int        `json:"segments,omitempty"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
}

// Stats aggregates a user's delivery usage for billing and dashboards.
type Stats struct {
	Attempts      int     `json:"attempts"`
	Delivered     int     `json:"delivered"`
	Failed        int     `json:"failed"`
	TotalCost     float64 `json:"total_cost"`
	TotalSegments int     `json:"total_segments"`
}
