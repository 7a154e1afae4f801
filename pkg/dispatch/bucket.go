package dispatch

import (
	"context"
	"time"

	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/prefs"
)

// DigestEntry is one queued notification awaiting a digest flush.
type DigestEntry struct {
	NotificationID string                  `json:"notification_id"`
	UserID         string                  `json:"user_id"`
	Event          event.NotificationEvent `json:"event"`
	Priority       event.Priority          `json:"priority"`
	QueuedAt       time.Time               `json:"queued_at"`
}

// BucketKey identifies one user's digest bucket for one cadence.
type BucketKey struct {
	UserID    string
	Frequency prefs.Frequency
}

// BucketStore holds queued digest entries between flushes. Drain must be
// atomic: two concurrent drains of the same bucket must never both return
// the same entry, which is what makes flushes idempotent under retried
// scheduler ticks.
type BucketStore interface {
	// Append queues an entry into the bucket.
	Append(ctx context.Context, key BucketKey, entry DigestEntry) error

	// Drain removes and returns every entry in the bucket in queue order.
	// An empty bucket yields an empty slice, not an error.
	Drain(ctx context.Context, key BucketKey) ([]DigestEntry, error)

	// Cancel removes a queued entry from any of the user's buckets before
	// it is flushed. Cancelling an unknown entry is a no-op.
	Cancel(ctx context.Context, userID, notificationID string) error

	// Keys lists the non-empty buckets for a cadence.
	Keys(ctx context.Context, frequency prefs.Frequency) ([]BucketKey, error)
}
