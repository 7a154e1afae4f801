package ledger

import (
	"context"
	"time"
)

// Storage handles ledger persistence. Entries are appended and then only
// move forward through their status lifecycle; nothing is deleted.
type Storage interface {
	// Record appends a new attempt. Returns ErrDuplicateAttempt when a
	// non-terminal attempt already exists for the same notification and
	// channel, preserving the idempotency invariant.
	Record(ctx context.Context, attempt Attempt) error

	// Update replaces the mutable fields of an attempt identified by ID:
	// status, provider message ID, cost, segments and failure reason.
	// Returns ErrAttemptFinal when the stored attempt is terminal.
	Update(ctx context.Context, attempt Attempt) error

	// UpdateByProviderMessageID moves the matching attempt to the given
	// status based on a provider webhook. Only non-terminal attempts are
	// updated; a delivered status also sets DeliveredAt.
	UpdateByProviderMessageID(ctx context.Context, providerMessageID string, status Status, reason string) (*Attempt, error)

	// ActiveOrSucceeded reports whether a non-terminal or delivered attempt
	// exists for the notification and channel. Used as the resend guard.
	ActiveOrSucceeded(ctx context.Context, notificationID, channel string) (bool, error)

	// ListByNotification returns all attempts for one notification, oldest
	// first, for audit surfaces.
	ListByNotification(ctx context.Context, notificationID string) ([]Attempt, error)

	// UsageStats aggregates a user's attempts.
	UsageStats(ctx context.Context, userID string) (Stats, error)

	// LastSubjectScore returns the most recent score recorded for a
	// (user, subject) pair, with its timestamp.
	LastSubjectScore(ctx context.Context, userID, subjectID string) (float64, time.Time, bool, error)

	// RecordSubjectScore stores the latest score seen for a subject.
	RecordSubjectScore(ctx context.Context, userID, subjectID string, score float64, at time.Time) error
}
