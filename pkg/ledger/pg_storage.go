package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage is a Postgres implementation of the Storage interface. The
// delivery_ledger table is append/update only; the partial unique index on
// non-terminal (notification_id, channel) pairs enforces the idempotency
// invariant at the database level.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres-backed ledger storage.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Record(ctx context.Context, attempt Attempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_ledger
			WHERE notification_id = $1 AND channel = $2
			  AND status IN ('pending', 'sent')
		)`, attempt.NotificationID, attempt.Channel).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateAttempt
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO delivery_ledger (id, notification_id, user_id, channel, provider,
			destination, status, provider_message_id, cost, segments, failure_reason,
			created_at, delivered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		attempt.ID, attempt.NotificationID, attempt.UserID, attempt.Channel, attempt.Provider,
		attempt.Destination, attempt.Status, nullableStr(attempt.ProviderMessageID),
		attempt.Cost, attempt.Segments, nullableStr(attempt.FailureReason),
		attempt.CreatedAt, attempt.DeliveredAt,
	)
	return err
}

func (s *PGStorage) Update(ctx context.Context, attempt Attempt) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE delivery_ledger SET
			status = $2,
			provider_message_id = $3,
			cost = $4,
			segments = $5,
			failure_reason = $6,
			delivered_at = COALESCE($7, delivered_at)
		WHERE id = $1 AND status IN ('pending', 'sent')`,
		attempt.ID, attempt.Status, nullableStr(attempt.ProviderMessageID),
		attempt.Cost, attempt.Segments, nullableStr(attempt.FailureReason),
		attempt.DeliveredAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing row from a terminal one.
		var status Status
		err := s.pool.QueryRow(ctx, `SELECT status FROM delivery_ledger WHERE id = $1`, attempt.ID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAttemptNotFound
		}
		if err != nil {
			return err
		}
		return ErrAttemptFinal
	}
	return nil
}

func (s *PGStorage) UpdateByProviderMessageID(ctx context.Context, providerMessageID string, status Status, reason string) (*Attempt, error) {
	if providerMessageID == "" {
		return nil, ErrAttemptNotFound
	}

	var deliveredAt *time.Time
	if status == StatusDelivered {
		now := time.Now()
		deliveredAt = &now
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE delivery_ledger SET
			status = $2,
			failure_reason = COALESCE(NULLIF($3, ''), failure_reason),
			delivered_at = COALESCE(delivered_at, $4)
		WHERE provider_message_id = $1 AND status IN ('pending', 'sent')
		RETURNING id, notification_id, user_id, channel, provider, destination,
			status, COALESCE(provider_message_id, ''), cost, segments,
			COALESCE(failure_reason, ''), created_at, delivered_at`,
		providerMessageID, status, reason, deliveredAt)

	attempt, err := scanAttempt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either unknown or already terminal.
			var exists bool
			if qerr := s.pool.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM delivery_ledger WHERE provider_message_id = $1)`,
				providerMessageID).Scan(&exists); qerr == nil && exists {
				return nil, ErrAttemptFinal
			}
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return attempt, nil
}

func (s *PGStorage) ActiveOrSucceeded(ctx context.Context, notificationID, channel string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM delivery_ledger
			WHERE notification_id = $1 AND channel = $2
			  AND status IN ('pending', 'sent', 'delivered')
		)`, notificationID, channel).Scan(&exists)
	return exists, err
}

func (s *PGStorage) ListByNotification(ctx context.Context, notificationID string) ([]Attempt, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, notification_id, user_id, channel, provider, destination,
			status, COALESCE(provider_message_id, ''), cost, segments,
			COALESCE(failure_reason, ''), created_at, delivered_at
		FROM delivery_ledger
		WHERE notification_id = $1
		ORDER BY created_at`, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *attempt)
	}
	return out, rows.Err()
}

func (s *PGStorage) UsageStats(ctx context.Context, userID string) (Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status IN ('failed', 'undelivered')),
			COALESCE(SUM(cost), 0),
			COALESCE(SUM(segments), 0)
		FROM delivery_ledger
		WHERE user_id = $1`, userID).Scan(
		&stats.Attempts, &stats.Delivered, &stats.Failed,
		&stats.TotalCost, &stats.TotalSegments,
	)
	return stats, err
}

func (s *PGStorage) LastSubjectScore(ctx context.Context, userID, subjectID string) (float64, time.Time, bool, error) {
	var (
		score float64
		at    time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT score, recorded_at FROM subject_scores
		WHERE user_id = $1 AND subject_id = $2`, userID, subjectID).Scan(&score, &at)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, err
	}
	return score, at, true, nil
}

func (s *PGStorage) RecordSubjectScore(ctx context.Context, userID, subjectID string, score float64, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subject_scores (user_id, subject_id, score, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, subject_id) DO UPDATE SET
			score = EXCLUDED.score,
			recorded_at = EXCLUDED.recorded_at`,
		userID, subjectID, score, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*Attempt, error) {
	var a Attempt
	if err := row.Scan(
		&a.ID, &a.NotificationID, &a.UserID, &a.Channel, &a.Provider, &a.Destination,
		&a.Status, &a.ProviderMessageID, &a.Cost, &a.Segments,
		&a.FailureReason, &a.CreatedAt, &a.DeliveredAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func nullableStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
