package prefs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStorage is a Postgres implementation of the Storage interface backed by
// a pgx connection pool. Rows are keyed (user_id, scope_type, scope_id)
// with an empty scope_id for global rows.
type PGStorage struct {
	pool *pgxpool.Pool
}

// NewPGStorage creates a Postgres-backed preference storage.
func NewPGStorage(pool *pgxpool.Pool) *PGStorage {
	return &PGStorage{pool: pool}
}

func (s *PGStorage) Get(ctx context.Context, userID string, scope Scope) (*Preference, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT channel_email, channel_sms, channel_push,
			min_match_score, high_score_threshold, exceptional_score_threshold,
			instant_notifications, digest_mode, digest_frequency,
			notify_only_new_candidates, notify_on_score_improvement, min_score_improvement,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end, timezone,
			created_at, updated_at
		FROM preferences
		WHERE user_id = $1 AND scope_type = $2 AND scope_id = $3`,
		userID, scope.Type, scope.JobID)

	var (
		pref Preference
		freq *string
	)
	err := row.Scan(
		&pref.ChannelEmail, &pref.ChannelSMS, &pref.ChannelPush,
		&pref.MinMatchScore, &pref.HighScoreThreshold, &pref.ExceptionalScoreThreshold,
		&pref.InstantNotifications, &pref.DigestMode, &freq,
		&pref.NotifyOnlyNewCandidates, &pref.NotifyOnScoreImprovement, &pref.MinScoreImprovement,
		&pref.QuietHoursEnabled, &pref.QuietHoursStart, &pref.QuietHoursEnd, &pref.Timezone,
		&pref.CreatedAt, &pref.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreferenceNotFound
		}
		return nil, err
	}

	if freq != nil {
		f := Frequency(*freq)
		pref.DigestFrequency = &f
	}
	return &pref, nil
}

func (s *PGStorage) Upsert(ctx context.Context, userID string, scope Scope, pref Preference) error {
	var freq *string
	if pref.DigestFrequency != nil {
		f := string(*pref.DigestFrequency)
		freq = &f
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO preferences (user_id, scope_type, scope_id,
			channel_email, channel_sms, channel_push,
			min_match_score, high_score_threshold, exceptional_score_threshold,
			instant_notifications, digest_mode, digest_frequency,
			notify_only_new_candidates, notify_on_score_improvement, min_score_improvement,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end, timezone,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (user_id, scope_type, scope_id) DO UPDATE SET
			channel_email = EXCLUDED.channel_email,
			channel_sms = EXCLUDED.channel_sms,
			channel_push = EXCLUDED.channel_push,
			min_match_score = EXCLUDED.min_match_score,
			high_score_threshold = EXCLUDED.high_score_threshold,
			exceptional_score_threshold = EXCLUDED.exceptional_score_threshold,
			instant_notifications = EXCLUDED.instant_notifications,
			digest_mode = EXCLUDED.digest_mode,
			digest_frequency = EXCLUDED.digest_frequency,
			notify_only_new_candidates = EXCLUDED.notify_only_new_candidates,
			notify_on_score_improvement = EXCLUDED.notify_on_score_improvement,
			min_score_improvement = EXCLUDED.min_score_improvement,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at`,
		userID, scope.Type, scope.JobID,
		pref.ChannelEmail, pref.ChannelSMS, pref.ChannelPush,
		pref.MinMatchScore, pref.HighScoreThreshold, pref.ExceptionalScoreThreshold,
		pref.InstantNotifications, pref.DigestMode, freq,
		pref.NotifyOnlyNewCandidates, pref.NotifyOnScoreImprovement, pref.MinScoreImprovement,
		pref.QuietHoursEnabled, pref.QuietHoursStart, pref.QuietHoursEnd, pref.Timezone,
		pref.CreatedAt, pref.UpdatedAt,
	)
	return err
}
