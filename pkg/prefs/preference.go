package prefs

import (
	"fmt"
	"regexp"
	"time"
)

// Frequency is how often a digest is flushed.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// Valid checks if the frequency is a supported digest interval.
func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// Preference is one stored preference row. Every field is a pointer: nil
// means "not set here", so a job-scoped row only overrides what it
// explicitly carries and the rest is inherited from the global row.
type Preference struct {
	ChannelEmail *bool `json:"channel_email,omitempty"`
	ChannelSMS   *bool `json:"channel_sms,omitempty"`
	ChannelPush  *bool `json:"channel_push,omitempty"`

	MinMatchScore             *float64 `json:"min_match_score,omitempty"`
	HighScoreThreshold        *float64 `json:"high_score_threshold,omitempty"`
	ExceptionalScoreThreshold *float64 `json:"exceptional_score_threshold,omitempty"`

	InstantNotifications *bool      `json:"instant_notifications,omitempty"`
	DigestMode           *bool      `json:"digest_mode,omitempty"`
	DigestFrequency      *Frequency `json:"digest_frequency,omitempty"`

	NotifyOnlyNewCandidates  *bool    `json:"notify_only_new_candidates,omitempty"`
	NotifyOnScoreImprovement *bool    `json:"notify_on_score_improvement,omitempty"`
	MinScoreImprovement      *float64 `json:"min_score_improvement,omitempty"`

	QuietHoursEnabled *bool   `json:"quiet_hours_enabled,omitempty"`
	QuietHoursStart   *string `json:"quiet_hours_start,omitempty"`
	QuietHoursEnd     *string `json:"quiet_hours_end,omitempty"`
	Timezone          *string `json:"timezone,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

var clockRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validate checks the fields a caller can get wrong in an upsert patch.
func (p Preference) Validate() error {
	if p.DigestFrequency != nil && !p.DigestFrequency.Valid() {
		return fmt.Errorf("%w: digest frequency must be daily or weekly", ErrInvalidPreference)
	}
	for name, v := range map[string]*string{
		"quiet_hours_start": p.QuietHoursStart,
		"quiet_hours_end":   p.QuietHoursEnd,
	} {
		if v != nil && !clockRegex.MatchString(*v) {
			return fmt.Errorf("%w: %s must be in HH:MM format", ErrInvalidPreference, name)
		}
	}
	if p.Timezone != nil {
		if _, err := time.LoadLocation(*p.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidPreference, *p.Timezone)
		}
	}
	if p.MinMatchScore != nil && (*p.MinMatchScore < 0 || *p.MinMatchScore > 100) {
		return fmt.Errorf("%w: min match score must be between 0 and 100", ErrInvalidPreference)
	}
	return nil
}

// merge overlays the set fields of override onto base and returns the
// result. Neither argument is mutated.
func merge(base, override Preference) Preference {
	out := base
	if override.ChannelEmail != nil {
		out.ChannelEmail = override.ChannelEmail
	}
	if override.ChannelSMS != nil {
		out.ChannelSMS = override.ChannelSMS
	}
	if override.ChannelPush != nil {
		out.ChannelPush = override.ChannelPush
	}
	if override.MinMatchScore != nil {
		out.MinMatchScore = override.MinMatchScore
	}
	if override.HighScoreThreshold != nil {
		out.HighScoreThreshold = override.HighScoreThreshold
	}
	if override.ExceptionalScoreThreshold != nil {
		out.ExceptionalScoreThreshold = override.ExceptionalScoreThreshold
	}
	if override.InstantNotifications != nil {
		out.InstantNotifications = override.InstantNotifications
	}
	if override.DigestMode != nil {
		out.DigestMode = override.DigestMode
	}
	if override.DigestFrequency != nil {
		out.DigestFrequency = override.DigestFrequency
	}
	if override.NotifyOnlyNewCandidates != nil {
		out.NotifyOnlyNewCandidates = override.NotifyOnlyNewCandidates
	}
	if override.NotifyOnScoreImprovement != nil {
		out.NotifyOnScoreImprovement = override.NotifyOnScoreImprovement
	}
	if override.MinScoreImprovement != nil {
		out.MinScoreImprovement = override.MinScoreImprovement
	}
	if override.QuietHoursEnabled != nil {
		out.QuietHoursEnabled = override.QuietHoursEnabled
	}
	if override.QuietHoursStart != nil {
		out.QuietHoursStart = override.QuietHoursStart
	}
	if override.QuietHoursEnd != nil {
		out.QuietHoursEnd = override.QuietHoursEnd
	}
	if override.Timezone != nil {
		out.Timezone = override.Timezone
	}
	return out
}
