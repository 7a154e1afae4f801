package prefs

import (
	"strconv"
	"strings"
	"time"
)

// Effective is a fully-populated preference view produced by the resolver.
// Unlike Preference, every field carries a concrete value.
type Effective struct {
	ChannelEmail bool `json:"channel_email"`
	ChannelSMS   bool `json:"channel_sms"`
	ChannelPush  bool `json:"channel_push"`

	MinMatchScore             float64 `json:"min_match_score"`
	HighScoreThreshold        float64 `json:"high_score_threshold"`
	ExceptionalScoreThreshold float64 `json:"exceptional_score_threshold"`

	InstantNotifications bool      `json:"instant_notifications"`
	DigestMode           bool      `json:"digest_mode"`
	DigestFrequency      Frequency `json:"digest_frequency"`

	NotifyOnlyNewCandidates  bool    `json:"notify_only_new_candidates"`
	NotifyOnScoreImprovement bool    `json:"notify_on_score_improvement"`
	MinScoreImprovement      float64 `json:"min_score_improvement"`

	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start"`
	QuietHoursEnd     string `json:"quiet_hours_end"`
	Timezone          string `json:"timezone"`
}

// Defaults returns the safe fallback used when no preference rows exist or
// storage is unreachable: instant delivery, all channels on, no quiet
// hours, no score gating.
func Defaults() Effective {
	return Effective{
		ChannelEmail:              true,
		ChannelSMS:                true,
		ChannelPush:               true,
		MinMatchScore:             0,
		HighScoreThreshold:        80,
		ExceptionalScoreThreshold: 90,
		InstantNotifications:      true,
		DigestMode:                false,
		DigestFrequency:           FrequencyDaily,
		NotifyOnlyNewCandidates:   false,
		NotifyOnScoreImprovement:  false,
		MinScoreImprovement:       0,
		QuietHoursEnabled:         false,
		QuietHoursStart:           "22:00",
		QuietHoursEnd:             "08:00",
		Timezone:                  "UTC",
	}
}

// apply overlays the set fields of a preference row onto the effective view.
func (e Effective) apply(p Preference) Effective {
	if p.ChannelEmail != nil {
		e.ChannelEmail = *p.ChannelEmail
	}
	if p.ChannelSMS != nil {
		e.ChannelSMS = *p.ChannelSMS
	}
	if p.ChannelPush != nil {
		e.ChannelPush = *p.ChannelPush
	}
	if p.MinMatchScore != nil {
		e.MinMatchScore = *p.MinMatchScore
	}
	if p.HighScoreThreshold != nil {
		e.HighScoreThreshold = *p.HighScoreThreshold
	}
	if p.ExceptionalScoreThreshold != nil {
		e.ExceptionalScoreThreshold = *p.ExceptionalScoreThreshold
	}
	if p.InstantNotifications != nil {
		e.InstantNotifications = *p.InstantNotifications
	}
	if p.DigestMode != nil {
		e.DigestMode = *p.DigestMode
	}
	if p.DigestFrequency != nil {
		e.DigestFrequency = *p.DigestFrequency
	}
	if p.NotifyOnlyNewCandidates != nil {
		e.NotifyOnlyNewCandidates = *p.NotifyOnlyNewCandidates
	}
	if p.NotifyOnScoreImprovement != nil {
		e.NotifyOnScoreImprovement = *p.NotifyOnScoreImprovement
	}
	if p.MinScoreImprovement != nil {
		e.MinScoreImprovement = *p.MinScoreImprovement
	}
	if p.QuietHoursEnabled != nil {
		e.QuietHoursEnabled = *p.QuietHoursEnabled
	}
	if p.QuietHoursStart != nil {
		e.QuietHoursStart = *p.QuietHoursStart
	}
	if p.QuietHoursEnd != nil {
		e.QuietHoursEnd = *p.QuietHoursEnd
	}
	if p.Timezone != nil {
		e.Timezone = *p.Timezone
	}
	return e
}

// Location resolves the preference timezone, falling back to UTC for
// unknown names so quiet-hours checks never fail outright.
func (e Effective) Location() *time.Location {
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// InQuietHours reports whether the given instant falls inside the user's
// quiet-hours window [start, end), evaluated in the preference timezone.
// Windows wrapping past midnight (e.g. 22:00-08:00) are supported.
func (e Effective) InQuietHours(now time.Time) bool {
	if !e.QuietHoursEnabled {
		return false
	}

	local := now.In(e.Location())
	minute := local.Hour()*60 + local.Minute()
	start := clockMinutes(e.QuietHoursStart)
	end := clockMinutes(e.QuietHoursEnd)

	if start == end {
		return false
	}
	if start < end {
		return minute >= start && minute < end
	}
	// Wrap-around window: active from start until midnight and from
	// midnight until end.
	return minute >= start || minute < end
}

// QuietHoursRelease returns the instant the current quiet-hours window
// ends. Callers must only invoke it when InQuietHours(now) is true.
func (e Effective) QuietHoursRelease(now time.Time) time.Time {
	local := now.In(e.Location())
	end := clockMinutes(e.QuietHoursEnd)

	release := time.Date(local.Year(), local.Month(), local.Day(),
		end/60, end%60, 0, 0, local.Location())
	if !release.After(local) {
		release = release.AddDate(0, 0, 1)
	}
	return release
}

// clockMinutes parses "HH:MM" into minutes past midnight. Malformed values
// yield 0, which validation upstream should have prevented.
func clockMinutes(clock string) int {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return h*60 + m
}
