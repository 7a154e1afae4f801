package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/dispatch"
	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/ledger"
	"github.com/hirewire/notifykit/pkg/prefs"
)

// recordingAdapter counts sends per destination and always succeeds unless
// told otherwise.
type recordingAdapter struct {
	ch   channel.Channel
	fail bool

	mu    sync.Mutex
	sends []channel.Message
}

func (a *recordingAdapter) Channel() channel.Channel         { return a.ch }
func (a *recordingAdapter) Provider() string                 { return "test-" + string(a.ch) }
func (a *recordingAdapter) ValidateDestination(string) error { return nil }

func (a *recordingAdapter) Send(_ context.Context, _ string, msg channel.Message) channel.SendResult {
	a.mu.Lock()
	a.sends = append(a.sends, msg)
	a.mu.Unlock()

	if a.fail {
		return channel.Failed("provider unavailable")
	}
	return channel.Sent("pm-" + msg.NotificationID + "-" + string(a.ch))
}

func (a *recordingAdapter) sendCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sends)
}

type fixture struct {
	dispatcher *dispatch.Dispatcher
	ledger     *ledger.MemoryStorage
	prefStore  *prefs.MemoryStorage
	email      *recordingAdapter
	sms        *recordingAdapter
	clock      *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ledger:    ledger.NewMemoryStorage(),
		prefStore: prefs.NewMemoryStorage(),
		email:     &recordingAdapter{ch: channel.ChannelEmail},
		sms:       &recordingAdapter{ch: channel.ChannelSMS},
		clock:     &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)},
	}

	directory := dispatch.StaticDirectory{
		"user-1": {
			channel.ChannelEmail: "recruiter@example.com",
			channel.ChannelSMS:   "+15551234567",
		},
	}

	var err error
	f.dispatcher, err = dispatch.NewDispatcher(
		channel.NewRegistry(f.email, f.sms),
		f.ledger,
		prefs.NewResolver(f.prefStore),
		directory,
		dispatch.WithClock(f.clock.Now),
	)
	require.NoError(t, err)
	return f
}

func scoredEvent(id string, score float64) event.NotificationEvent {
	return event.NotificationEvent{
		ID:   id,
		Type: event.TypeMatchCreated,
		SubjectIDs: event.SubjectIDs{
			UserID:      "user-1",
			JobID:       "job-1",
			CandidateID: "cand-" + id,
		},
		Attributes:   map[string]any{"score": score},
		BasePriority: event.PriorityMedium,
		OccurredAt:   time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}
}

func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }

func TestDispatch_DeliversToAllEnabledChannels(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.dispatcher.Dispatch(ctx, scoredEvent("n1", 75), event.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, dispatch.DecisionDelivered, outcome.Decision)
	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, 1, f.email.sendCount())
	assert.Equal(t, 1, f.sms.sendCount())

	for _, attempt := range outcome.Attempts {
		assert.Equal(t, ledger.StatusSent, attempt.Status)
		assert.NotEmpty(t, attempt.ProviderMessageID)
	}
}

func TestDispatch_MissingUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	evt := scoredEvent("n1", 75)
	evt.SubjectIDs.UserID = ""

	_, err := f.dispatcher.Dispatch(context.Background(), evt, event.PriorityMedium)
	assert.ErrorIs(t, err, dispatch.ErrMissingUser)
}

func TestDispatch_AllChannelsDisabled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefStore.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		ChannelEmail: boolPtr(false),
		ChannelSMS:   boolPtr(false),
		ChannelPush:  boolPtr(false),
	}))

	outcome, err := f.dispatcher.Dispatch(ctx, scoredEvent("n1", 75), event.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, dispatch.DecisionSuppressed, outcome.Decision)
	assert.Zero(t, f.email.sendCount())
}

func TestDispatch_ScoreBelowMinimumSuppressed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefStore.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		MinMatchScore: f64Ptr(80),
	}))

	outcome, err := f.dispatcher.Dispatch(ctx, scoredEvent("n1", 75), event.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, dispatch.DecisionSuppressed, outcome.Decision)
	assert.Contains(t, outcome.Reason, "below minimum")
}

func TestDispatch_ExceptionalScoreBypassesDigest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefStore.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		DigestMode: boolPtr(true),
	}))

	// Score 92 clears the default exceptional threshold of 90: the event is
	// escalated to critical and delivered immediately despite digest mode.
	outcome, err := f.dispatcher.Dispatch(ctx, scoredEvent("n1", 92), event.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, dispatch.DecisionDelivered, outcome.Decision)
	assert.Equal(t, event.PriorityCritical, outcome.Priority)
	assert.Equal(t, 1, f.email.sendCount())
}

func TestDispatch_HighScoreEscalates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	// 85 clears the default high threshold of 80 but not exceptional.
	outcome, err := f.dispatcher.Dispatch(context.Background(), scoredEvent("n1", 85), event.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, dispatch.DecisionDelivered, outcome.Decision)
	assert.Equal(t, event.PriorityHigh, outcome.Priority)
}

func TestDispatch_DigestModeQueues(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefStore.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		DigestMode: boolPtr(true),
	}))

	outcome, err := f.dispatcher.Dispatch(ctx, scoredEvent("n1", 75), event.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, dispatch.DecisionDigest, outcome.Decision)
	assert.Zero(t, f.email.sendCount())
}

func TestDispatch_QuietHoursHolds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefStore.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		QuietHoursEnabled: boolPtr(true),
		QuietHoursStart:   func() *string { s := "22:00"; return &s }(),
		QuietHoursEnd:     func() *string { s := "08:00"; return &s }(),
	}))

	f.clock.Set(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC))

	outcome, err := f.dispatcher.Dispatch(ctx, scoredEvent("n1", 75), event.PriorityMedium)
	require.NoError(t, err)

	assert.Equal(t, dispatch.DecisionHeld, outcome.Decision)
	require.NotNil(t, outcome.ReleaseAt)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), *outcome.ReleaseAt)
	assert.Zero(t, f.email.sendCount())

	// Nothing releases before the window ends.
	released := f.dispatcher.ReleaseDue(ctx, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC))
	assert.Zero(t, released)
	assert.Zero(t, f.email.sendCount())

	released = f.dispatcher.ReleaseDue(ctx, time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, 1, released)
	assert.Equal(t, 1, f.email.sendCount())
}

func TestDispatch_NoveltyGateSuppressesSeenCandidate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefStore.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		NotifyOnlyNewCandidates: boolPtr(true),
	}))

	evt := scoredEvent("n1", 75)

	first, err := f.dispatcher.Dispatch(ctx, evt, event.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, dispatch.DecisionDelivered, first.Decision)

	repeat := scoredEvent("n2", 76)
	repeat.SubjectIDs.CandidateID = evt.SubjectIDs.CandidateID

	second, err := f.dispatcher.Dispatch(ctx, repeat, event.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, dispatch.DecisionSuppressed, second.Decision)
	assert.Contains(t, second.Reason, "already notified")
}

func TestDispatch_ImprovementGate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.prefStore.Upsert(ctx, "user-1", prefs.GlobalScope(), prefs.Preference{
		NotifyOnScoreImprovement: boolPtr(true),
		MinScoreImprovement:      f64Ptr(5),
	}))

	require.NoError(t, f.ledger.RecordSubjectScore(ctx, "user-1", "cand-n1", 70, time.Now()))

	// Delta of 1 is below the minimum improvement of 5.
	evt := scoredEvent("n1", 71)
	outcome, err := f.dispatcher.Dispatch(ctx, evt, event.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, dispatch.DecisionSuppressed, outcome.Decision)
	assert.Contains(t, outcome.Reason, "improvement")

	// Delta of 7 clears it.
	better := scoredEvent("n2", 77)
	better.SubjectIDs.CandidateID = "cand-n1"
	outcome, err = f.dispatcher.Dispatch(ctx, better, event.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, dispatch.DecisionDelivered, outcome.Decision)
}

func TestDispatch_ResendGuard(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	evt := scoredEvent("n1", 75)

	first, err := f.dispatcher.Dispatch(ctx, evt, event.PriorityMedium)
	require.NoError(t, err)
	require.Len(t, first.Attempts, 2)

	// Same notification again: the ledger already holds sent attempts for
	// both channels, so no new sends happen.
	second, err := f.dispatcher.Dispatch(ctx, evt, event.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, dispatch.DecisionDelivered, second.Decision)
	assert.Empty(t, second.Attempts)
	assert.Equal(t, 1, f.email.sendCount())
	assert.Equal(t, 1, f.sms.sendCount())
}

func TestDispatch_FailureRecordedNotReturned(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.email.fail = true
	ctx := context.Background()

	outcome, err := f.dispatcher.Dispatch(ctx, scoredEvent("n1", 75), event.PriorityMedium)
	require.NoError(t, err, "adapter failures surface in the ledger, not as errors")
	require.Len(t, outcome.Attempts, 2)

	byChannel := make(map[string]ledger.Attempt, 2)
	for _, a := range outcome.Attempts {
		byChannel[a.Channel] = a
	}
	assert.Equal(t, ledger.StatusFailed, byChannel["email"].Status)
	assert.Equal(t, "provider unavailable", byChannel["email"].FailureReason)
	assert.Equal(t, ledger.StatusSent, byChannel["sms"].Status)
}
