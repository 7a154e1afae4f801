package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/ledger"
	"github.com/hirewire/notifykit/pkg/logger"
	"github.com/hirewire/notifykit/pkg/prefs"
)

// DestinationDirectory resolves where a user receives a channel's messages.
// Implementations typically wrap the account service or a contact table.
type DestinationDirectory interface {
	// Destination returns the user's address for a channel: an email
	// address, an E.164 phone number or a device token. Returns
	// ErrNoDestination when the user has none.
	Destination(ctx context.Context, userID string, ch channel.Channel) (string, error)
}

// StaticDirectory is a fixed in-memory directory, useful for tests and
// single-tenant setups.
type StaticDirectory map[string]map[channel.Channel]string

// Destination implements DestinationDirectory.
func (d StaticDirectory) Destination(_ context.Context, userID string, ch channel.Channel) (string, error) {
	dest, ok := d[userID][ch]
	if !ok || dest == "" {
		return "", fmt.Errorf("%w: user %s, channel %s", ErrNoDestination, userID, ch)
	}
	return dest, nil
}

// Dispatcher routes evaluated events through the preference gates and
// performs channel fan-out for everything that survives them.
type Dispatcher struct {
	registry  *channel.Registry
	ledger    ledger.Storage
	resolver  *prefs.Resolver
	directory DestinationDirectory
	buckets   BucketStore
	holds     *holdQueue
	logger    *slog.Logger
	clock     func() time.Time

	// destMu serializes sends per destination; flushMu serializes digest
	// flushes per user.
	destMu  *keyedMutex
	flushMu *keyedMutex
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithBucketStore overrides the digest bucket store. The default is an
// in-memory store; production deployments pass the Redis-backed one.
func WithBucketStore(store BucketStore) DispatcherOption {
	return func(d *Dispatcher) {
		if store != nil {
			d.buckets = store
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(clock func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// NewDispatcher creates a dispatcher. Registry, ledger storage, resolver and
// directory are required.
func NewDispatcher(
	registry *channel.Registry,
	ledgerStorage ledger.Storage,
	resolver *prefs.Resolver,
	directory DestinationDirectory,
	opts ...DispatcherOption,
) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrRegistryNil
	}
	if ledgerStorage == nil {
		return nil, ErrLedgerNil
	}
	if resolver == nil {
		return nil, fmt.Errorf("preference resolver cannot be nil")
	}
	if directory == nil {
		return nil, fmt.Errorf("destination directory cannot be nil")
	}

	d := &Dispatcher{
		registry:  registry,
		ledger:    ledgerStorage,
		resolver:  resolver,
		directory: directory,
		buckets:   NewMemoryBucketStore(),
		holds:     newHoldQueue(),
		logger:    slog.Default(),
		clock:     time.Now,
		destMu:    newKeyedMutex(),
		flushMu:   newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch routes one evaluated event. The priority argument is the final
// priority produced by rule evaluation; the dispatcher may still escalate it
// for exceptional scores. The returned outcome says what happened; the error
// covers only infrastructure failures that prevented a decision.
func (d *Dispatcher) Dispatch(ctx context.Context, evt event.NotificationEvent, priority event.Priority) (Outcome, error) {
	userID := evt.SubjectIDs.UserID
	if userID == "" {
		return Outcome{}, ErrMissingUser
	}

	scope := prefs.GlobalScope()
	if evt.SubjectIDs.JobID != "" {
		scope = prefs.JobScope(evt.SubjectIDs.JobID)
	}
	eff := d.resolver.Resolve(ctx, userID, scope)

	if len(d.enabledChannels(eff)) == 0 {
		return suppressed("all delivery channels disabled", priority), nil
	}

	score, hasScore := evt.Score()

	// Score threshold gate, with escalation for standout candidates.
	bypassDigest := false
	if hasScore {
		if score < eff.MinMatchScore {
			return suppressed(fmt.Sprintf("score %.1f below minimum %.1f", score, eff.MinMatchScore), priority), nil
		}
		if score >= eff.ExceptionalScoreThreshold {
			if priority < event.PriorityCritical {
				priority = event.PriorityCritical
			}
			bypassDigest = true
		} else if score >= eff.HighScoreThreshold && priority < event.PriorityHigh {
			priority = event.PriorityHigh
		}
	}

	// Novelty and improvement gates apply only to candidate-bearing events.
	if out, suppress := d.subjectGates(ctx, evt, eff, priority, score, hasScore); suppress {
		return out, nil
	}

	if hasScore && evt.SubjectIDs.CandidateID != "" {
		if err := d.ledger.RecordSubjectScore(ctx, userID, evt.SubjectIDs.CandidateID, score, evt.OccurredAt); err != nil {
			d.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to record subject score",
				logger.UserID(userID),
				logger.NotificationID(evt.ID),
				logger.Error(err),
			)
		}
	}

	instant := eff.InstantNotifications && !eff.DigestMode
	if !instant && !bypassDigest {
		key := BucketKey{UserID: userID, Frequency: eff.DigestFrequency}
		entry := DigestEntry{
			NotificationID: evt.ID,
			UserID:         userID,
			Event:          evt,
			Priority:       priority,
			QueuedAt:       d.clock(),
		}
		if err := d.buckets.Append(ctx, key, entry); err != nil {
			return Outcome{}, fmt.Errorf("failed to queue digest entry: %w", err)
		}
		return Outcome{
			Decision: DecisionDigest,
			Reason:   fmt.Sprintf("queued into %s digest", eff.DigestFrequency),
			Priority: priority,
		}, nil
	}

	now := d.clock()
	if eff.InQuietHours(now) {
		release := eff.QuietHoursRelease(now)
		d.holds.push(heldDelivery{Event: evt, Priority: priority, ReleaseAt: release})
		return Outcome{
			Decision:  DecisionHeld,
			Reason:    "inside quiet hours",
			Priority:  priority,
			ReleaseAt: &release,
		}, nil
	}

	attempts := d.deliverNow(ctx, evt, eff, priority)
	return Outcome{
		Decision: DecisionDelivered,
		Priority: priority,
		Attempts: attempts,
	}, nil
}

// subjectGates applies the novelty and score-improvement gates. It returns
// the suppression outcome and true when the event must be dropped.
func (d *Dispatcher) subjectGates(ctx context.Context, evt event.NotificationEvent, eff prefs.Effective, priority event.Priority, score float64, hasScore bool) (Outcome, bool) {
	candidateID := evt.SubjectIDs.CandidateID
	if candidateID == "" || (!eff.NotifyOnlyNewCandidates && !eff.NotifyOnScoreImprovement) {
		return Outcome{}, false
	}

	last, _, seen, err := d.ledger.LastSubjectScore(ctx, evt.SubjectIDs.UserID, candidateID)
	if err != nil {
		// A gate read failure must not drop the event.
		d.logger.LogAttrs(ctx, slog.LevelWarn, "Subject score lookup failed, skipping novelty gate",
			logger.UserID(evt.SubjectIDs.UserID),
			logger.NotificationID(evt.ID),
			logger.Error(err),
		)
		return Outcome{}, false
	}
	if !seen {
		return Outcome{}, false
	}

	improved := hasScore && score-last >= eff.MinScoreImprovement

	if eff.NotifyOnlyNewCandidates {
		if eff.NotifyOnScoreImprovement && improved {
			return Outcome{}, false
		}
		return suppressed("candidate already notified", priority), true
	}

	// Only the improvement gate is on.
	if hasScore && !improved {
		return suppressed(fmt.Sprintf("score improvement %.1f below minimum %.1f", score-last, eff.MinScoreImprovement), priority), true
	}
	return Outcome{}, false
}

// Cancel removes a queued or held notification before it is delivered.
// Already-delivered notifications are unaffected.
func (d *Dispatcher) Cancel(ctx context.Context, userID, notificationID string) error {
	d.holds.cancel(notificationID)
	return d.buckets.Cancel(ctx, userID, notificationID)
}

// ReleaseDue delivers every held notification whose quiet-hours window has
// ended. It is driven by the scheduler tick.
func (d *Dispatcher) ReleaseDue(ctx context.Context, now time.Time) int {
	released := 0
	for _, held := range d.holds.due(now) {
		scope := prefs.GlobalScope()
		if held.Event.SubjectIDs.JobID != "" {
			scope = prefs.JobScope(held.Event.SubjectIDs.JobID)
		}
		eff := d.resolver.Resolve(ctx, held.Event.SubjectIDs.UserID, scope)

		d.deliverNow(ctx, held.Event, eff, held.Priority)
		released++

		d.logger.LogAttrs(ctx, slog.LevelInfo, "Released held notification",
			logger.NotificationID(held.Event.ID),
			logger.UserID(held.Event.SubjectIDs.UserID),
		)
	}
	return released
}

// enabledChannels intersects the user's channel toggles with the channels
// that actually have an adapter registered.
func (d *Dispatcher) enabledChannels(eff prefs.Effective) []channel.Channel {
	var out []channel.Channel
	for _, ch := range d.registry.Channels() {
		switch ch {
		case channel.ChannelEmail:
			if eff.ChannelEmail {
				out = append(out, ch)
			}
		case channel.ChannelSMS:
			if eff.ChannelSMS {
				out = append(out, ch)
			}
		case channel.ChannelPush:
			if eff.ChannelPush {
				out = append(out, ch)
			}
		}
	}
	return out
}
