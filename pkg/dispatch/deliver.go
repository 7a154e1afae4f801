package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/ledger"
	"github.com/hirewire/notifykit/pkg/logger"
	"github.com/hirewire/notifykit/pkg/prefs"
)

// deliverNow fans the event out to every enabled channel in parallel and
// returns the ledger attempts written. One channel failing never affects the
// others; failures land in the ledger, not in an error return.
func (d *Dispatcher) deliverNow(ctx context.Context, evt event.NotificationEvent, eff prefs.Effective, priority event.Priority) []ledger.Attempt {
	msg := renderMessage(evt, priority)
	return d.sendToChannels(ctx, evt.SubjectIDs.UserID, msg, d.enabledChannels(eff))
}

// sendToChannels performs the actual fan-out. Each send acquires the
// destination lock so concurrent deliveries to one address stay ordered, and
// the ledger's duplicate guard is checked under that lock.
func (d *Dispatcher) sendToChannels(ctx context.Context, userID string, msg channel.Message, channels []channel.Channel) []ledger.Attempt {
	var (
		mu       sync.Mutex
		attempts []ledger.Attempt
		wg       sync.WaitGroup
	)

	for _, ch := range channels {
		wg.Add(1)
		go func(ch channel.Channel) {
			defer wg.Done()
			attempt, ok := d.sendOne(ctx, userID, ch, msg)
			if !ok {
				return
			}
			mu.Lock()
			attempts = append(attempts, attempt)
			mu.Unlock()
		}(ch)
	}
	wg.Wait()

	return attempts
}

// sendOne delivers the message through one channel: resolve destination,
// guard against resends, record the pending attempt, send, record the result.
func (d *Dispatcher) sendOne(ctx context.Context, userID string, ch channel.Channel, msg channel.Message) (ledger.Attempt, bool) {
	adapter, err := d.registry.Adapter(ch)
	if err != nil {
		return ledger.Attempt{}, false
	}

	destination, err := d.directory.Destination(ctx, userID, ch)
	if err != nil {
		if !errors.Is(err, ErrNoDestination) {
			d.logger.LogAttrs(ctx, slog.LevelWarn, "Destination lookup failed",
				logger.UserID(userID),
				logger.Channel(string(ch)),
				logger.Error(err),
			)
		}
		return ledger.Attempt{}, false
	}

	lock := d.destMu.lock(destination)
	defer lock.Unlock()

	active, err := d.ledger.ActiveOrSucceeded(ctx, msg.NotificationID, string(ch))
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "Resend guard check failed",
			logger.NotificationID(msg.NotificationID),
			logger.Channel(string(ch)),
			logger.Error(err),
		)
		return ledger.Attempt{}, false
	}
	if active {
		return ledger.Attempt{}, false
	}

	attempt := ledger.Attempt{
		ID:             uuid.New().String(),
		NotificationID: msg.NotificationID,
		UserID:         userID,
		Channel:        string(ch),
		Provider:       adapter.Provider(),
		Destination:    destination,
		Status:         ledger.StatusPending,
		CreatedAt:      d.clock(),
	}
	if err := d.ledger.Record(ctx, attempt); err != nil {
		if errors.Is(err, ledger.ErrDuplicateAttempt) {
			return ledger.Attempt{}, false
		}
		d.logger.LogAttrs(ctx, slog.LevelError, "Failed to record delivery attempt",
			logger.NotificationID(msg.NotificationID),
			logger.Channel(string(ch)),
			logger.Error(err),
		)
		return ledger.Attempt{}, false
	}

	started := time.Now()
	result := adapter.Send(ctx, destination, msg)

	if result.Success {
		attempt.Status = ledger.StatusSent
		attempt.ProviderMessageID = result.ProviderMessageID
		attempt.Cost = result.Cost
		attempt.Segments = result.Segments
	} else {
		attempt.Status = ledger.StatusFailed
		attempt.FailureReason = result.Err
	}

	if err := d.ledger.Update(ctx, attempt); err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "Failed to update delivery attempt",
			logger.NotificationID(msg.NotificationID),
			logger.Channel(string(ch)),
			logger.Error(err),
		)
	}

	level := slog.LevelInfo
	if !result.Success {
		level = slog.LevelWarn
	}
	d.logger.LogAttrs(ctx, level, "Delivery attempt finished",
		logger.NotificationID(msg.NotificationID),
		logger.UserID(userID),
		logger.Channel(string(ch)),
		logger.Provider(adapter.Provider()),
		slog.String("status", string(attempt.Status)),
		logger.Duration(time.Since(started)),
	)

	return attempt, true
}
