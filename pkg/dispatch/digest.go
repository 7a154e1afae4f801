package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/ledger"
	"github.com/hirewire/notifykit/pkg/logger"
	"github.com/hirewire/notifykit/pkg/prefs"
)

// Flush drains one user's digest bucket and delivers a single consolidated
// message. Flushing an empty bucket is a no-op, and a second concurrent
// flush of the same user waits for the first and then finds the bucket
// empty, so retried ticks cannot double-send.
func (d *Dispatcher) Flush(ctx context.Context, key BucketKey) ([]ledger.Attempt, error) {
	lock := d.flushMu.lock(key.UserID)
	defer lock.Unlock()

	entries, err := d.buckets.Drain(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	maxPriority := event.PriorityLow
	for _, entry := range entries {
		if entry.Priority > maxPriority {
			maxPriority = entry.Priority
		}
	}

	msg := renderDigest(key.UserID, uuid.New().String(), entries, maxPriority)
	eff := d.resolver.Resolve(ctx, key.UserID, prefs.GlobalScope())
	attempts := d.sendToChannels(ctx, key.UserID, msg, d.enabledChannels(eff))

	d.logger.LogAttrs(ctx, slog.LevelInfo, "Flushed digest bucket",
		logger.UserID(key.UserID),
		slog.String("frequency", string(key.Frequency)),
		slog.Int("entries", len(entries)),
		slog.Int("attempts", len(attempts)),
	)
	return attempts, nil
}

// FlushDue flushes every non-empty bucket for a cadence. Users are flushed
// in parallel; per-user serialization happens inside Flush.
func (d *Dispatcher) FlushDue(ctx context.Context, frequency prefs.Frequency) int {
	keys, err := d.buckets.Keys(ctx, frequency)
	if err != nil {
		d.logger.LogAttrs(ctx, slog.LevelError, "Failed to list digest buckets",
			slog.String("frequency", string(frequency)),
			logger.Error(err),
		)
		return 0
	}

	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key BucketKey) {
			defer wg.Done()
			if _, err := d.Flush(ctx, key); err != nil {
				d.logger.LogAttrs(ctx, slog.LevelError, "Digest flush failed",
					logger.UserID(key.UserID),
					slog.String("frequency", string(key.Frequency)),
					logger.Error(err),
				)
			}
		}(key)
	}
	wg.Wait()

	return len(keys)
}
