package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/hirewire/notifykit/pkg/prefs"
)

// RedisBucketStore keeps digest buckets in Redis lists so queued entries
// survive restarts and multiple engine instances can share one queue.
type RedisBucketStore struct {
	client redis.UniversalClient
}

// NewRedisBucketStore creates a bucket store backed by the given client.
func NewRedisBucketStore(client redis.UniversalClient) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

func bucketRedisKey(key BucketKey) string {
	return fmt.Sprintf("digest:%s:%s", key.Frequency, key.UserID)
}

// Append implements BucketStore.
func (s *RedisBucketStore) Append(ctx context.Context, key BucketKey, entry DigestEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal digest entry: %w", err)
	}
	if err := s.client.RPush(ctx, bucketRedisKey(key), raw).Err(); err != nil {
		return fmt.Errorf("failed to append digest entry: %w", err)
	}
	return nil
}

// Drain implements BucketStore. The read and delete run in one MULTI/EXEC
// block, so two concurrent drains cannot both claim the same entries.
func (s *RedisBucketStore) Drain(ctx context.Context, key BucketKey) ([]DigestEntry, error) {
	redisKey := bucketRedisKey(key)

	var rangeCmd *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rangeCmd = pipe.LRange(ctx, redisKey, 0, -1)
		pipe.Del(ctx, redisKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain digest bucket: %w", err)
	}

	raws := rangeCmd.Val()
	entries := make([]DigestEntry, 0, len(raws))
	for _, raw := range raws {
		var entry DigestEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to decode digest entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Cancel implements BucketStore.
func (s *RedisBucketStore) Cancel(ctx context.Context, userID, notificationID string) error {
	for _, freq := range []prefs.Frequency{prefs.FrequencyDaily, prefs.FrequencyWeekly} {
		redisKey := bucketRedisKey(BucketKey{UserID: userID, Frequency: freq})

		raws, err := s.client.LRange(ctx, redisKey, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("failed to read digest bucket: %w", err)
		}
		for _, raw := range raws {
			var entry DigestEntry
			if err := json.Unmarshal([]byte(raw), &entry); err != nil {
				continue
			}
			if entry.NotificationID != notificationID {
				continue
			}
			if err := s.client.LRem(ctx, redisKey, 1, raw).Err(); err != nil {
				return fmt.Errorf("failed to cancel digest entry: %w", err)
			}
		}
	}
	return nil
}

// Keys implements BucketStore.
func (s *RedisBucketStore) Keys(ctx context.Context, frequency prefs.Frequency) ([]BucketKey, error) {
	prefix := fmt.Sprintf("digest:%s:", frequency)

	var (
		keys   []BucketKey
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan digest buckets: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, BucketKey{
				UserID:    strings.TrimPrefix(k, prefix),
				Frequency: frequency,
			})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
