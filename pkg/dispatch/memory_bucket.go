package dispatch

import (
	"context"
	"sync"

	"github.com/hirewire/notifykit/pkg/prefs"
)

// MemoryBucketStore is an in-memory BucketStore for tests and single-node
// deployments.
type MemoryBucketStore struct {
	mu      sync.Mutex
	buckets map[BucketKey][]DigestEntry
}

// NewMemoryBucketStore creates an empty in-memory bucket store.
func NewMemoryBucketStore() *MemoryBucketStore {
	return &MemoryBucketStore{
		buckets: make(map[BucketKey][]DigestEntry),
	}
}

// Append implements BucketStore.
func (s *MemoryBucketStore) Append(_ context.Context, key BucketKey, entry DigestEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buckets[key] = append(s.buckets[key], entry)
	return nil
}

// Drain implements BucketStore. Removing under the same lock that Append
// takes makes the claim atomic.
func (s *MemoryBucketStore) Drain(_ context.Context, key BucketKey) ([]DigestEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.buckets[key]
	delete(s.buckets, key)
	return entries, nil
}

// Cancel implements BucketStore.
func (s *MemoryBucketStore) Cancel(_ context.Context, userID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entries := range s.buckets {
		if key.UserID != userID {
			continue
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.NotificationID != notificationID {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.buckets, key)
		} else {
			s.buckets[key] = kept
		}
	}
	return nil
}

// Keys implements BucketStore.
func (s *MemoryBucketStore) Keys(_ context.Context, frequency prefs.Frequency) ([]BucketKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]BucketKey, 0, len(s.buckets))
	for key, entries := range s.buckets {
		if key.Frequency == frequency && len(entries) > 0 {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
