package ledger

import (
	"context"
	"sync"
	"time"
)

type scoreKey struct {
	userID    string
	subjectID string
}

type subjectScore struct {
	score float64
	at    time.Time
}

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	attempts []Attempt
	scores   map[scoreKey]subjectScore
	mu       sync.RWMutex
}

// NewMemoryStorage creates a new in-memory ledger storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		scores: make(map[scoreKey]subjectScore),
	}
}

func (s *MemoryStorage) Record(ctx context.Context, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.attempts {
		a := &s.attempts[i]
		if a.NotificationID == attempt.NotificationID && a.Channel == attempt.Channel && !a.Status.Terminal() {
			return ErrDuplicateAttempt
		}
	}

	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *MemoryStorage) Update(ctx context.Context, attempt Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.attempts {
		a := &s.attempts[i]
		if a.ID != attempt.ID {
			continue
		}
		if a.Status.Terminal() {
			return ErrAttemptFinal
		}
		a.Status = attempt.Status
		a.ProviderMessageID = attempt.ProviderMessageID
		a.Cost = attempt.Cost
		a.Segments = attempt.Segments
		a.FailureReason = attempt.FailureReason
		if attempt.DeliveredAt != nil {
			a.DeliveredAt = attempt.DeliveredAt
		}
		return nil
	}
	return ErrAttemptNotFound
}

func (s *MemoryStorage) UpdateByProviderMessageID(ctx context.Context, providerMessageID string, status Status, reason string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.attempts {
		a := &s.attempts[i]
		if a.ProviderMessageID != providerMessageID || providerMessageID == "" {
			continue
		}
		if a.Status.Terminal() {
			return nil, ErrAttemptFinal
		}
		a.Status = status
		if reason != "" {
			a.FailureReason = reason
		}
		if status == StatusDelivered && a.DeliveredAt == nil {
			now := time.Now()
			a.DeliveredAt = &now
		}
		cp := *a
		return &cp, nil
	}
	return nil, ErrAttemptNotFound
}

func (s *MemoryStorage) ActiveOrSucceeded(ctx context.Context, notificationID, channel string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.attempts {
		a := &s.attempts[i]
		if a.NotificationID != notificationID || a.Channel != channel {
			continue
		}
		if !a.Status.Terminal() || a.Status == StatusDelivered {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) ListByNotification(ctx context.Context, notificationID string) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Attempt
	for _, a := range s.attempts {
		if a.NotificationID == notificationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStorage) UsageStats(ctx context.Context, userID string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	for _, a := range s.attempts {
		if a.UserID != userID {
			continue
		}
		stats.Attempts++
		stats.TotalCost += a.Cost
		stats.TotalSegments += a.Segments
		switch a.Status {
		case StatusDelivered:
			stats.Delivered++
		case StatusFailed, StatusUndelivered:
			stats.Failed++
		}
	}
	return stats, nil
}

func (s *MemoryStorage) LastSubjectScore(ctx context.Context, userID, subjectID string) (float64, time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scores[scoreKey{userID: userID, subjectID: subjectID}]
	if !ok {
		return 0, time.Time{}, false, nil
	}
	return sc.score, sc.at, true, nil
}

func (s *MemoryStorage) RecordSubjectScore(ctx context.Context, userID, subjectID string, score float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores[scoreKey{userID: userID, subjectID: subjectID}] = subjectScore{score: score, at: at}
	return nil
}
