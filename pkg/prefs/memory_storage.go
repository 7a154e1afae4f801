package prefs

import (
	"context"
	"sync"
)

type prefKey struct {
	userID    string
	scopeType ScopeType
	jobID     string
}

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development and testing.
type MemoryStorage struct {
	prefs map[prefKey]Preference
	mu    sync.RWMutex
}

// NewMemoryStorage creates a new in-memory preference storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		prefs: make(map[prefKey]Preference),
	}
}

func keyFor(userID string, scope Scope) prefKey {
	return prefKey{userID: userID, scopeType: scope.Type, jobID: scope.JobID}
}

func (s *MemoryStorage) Get(ctx context.Context, userID string, scope Scope) (*Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pref, ok := s.prefs[keyFor(userID, scope)]
	if !ok {
		return nil, ErrPreferenceNotFound
	}
	cp := pref
	return &cp, nil
}

func (s *MemoryStorage) Upsert(ctx context.Context, userID string, scope Scope, pref Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prefs[keyFor(userID, scope)] = pref
	return nil
}
