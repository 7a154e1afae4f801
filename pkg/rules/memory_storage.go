package rules

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// Suitable for development, tests and the rule-authoring sandbox.
type MemoryStorage struct {
	rules map[string]Rule
	mu    sync.RWMutex
}

// NewMemoryStorage creates a new in-memory rule storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		rules: make(map[string]Rule),
	}
}

func (s *MemoryStorage) Upsert(ctx context.Context, rule Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[rule.ID] = rule
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.rules[id]
	if !ok {
		return nil, ErrRuleNotFound
	}
	// Return a copy to prevent external mutation of stored data
	cp := rule
	return &cp, nil
}

func (s *MemoryStorage) List(ctx context.Context, scope Scope) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Rule
	for _, rule := range s.rules {
		if rule.Scope == scope {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (s *MemoryStorage) ListForEvaluation(ctx context.Context, jobID string) ([]Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Rule
	for _, rule := range s.rules {
		if rule.Scope.Type == ScopeGlobal || (jobID != "" && rule.Scope.JobID == jobID) {
			out = append(out, rule)
		}
	}
	return out, nil
}
