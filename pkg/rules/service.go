package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/logger"
)

// Service exposes rule administration and the evaluation entry point used
// by the rule-authoring sandbox.
type Service struct {
	storage Storage
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a rule service on top of the given storage.
func NewService(storage Storage, opts ...ServiceOption) (*Service, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	s := &Service{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns the rules belonging to the given scope.
func (s *Service) List(ctx context.Context, scope Scope) ([]Rule, error) {
	rs, err := s.storage.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return NewSnapshot(rs).Rules(), nil
}

// Upsert validates and stores a rule, filling in ID and timestamps for new
// rules. There is no delete operation; rules are retired by setting
// Active=false.
func (s *Service) Upsert(ctx context.Context, rule Rule) (*Rule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	if rule.ID == "" {
		rule.ID = uuid.New().String()
		rule.CreatedAt = now
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	if err := s.storage.Upsert(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to store rule: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "Stored priority rule",
		logger.RuleID(rule.ID),
		slog.String("rule_name", rule.Name),
		slog.Bool("active", rule.Active),
	)

	return &rule, nil
}

// Snapshot builds an immutable evaluation snapshot of all global rules plus
// the rules scoped to the given job.
func (s *Service) Snapshot(ctx context.Context, jobID string) (*Snapshot, error) {
	rs, err := s.storage.ListForEvaluation(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for evaluation: %w", err)
	}
	return NewSnapshot(rs), nil
}

// Evaluate runs an event through the current rule set. Used both by the
// dispatch pipeline and by the authoring sandbox, which renders the steps,
// conflicts and warnings instead of treating them as failures.
func (s *Service) Evaluate(ctx context.Context, evt event.NotificationEvent) (EvaluationResult, error) {
	snap, err := s.Snapshot(ctx, evt.SubjectIDs.JobID)
	if err != nil {
		return EvaluationResult{}, err
	}
	return Evaluate(evt, snap), nil
}
