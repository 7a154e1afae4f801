package prefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hirewire/notifykit/pkg/logger"
)

// Service exposes preference administration to collaborators. Reads go
// through the resolver so callers always see the merged effective view;
// writes patch only the fields the caller explicitly sets.
type Service struct {
	storage  Storage
	resolver *Resolver
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger for the Service.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a preference service on top of the given storage.
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
	s.resolver = NewResolver(storage, WithResolverLogger(s.logger))
	return s, nil
}

// Resolver returns the underlying resolver, shared with the dispatcher.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Get returns the effective preference for a user and scope.
func (s *Service) Get(ctx context.Context, userID string, scope Scope) Effective {
	return s.resolver.Resolve(ctx, userID, scope)
}

// Upsert patches the stored row for a user and scope: fields set in the
// patch overwrite, unset fields keep their stored value. The row is created
// on first save.
func (s *Service) Upsert(ctx context.Context, userID string, scope Scope, patch Preference) (Effective, error) {
	if userID == "" {
		return Effective{}, fmt.Errorf("%w: user id is required", ErrInvalidPreference)
	}
	if err := patch.Validate(); err != nil {
		return Effective{}, err
	}

	now := time.Now()
	stored := Preference{CreatedAt: now}
	if existing, err := s.storage.Get(ctx, userID, scope); err == nil {
		stored = *existing
	} else if !errors.Is(err, ErrPreferenceNotFound) {
		return Effective{}, fmt.Errorf("failed to load preference: %w", err)
	}

	updated := merge(stored, patch)
	updated.CreatedAt = stored.CreatedAt
	if updated.CreatedAt.IsZero() {
		updated.CreatedAt = now
	}
	updated.UpdatedAt = now

	if err := s.storage.Upsert(ctx, userID, scope, updated); err != nil {
		return Effective{}, fmt.Errorf("failed to store preference: %w", err)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "Updated delivery preference",
		logger.UserID(userID),
		slog.String("scope", string(scope.Type)),
		logger.JobID(scope.JobID),
	)

	return s.resolver.Resolve(ctx, userID, scope), nil
}

// Reset replaces the row for a user and scope with an empty one, restoring
// inherited or default behavior. Rows are never deleted.
func (s *Service) Reset(ctx context.Context, userID string, scope Scope) error {
	now := time.Now()
	if err := s.storage.Upsert(ctx, userID, scope, Preference{CreatedAt: now, UpdatedAt: now}); err != nil {
		return fmt.Errorf("failed to reset preference: %w", err)
	}
	return nil
}
