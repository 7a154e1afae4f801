package prefs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hirewire/notifykit/pkg/logger"
)

// Resolver merges stored preference rows into one effective preference set.
type Resolver struct {
	storage Storage
	logger  *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger for the Resolver.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a preference resolver on top of the given storage.
func NewResolver(storage Storage, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve loads the global row and, for job scopes, the job row, and merges
// them field-by-field with the scoped row winning. Missing rows fall back to
// defaults; a storage failure degrades to defaults too, because dropping an
// event over a preference read error is worse than delivering it with
// default settings.
func (r *Resolver) Resolve(ctx context.Context, userID string, scope Scope) Effective {
	eff := Defaults()

	global, err := r.storage.Get(ctx, userID, GlobalScope())
	if err != nil && !errors.Is(err, ErrPreferenceNotFound) {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "Preference read failed, using defaults",
			logger.UserID(userID),
			logger.Error(err),
		)
		return eff
	}
	if global != nil {
		eff = eff.apply(*global)
	}

	if !scope.IsJob() {
		return eff
	}

	scoped, err := r.storage.Get(ctx, userID, scope)
	if err != nil {
		if !errors.Is(err, ErrPreferenceNotFound) {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "Scoped preference read failed, using global settings",
				logger.UserID(userID),
				logger.JobID(scope.JobID),
				logger.Error(err),
			)
		}
		return eff
	}

	return eff.apply(*scoped)
}
