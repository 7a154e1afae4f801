package prefs

import "context"

// Storage handles preference row persistence. Rows are created on first
// save and updated in place; there is no delete, only reset to defaults.
type Storage interface {
	// Get retrieves the preference row for a user and scope.
	// Returns ErrPreferenceNotFound when no row exists.
	Get(ctx context.Context, userID string, scope Scope) (*Preference, error)

	// Upsert stores the given row for a user and scope, replacing any
	// existing one.
	Upsert(ctx context.Context, userID string, scope Scope, pref Preference) error
}
