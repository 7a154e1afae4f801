package rules

import (
	"context"
)

// Storage handles rule persistence. Rules are never hard-deleted;
// deactivation happens through the Active flag on upsert.
type Storage interface {
	// Upsert inserts or replaces a rule by ID.
	Upsert(ctx context.Context, rule Rule) error

	// Get retrieves a single rule.
	Get(ctx context.Context, id string) (*Rule, error)

	// List returns the rules belonging to exactly the given scope.
	List(ctx context.Context, scope Scope) ([]Rule, error)

	// ListForEvaluation returns all global rules plus the rules scoped to
	// the given job, active or not. The evaluation engine records steps for
	// inactive rules too.
	ListForEvaluation(ctx context.Context, jobID string) ([]Rule, error)
}
