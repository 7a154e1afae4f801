package rules

import (
	"fmt"
	"time"

	"github.com/hirewire/notifykit/pkg/event"
)

// Operator identifies how a condition compares an event attribute to the
// condition value.
type Operator string

const (
	OpEquals           Operator = "equals"
	OpGreaterThan      Operator = "greaterThan"
	OpLessThan         Operator = "lessThan"
	OpIn               Operator = "in"
	OpWithinTimeWindow Operator = "withinTimeWindow"
)

// Valid checks if the operator is part of the supported set.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpGreaterThan, OpLessThan, OpIn, OpWithinTimeWindow:
		return true
	}
	return false
}

// Condition is a single attribute check. All conditions within a rule are
// ANDed together.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value" yaml:"value"`
}

// ScopeType distinguishes global rules from job-scoped ones.
type ScopeType string

const (
	ScopeGlobal ScopeType = "global"
	ScopeJob    ScopeType = "job"
)

// Scope bounds where a rule applies.
type Scope struct {
	Type  ScopeType `json:"type" yaml:"type"`
	JobID string    `json:"job_id,omitempty" yaml:"job_id,omitempty"`
}

// GlobalScope returns the scope matching every event.
func GlobalScope() Scope {
	return Scope{Type: ScopeGlobal}
}

// JobScope returns a scope limited to a single job.
func JobScope(jobID string) Scope {
	return Scope{Type: ScopeJob, JobID: jobID}
}

// appliesTo reports whether a rule in this scope should be evaluated for an
// event. Global rules always apply; job rules only for matching job IDs.
func (s Scope) appliesTo(evt event.NotificationEvent) bool {
	if s.Type != ScopeJob {
		return true
	}
	return s.JobID != "" && s.JobID == evt.SubjectIDs.JobID
}

// Boost limits. A full priority step is worth 25 boost points, so the range
// allows moving an event across the entire priority ladder and no further.
const (
	MinBoost = -100
	MaxBoost = 100

	// BoostPerStep is the accumulated boost required to move the candidate
	// priority by one level.
	BoostPerStep = 25
)

// Rule is a named, ordered condition set that may override priority and/or
// add a boost when matched. Lower Order means higher precedence.
type Rule struct {
	ID                string          `json:"id" yaml:"id"`
	Name              string          `json:"name" yaml:"name"`
	Scope             Scope           `json:"scope" yaml:"scope"`
	Order             int             `json:"order" yaml:"order"`
	Conditions        []Condition     `json:"conditions" yaml:"conditions"`
	PriorityOverride  *event.Priority `json:"priority_override,omitempty" yaml:"priority_override,omitempty"`
	AllowDeescalation bool            `json:"allow_deescalation,omitempty" yaml:"allow_deescalation,omitempty"`
	Boost             int             `json:"boost" yaml:"boost"`
	Active            bool            `json:"active" yaml:"active"`
	CreatedAt         time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt         time.Time       `json:"updated_at" yaml:"-"`
}

// Validate checks the fields an administrator can get wrong when authoring
// a rule. Unknown operators are accepted here and reported as evaluation
// warnings instead, so a half-authored rule can be saved and tested in the
// sandbox without blocking on validation.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if r.Boost < MinBoost || r.Boost > MaxBoost {
		return fmt.Errorf("%w: boost must be between %d and %d", ErrInvalidRule, MinBoost, MaxBoost)
	}
	if r.Scope.Type == ScopeJob && r.Scope.JobID == "" {
		return fmt.Errorf("%w: job-scoped rule requires a job id", ErrInvalidRule)
	}
	if r.PriorityOverride != nil && !r.PriorityOverride.Valid() {
		return fmt.Errorf("%w: priority override out of range", ErrInvalidRule)
	}
	return nil
}
