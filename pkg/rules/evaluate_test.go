package rules_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/notifykit/pkg/event"
	"github.com/hirewire/notifykit/pkg/rules"
)

func priorityPtr(p event.Priority) *event.Priority {
	return &p
}

func matchEvent(attrs map[string]any) event.NotificationEvent {
	return event.NotificationEvent{
		ID:           "evt-1",
		Type:         event.TypeMatchCreated,
		SubjectIDs:   event.SubjectIDs{UserID: "user-1", JobID: "job-1", CandidateID: "cand-1"},
		Attributes:   attrs,
		BasePriority: event.PriorityMedium,
		OccurredAt:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestEvaluate_NoRules(t *testing.T) {
	t.Parallel()

	result := rules.Evaluate(matchEvent(nil), rules.NewSnapshot(nil))

	assert.Equal(t, event.PriorityMedium, result.FinalPriority)
	assert.Zero(t, result.FinalBoost)
	assert.Empty(t, result.AppliedRules)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.Warnings)
}

func TestEvaluate_BoostBelowStepKeepsPriority(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{{
		ID:    "r1",
		Name:  "urgent_department",
		Scope: rules.GlobalScope(),
		Conditions: []rules.Condition{
			{Field: "department", Operator: rules.OpEquals, Value: "Engineering"},
		},
		Boost:  20,
		Active: true,
	}})

	result := rules.Evaluate(matchEvent(map[string]any{"department": "Engineering"}), snap)

	assert.Equal(t, event.PriorityMedium, result.FinalPriority, "20 boost is below one full step")
	assert.Equal(t, 20, result.FinalBoost)
	assert.Equal(t, []string{"urgent_department"}, result.AppliedRules)
}

func TestEvaluate_BoostSteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		boost int
		want  event.Priority
	}{
		{name: "one step", boost: 25, want: event.PriorityHigh},
		{name: "two steps", boost: 50, want: event.PriorityCritical},
		{name: "partial step truncates", boost: 49, want: event.PriorityHigh},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			snap := rules.NewSnapshot([]rules.Rule{{
				ID:     "r1",
				Name:   "boost",
				Scope:  rules.GlobalScope(),
				Boost:  tt.boost,
				Active: true,
			}})

			result := rules.Evaluate(matchEvent(nil), snap)
			assert.Equal(t, tt.want, result.FinalPriority)
		})
	}
}

func TestEvaluate_OverrideEscalateOnly(t *testing.T) {
	t.Parallel()

	t.Run("lower override without permission is ignored", func(t *testing.T) {
		t.Parallel()

		snap := rules.NewSnapshot([]rules.Rule{{
			ID:               "r1",
			Name:             "downgrade",
			Scope:            rules.GlobalScope(),
			PriorityOverride: priorityPtr(event.PriorityLow),
			Active:           true,
		}})

		result := rules.Evaluate(matchEvent(nil), snap)
		assert.Equal(t, event.PriorityMedium, result.FinalPriority)
	})

	t.Run("lower override with permission applies", func(t *testing.T) {
		t.Parallel()

		snap := rules.NewSnapshot([]rules.Rule{{
			ID:                "r1",
			Name:              "downgrade",
			Scope:             rules.GlobalScope(),
			PriorityOverride:  priorityPtr(event.PriorityLow),
			AllowDeescalation: true,
			Active:            true,
		}})

		result := rules.Evaluate(matchEvent(nil), snap)
		assert.Equal(t, event.PriorityLow, result.FinalPriority)
	})

	t.Run("higher override applies", func(t *testing.T) {
		t.Parallel()

		snap := rules.NewSnapshot([]rules.Rule{{
			ID:               "r1",
			Name:             "upgrade",
			Scope:            rules.GlobalScope(),
			PriorityOverride: priorityPtr(event.PriorityCritical),
			Active:           true,
		}})

		result := rules.Evaluate(matchEvent(nil), snap)
		assert.Equal(t, event.PriorityCritical, result.FinalPriority)
	})
}

func TestEvaluate_ConflictLowerOrderWins(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{
		{
			ID:               "r2",
			Name:             "second",
			Scope:            rules.GlobalScope(),
			Order:            20,
			PriorityOverride: priorityPtr(event.PriorityCritical),
			Active:           true,
		},
		{
			ID:               "r1",
			Name:             "first",
			Scope:            rules.GlobalScope(),
			Order:            10,
			PriorityOverride: priorityPtr(event.PriorityHigh),
			Active:           true,
		},
	})

	result := rules.Evaluate(matchEvent(nil), snap)

	assert.Equal(t, event.PriorityHigh, result.FinalPriority, "lower order rule wins the override")
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "r1", result.Conflicts[0].WinnerRuleID)
	assert.Equal(t, "r2", result.Conflicts[0].LoserRuleID)
	assert.Equal(t, event.PriorityHigh, result.Conflicts[0].WinnerPriority)
	assert.Equal(t, event.PriorityCritical, result.Conflicts[0].LoserPriority)
}

func TestEvaluate_AgreeingOverridesNoConflict(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{
		{ID: "r1", Name: "a", Scope: rules.GlobalScope(), Order: 1, PriorityOverride: priorityPtr(event.PriorityHigh), Active: true},
		{ID: "r2", Name: "b", Scope: rules.GlobalScope(), Order: 2, PriorityOverride: priorityPtr(event.PriorityHigh), Active: true},
	})

	result := rules.Evaluate(matchEvent(nil), snap)

	assert.Equal(t, event.PriorityHigh, result.FinalPriority)
	assert.Empty(t, result.Conflicts)
}

func TestEvaluate_MissingAttribute(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{{
		ID:    "r1",
		Name:  "needs score",
		Scope: rules.GlobalScope(),
		Conditions: []rules.Condition{
			{Field: "score", Operator: rules.OpGreaterThan, Value: 80},
		},
		Boost:  50,
		Active: true,
	}})

	result := rules.Evaluate(matchEvent(nil), snap)

	assert.Equal(t, event.PriorityMedium, result.FinalPriority, "rule must not match")
	assert.Empty(t, result.AppliedRules)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, `no attribute "score"`)
}

func TestEvaluate_UnknownOperatorSkipsRule(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{{
		ID:    "r1",
		Name:  "broken",
		Scope: rules.GlobalScope(),
		Conditions: []rules.Condition{
			{Field: "score", Operator: "regexMatch", Value: ".*"},
		},
		Boost:  50,
		Active: true,
	}})

	result := rules.Evaluate(matchEvent(map[string]any{"score": 95}), snap)

	assert.Empty(t, result.AppliedRules)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "unknown operator")
	assert.Equal(t, event.PriorityMedium, result.FinalPriority, "other behavior unaffected")
}

func TestEvaluate_ClampWarning(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{{
		ID:     "r1",
		Name:   "huge boost",
		Scope:  rules.GlobalScope(),
		Boost:  100,
		Active: true,
	}})

	evt := matchEvent(nil)
	evt.BasePriority = event.PriorityHigh

	result := rules.Evaluate(evt, snap)

	assert.Equal(t, event.PriorityCritical, result.FinalPriority)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Message, "clamped")
}

func TestEvaluate_MonotonicFloor(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{{
		ID:     "r1",
		Name:   "demote",
		Scope:  rules.GlobalScope(),
		Boost:  -50,
		Active: true,
	}})

	result := rules.Evaluate(matchEvent(nil), snap)

	assert.Equal(t, event.PriorityMedium, result.FinalPriority, "never drops below base without permission")
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Message, "de-escalation")
}

func TestEvaluate_JobScopeFiltering(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{
		{ID: "r1", Name: "other job", Scope: rules.JobScope("job-9"), Boost: 50, Active: true},
		{ID: "r2", Name: "this job", Scope: rules.JobScope("job-1"), Boost: 25, Active: true},
	})

	result := rules.Evaluate(matchEvent(nil), snap)

	assert.Equal(t, []string{"this job"}, result.AppliedRules)
	assert.Equal(t, event.PriorityHigh, result.FinalPriority)
}

func TestEvaluate_InactiveRuleSkipped(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{
		{ID: "r1", Name: "retired", Scope: rules.GlobalScope(), Boost: 100, Active: false},
	})

	result := rules.Evaluate(matchEvent(nil), snap)

	assert.Empty(t, result.AppliedRules)
	assert.Equal(t, event.PriorityMedium, result.FinalPriority)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, "rule is inactive", result.Steps[0].Reason)
}

func TestEvaluate_Operators(t *testing.T) {
	t.Parallel()

	occurred := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cond    rules.Condition
		attrs   map[string]any
		matched bool
	}{
		{
			name:    "equals string",
			cond:    rules.Condition{Field: "stage", Operator: rules.OpEquals, Value: "final"},
			attrs:   map[string]any{"stage": "final"},
			matched: true,
		},
		{
			name:    "equals numeric coercion",
			cond:    rules.Condition{Field: "score", Operator: rules.OpEquals, Value: 92},
			attrs:   map[string]any{"score": 92.0},
			matched: true,
		},
		{
			name:    "greater than",
			cond:    rules.Condition{Field: "score", Operator: rules.OpGreaterThan, Value: 90},
			attrs:   map[string]any{"score": 92.5},
			matched: true,
		},
		{
			name:    "greater than boundary excluded",
			cond:    rules.Condition{Field: "score", Operator: rules.OpGreaterThan, Value: 90},
			attrs:   map[string]any{"score": 90},
			matched: false,
		},
		{
			name:    "less than",
			cond:    rules.Condition{Field: "score", Operator: rules.OpLessThan, Value: 50},
			attrs:   map[string]any{"score": 30},
			matched: true,
		},
		{
			name:    "in list",
			cond:    rules.Condition{Field: "department", Operator: rules.OpIn, Value: []any{"Sales", "Engineering"}},
			attrs:   map[string]any{"department": "Engineering"},
			matched: true,
		},
		{
			name:    "not in list",
			cond:    rules.Condition{Field: "department", Operator: rules.OpIn, Value: []any{"Sales"}},
			attrs:   map[string]any{"department": "Engineering"},
			matched: false,
		},
		{
			name:    "within time window",
			cond:    rules.Condition{Field: "occurredAt", Operator: rules.OpWithinTimeWindow, Value: "2h"},
			attrs:   map[string]any{"occurredAt": occurred.Add(90 * time.Minute).Format(time.RFC3339)},
			matched: true,
		},
		{
			name:    "outside time window",
			cond:    rules.Condition{Field: "occurredAt", Operator: rules.OpWithinTimeWindow, Value: "1h"},
			attrs:   map[string]any{"occurredAt": occurred.Add(3 * time.Hour).Format(time.RFC3339)},
			matched: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			snap := rules.NewSnapshot([]rules.Rule{{
				ID:         "r1",
				Name:       "probe",
				Scope:      rules.GlobalScope(),
				Conditions: []rules.Condition{tt.cond},
				Boost:      25,
				Active:     true,
			}})

			result := rules.Evaluate(matchEvent(tt.attrs), snap)
			if tt.matched {
				assert.Equal(t, []string{"probe"}, result.AppliedRules)
			} else {
				assert.Empty(t, result.AppliedRules)
			}
		})
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{
		{ID: "r1", Name: "a", Scope: rules.GlobalScope(), Order: 2, Boost: 25, Active: true},
		{ID: "r2", Name: "b", Scope: rules.GlobalScope(), Order: 1, PriorityOverride: priorityPtr(event.PriorityHigh), Active: true},
	})
	evt := matchEvent(map[string]any{"score": 85})

	first := rules.Evaluate(evt, snap)
	second := rules.Evaluate(evt, snap)

	assert.Equal(t, first, second, "same event and snapshot must yield identical results")
}

func TestEvaluate_StepsRecordEveryRule(t *testing.T) {
	t.Parallel()

	snap := rules.NewSnapshot([]rules.Rule{
		{ID: "r1", Name: "a", Scope: rules.GlobalScope(), Order: 1, Boost: 25, Active: true},
		{ID: "r2", Name: "b", Scope: rules.JobScope("job-9"), Order: 2, Boost: 25, Active: true},
	})

	result := rules.Evaluate(matchEvent(nil), snap)

	require.Len(t, result.Steps, 2)
	assert.True(t, result.Steps[0].Matched)
	assert.False(t, result.Steps[1].Matched)
}
