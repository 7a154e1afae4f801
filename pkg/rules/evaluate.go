package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/hirewire/notifykit/pkg/event"
)

// Warning is a non-fatal diagnostic attached to an evaluation result.
type Warning struct {
	RuleID  string `json:"rule_id,omitempty"`
	Message string `json:"message"`
}

// Conflict records two matching rules requesting disagreeing priority
// overrides. The rule with the lower Order value wins.
type Conflict struct {
	WinnerRuleID   string         `json:"winner_rule_id"`
	WinnerName     string         `json:"winner_name"`
	WinnerPriority event.Priority `json:"winner_priority"`
	LoserRuleID    string         `json:"loser_rule_id"`
	LoserName      string         `json:"loser_name"`
	LoserPriority  event.Priority `json:"loser_priority"`
}

// Step records the outcome of evaluating a single rule, matched or not, to
// support auditability and the rule-authoring sandbox.
type Step struct {
	RuleID         string         `json:"rule_id"`
	RuleName       string         `json:"rule_name"`
	Matched        bool           `json:"matched"`
	Reason         string         `json:"reason"`
	PriorityBefore event.Priority `json:"priority_before"`
	PriorityAfter  event.Priority `json:"priority_after"`
	BoostBefore    int            `json:"boost_before"`
	BoostAfter     int            `json:"boost_after"`
}

// EvaluationResult is the derived outcome of running an event through a
// rule snapshot. It is never persisted.
type EvaluationResult struct {
	FinalPriority event.Priority `json:"final_priority"`
	FinalBoost    int            `json:"final_boost"`
	AppliedRules  []string       `json:"applied_rules"`
	Conflicts     []Conflict     `json:"conflicts"`
	Warnings      []Warning      `json:"warnings"`
	Steps         []Step         `json:"evaluation_steps"`
}

// Evaluate runs the event through the snapshot and produces the final
// priority, accumulated boost and full diagnostics.
//
// Rules are evaluated in snapshot order. A rule matches when all its
// conditions hold against the event attributes; a condition referencing a
// missing attribute makes the rule non-matching and adds a warning.
// Priority overrides follow an escalate-only policy unless the rule allows
// de-escalation; when two matching rules disagree on the override, the one
// with the lower Order wins and a conflict is recorded. Boosts from all
// matching rules are summed and converted to priority steps afterwards,
// clamped to the valid range.
func Evaluate(evt event.NotificationEvent, snap *Snapshot) EvaluationResult {
	result := EvaluationResult{
		AppliedRules: []string{},
		Conflicts:    []Conflict{},
		Warnings:     []Warning{},
		Steps:        []Step{},
	}

	candidate := evt.BasePriority.Clamp()
	boost := 0

	// First matching rule that requested an override, kept for conflict
	// attribution. Lower order always evaluates first.
	var overrideBy *Rule
	deescalationAllowed := false

	rs := snap.rules
	for i := range rs {
		rule := &rs[i]
		step := Step{
			RuleID:         rule.ID,
			RuleName:       rule.Name,
			PriorityBefore: candidate,
			BoostBefore:    boost,
		}

		switch {
		case !rule.Active:
			step.Reason = "rule is inactive"
		case !rule.Scope.appliesTo(evt):
			step.Reason = fmt.Sprintf("rule scoped to job %s does not apply", rule.Scope.JobID)
		default:
			matched, reason, warns := matchRule(rule, evt)
			result.Warnings = append(result.Warnings, warns...)
			step.Reason = reason

			if matched {
				step.Matched = true
				result.AppliedRules = append(result.AppliedRules, rule.Name)
				boost += rule.Boost

				if rule.AllowDeescalation {
					deescalationAllowed = true
				}

				if rule.PriorityOverride != nil {
					want := *rule.PriorityOverride
					if overrideBy != nil && *overrideBy.PriorityOverride != want {
						// Earlier rule has precedence; record the conflict
						// and keep its override.
						result.Conflicts = append(result.Conflicts, Conflict{
							WinnerRuleID:   overrideBy.ID,
							WinnerName:     overrideBy.Name,
							WinnerPriority: *overrideBy.PriorityOverride,
							LoserRuleID:    rule.ID,
							LoserName:      rule.Name,
							LoserPriority:  want,
						})
						step.Reason = appendReason(step.Reason, "override lost to higher-precedence rule "+overrideBy.Name)
					} else if overrideBy == nil {
						overrideBy = rule
						if want > candidate || rule.AllowDeescalation {
							candidate = want
						}
					}
				}
			}
		}

		step.PriorityAfter = candidate
		step.BoostAfter = boost
		result.Steps = append(result.Steps, step)
	}

	// Boost is applied after overrides: every full 25 points moves the
	// priority one level.
	final := candidate.Step(boost / BoostPerStep)
	if unclamped := int(candidate) + boost/BoostPerStep; unclamped > int(event.PriorityCritical) {
		result.Warnings = append(result.Warnings, Warning{
			Message: fmt.Sprintf("accumulated boost %d pushed priority past critical; clamped", boost),
		})
	}

	// Monotonic escalation: the result never drops below the base priority
	// unless a matching rule explicitly permits de-escalation.
	if final < evt.BasePriority && !deescalationAllowed {
		final = evt.BasePriority
		result.Warnings = append(result.Warnings, Warning{
			Message: "negative adjustment ignored: no matching rule permits de-escalation",
		})
	}

	result.FinalPriority = final
	result.FinalBoost = boost
	return result
}

// matchRule evaluates all conditions of a rule. It returns whether the rule
// matched, a human-readable reason and any warnings raised along the way.
func matchRule(rule *Rule, evt event.NotificationEvent) (bool, string, []Warning) {
	var warnings []Warning

	if len(rule.Conditions) == 0 {
		return true, "no conditions; always matches", nil
	}

	for _, cond := range rule.Conditions {
		if !event.IsCanonicalAttribute(cond.Field) {
			warnings = append(warnings, Warning{
				RuleID:  rule.ID,
				Message: fmt.Sprintf("condition field %q is not part of the canonical event schema", cond.Field),
			})
		}

		if !cond.Operator.Valid() {
			warnings = append(warnings, Warning{
				RuleID:  rule.ID,
				Message: fmt.Sprintf("unknown operator %q; rule skipped", cond.Operator),
			})
			return false, fmt.Sprintf("skipped: unknown operator %q", cond.Operator), warnings
		}

		attr, ok := evt.Attr(cond.Field)
		if !ok {
			warnings = append(warnings, Warning{
				RuleID:  rule.ID,
				Message: fmt.Sprintf("event has no attribute %q", cond.Field),
			})
			return false, fmt.Sprintf("attribute %q missing from event", cond.Field), warnings
		}

		ok, err := matchCondition(cond, attr, evt.OccurredAt)
		if err != nil {
			warnings = append(warnings, Warning{
				RuleID:  rule.ID,
				Message: fmt.Sprintf("condition on %q is malformed: %v; rule skipped", cond.Field, err),
			})
			return false, fmt.Sprintf("skipped: malformed condition on %q", cond.Field), warnings
		}
		if !ok {
			return false, fmt.Sprintf("condition %s %s %v not satisfied", cond.Field, cond.Operator, cond.Value), warnings
		}
	}

	return true, "all conditions satisfied", warnings
}

// matchCondition checks one condition against a present attribute value.
func matchCondition(cond Condition, attr any, occurredAt time.Time) (bool, error) {
	switch cond.Operator {
	case OpEquals:
		return valuesEqual(attr, cond.Value), nil

	case OpGreaterThan, OpLessThan:
		a, ok := toFloat(attr)
		if !ok {
			return false, fmt.Errorf("attribute value %v is not numeric", attr)
		}
		b, ok := toFloat(cond.Value)
		if !ok {
			return false, fmt.Errorf("condition value %v is not numeric", cond.Value)
		}
		if cond.Operator == OpGreaterThan {
			return a > b, nil
		}
		return a < b, nil

	case OpIn:
		list, ok := toSlice(cond.Value)
		if !ok {
			return false, fmt.Errorf("condition value %v is not a list", cond.Value)
		}
		for _, item := range list {
			if valuesEqual(attr, item) {
				return true, nil
			}
		}
		return false, nil

	case OpWithinTimeWindow:
		window, err := toDuration(cond.Value)
		if err != nil {
			return false, err
		}
		at, err := toTime(attr)
		if err != nil {
			return false, err
		}
		delta := at.Sub(occurredAt)
		if delta < 0 {
			delta = -delta
		}
		return delta <= window, nil
	}

	return false, fmt.Errorf("unknown operator %q", cond.Operator)
}

// valuesEqual compares numerically when both sides are numbers, otherwise
// by string representation. Producers serialize attributes inconsistently
// (92 vs 92.0 vs "92"), so strict type equality would mis-match.
func valuesEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}

func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", d)
		}
		return parsed, nil
	case float64:
		return time.Duration(d) * time.Second, nil
	case int:
		return time.Duration(d) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid time window value %v", v)
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q", t)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp value %v", v)
}

func appendReason(base, extra string) string {
	if base == "" {
		return extra
	}
	return strings.Join([]string{base, extra}, "; ")
}
