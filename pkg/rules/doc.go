// Package rules implements the priority rule model and the evaluation
// engine that turns a notification event plus an immutable rule snapshot
// into a final priority with full diagnostics.
//
// Evaluation is pure and deterministic: the same event and snapshot always
// produce the same result, so many events can be evaluated concurrently
// against one shared snapshot. Malformed rules never abort evaluation; they
// are skipped and surfaced as warnings so the rule-authoring sandbox can
// render them alongside successful steps.
//
// # Basic Usage
//
//	snap := rules.NewSnapshot([]rules.Rule{urgentDept, staleMatch})
//	result := rules.Evaluate(evt, snap)
//	// result.FinalPriority, result.AppliedRules, result.Conflicts, ...
//
// Rule storage is pluggable: MemoryStorage for development and tests,
// PGStorage for production. Rules are never hard-deleted; administrators
// deactivate them via the Active flag.
package rules
