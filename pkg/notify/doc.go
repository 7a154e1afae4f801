// Package notify wires the engine together: event normalization, rule
// evaluation, preference resolution and dispatch behind one facade, plus an
// HTTP surface for producers, the rule-authoring sandbox, preference
// administration and provider status webhooks.
package notify
