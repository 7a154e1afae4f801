package rules

import (
	"sort"
)

// Snapshot is an immutable, ordered view of the rule set used for
// evaluation. Building a snapshot copies and sorts the rules so later
// storage writes never affect in-flight evaluations.
type Snapshot struct {
	rules []Rule
}

// NewSnapshot copies the given rules into a deterministic evaluation order:
// ascending Order, ties broken by Name then ID so two snapshots built from
// the same rule set always evaluate identically.
func NewSnapshot(rs []Rule) *Snapshot {
	cp := make([]Rule, len(rs))
	copy(cp, rs)

	sort.SliceStable(cp, func(i, j int) bool {
		if cp[i].Order != cp[j].Order {
			return cp[i].Order < cp[j].Order
		}
		if cp[i].Name != cp[j].Name {
			return cp[i].Name < cp[j].Name
		}
		return cp[i].ID < cp[j].ID
	})

	return &Snapshot{rules: cp}
}

// Rules returns the ordered rules. The returned slice is a copy.
func (s *Snapshot) Rules() []Rule {
	cp := make([]Rule, len(s.rules))
	copy(cp, s.rules)
	return cp
}

// Len returns the number of rules in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.rules)
}
