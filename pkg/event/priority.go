package event

import (
	"encoding/json"
	"fmt"
)

// Priority represents the ordered severity of a notification.
// Values form a strict total order: low < medium < high < critical.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      "low",
	PriorityMedium:   "medium",
	PriorityHigh:     "high",
	PriorityCritical: "critical",
}

// Valid checks if the priority is within the defined range.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// Clamp bounds the priority to the valid range.
func (p Priority) Clamp() Priority {
	if p < PriorityLow {
		return PriorityLow
	}
	if p > PriorityCritical {
		return PriorityCritical
	}
	return p
}

// Step moves the priority by n levels, clamped to the valid range.
func (p Priority) Step(n int) Priority {
	return Priority(int(p) + n).Clamp()
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// ParsePriority converts a priority name into its ordered value.
func ParsePriority(s string) (Priority, error) {
	for p, name := range priorityNames {
		if name == s {
			return p, nil
		}
	}
	return PriorityLow, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

// MarshalJSON encodes the priority as its name so that API responses and
// stored rows stay readable.
func (p Priority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
