package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RawEvent is the loosely-typed payload collaborators hand to the engine.
type RawEvent struct {
	ID           string         `json:"id,omitempty"`
	Type         string         `json:"type"`
	SubjectIDs   SubjectIDs     `json:"subject_ids"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	BasePriority string         `json:"base_priority,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at,omitempty"`
}

// Normalizer converts raw domain events into the canonical shape.
type Normalizer struct {
	now func() time.Time
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// NewNormalizer creates a normalizer with the real clock.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize validates a raw event and fills in the fields the engine
// requires: ID, occurrence time and a base priority derived from the event
// type when the producer did not set one.
func (n *Normalizer) Normalize(raw RawEvent) (NotificationEvent, error) {
	if raw.Type == "" {
		return NotificationEvent{}, fmt.Errorf("%w: type is required", ErrInvalidEvent)
	}

	typ := Type(raw.Type)
	base, known := knownTypes[typ]
	if !known {
		return NotificationEvent{}, fmt.Errorf("%w: %q", ErrUnknownEventType, raw.Type)
	}

	if raw.BasePriority != "" {
		parsed, err := ParsePriority(raw.BasePriority)
		if err != nil {
			return NotificationEvent{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
		}
		base = parsed
	}

	evt := NotificationEvent{
		ID:           raw.ID,
		Type:         typ,
		SubjectIDs:   raw.SubjectIDs,
		Attributes:   raw.Attributes,
		BasePriority: base,
		OccurredAt:   raw.OccurredAt,
	}
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = n.now()
	}

	return evt, nil
}
