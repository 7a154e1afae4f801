package event

import (
	"time"
)

// Type identifies the kind of domain action that produced an event.
type Type string

const (
	TypeMatchCreated        Type = "match_created"
	TypeInterviewReminder   Type = "interview_reminder"
	TypeCampaignResult      Type = "campaign_result"
	TypeComplianceAlert     Type = "compliance_alert"
	TypeApplicationReceived Type = "application_received"
	TypeCampaignLaunched    Type = "campaign_launched"
)

// knownTypes holds the canonical type set with the base priority each type
// carries when the producer does not set one explicitly.
var knownTypes = map[Type]Priority{
	TypeMatchCreated:        PriorityMedium,
	TypeInterviewReminder:   PriorityHigh,
	TypeCampaignResult:      PriorityLow,
	TypeComplianceAlert:     PriorityCritical,
	TypeApplicationReceived: PriorityMedium,
	TypeCampaignLaunched:    PriorityLow,
}

// Valid checks if the type is part of the canonical type set.
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// SubjectIDs carries the optional domain identifiers an event refers to.
type SubjectIDs struct {
	CandidateID string `json:"candidate_id,omitempty"`
	JobID       string `json:"job_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	CampaignID  string `json:"campaign_id,omitempty"`
}

// NotificationEvent is the canonical event shape the engine consumes.
type NotificationEvent struct {
	ID           string         `json:"id"`
	Type         Type           `json:"type"`
	SubjectIDs   SubjectIDs     `json:"subject_ids"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	BasePriority Priority       `json:"base_priority"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Attr returns a named attribute and whether it is present.
func (e NotificationEvent) Attr(field string) (any, bool) {
	if e.Attributes == nil {
		return nil, false
	}
	v, ok := e.Attributes[field]
	return v, ok
}

// Score returns the numeric score attribute if the event carries one.
// Producers serialize numbers inconsistently, so both float64 and int are
// accepted.
func (e NotificationEvent) Score() (float64, bool) {
	return e.NumericAttr("score")
}

// NumericAttr reads an attribute as float64, coercing integer kinds.
func (e NotificationEvent) NumericAttr(field string) (float64, bool) {
	v, ok := e.Attr(field)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// CanonicalAttributes is the attribute schema events are expected to use.
// Rule conditions referencing fields outside this set are flagged as
// authoring mistakes by the evaluation engine.
var CanonicalAttributes = map[string]struct{}{
	"score":         {},
	"previousScore": {},
	"stage":         {},
	"department":    {},
	"jobDepartment": {},
	"jobTitle":      {},
	"candidateName": {},
	"source":        {},
	"occurredAt":    {},
	"responseRate":  {},
}

// IsCanonicalAttribute reports whether a rule condition field exists in the
// canonical event schema.
func IsCanonicalAttribute(field string) bool {
	_, ok := CanonicalAttributes[field]
	return ok
}
