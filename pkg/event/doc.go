// Package event defines the canonical notification event consumed by the
// priority engine, plus a normalizer that converts heterogeneous domain
// events (candidate matches, interview reminders, campaign results,
// compliance alerts) into that shape.
//
// Events are ephemeral: they are produced by a collaborator, evaluated once
// and never persisted on their own. Only delivery attempts referencing an
// event ID survive in the ledger.
//
// # Basic Usage
//
//	n := event.NewNormalizer()
//	evt, err := n.Normalize(event.RawEvent{
//	    Type: "match_created",
//	    SubjectIDs: event.SubjectIDs{CandidateID: "cand-1", JobID: "job-1", UserID: "usr-1"},
//	    Attributes: map[string]any{"score": 92.0, "jobDepartment": "Engineering"},
//	})
package event
