package prefs

// ScopeType distinguishes a user's global preference row from job-scoped
// overrides.
type ScopeType string

const (
	ScopeGlobal ScopeType = "global"
	ScopeJob    ScopeType = "job"
)

// Scope identifies which preference row an operation targets. It is an
// explicit tagged variant rather than a nullable job ID so call sites can't
// accidentally confuse "global" with "job with empty ID".
type Scope struct {
	Type  ScopeType `json:"type"`
	JobID string    `json:"job_id,omitempty"`
}

// GlobalScope returns the scope of the user's global preference row.
func GlobalScope() Scope {
	return Scope{Type: ScopeGlobal}
}

// JobScope returns the scope of a single job's preference overrides.
func JobScope(jobID string) Scope {
	return Scope{Type: ScopeJob, JobID: jobID}
}

// IsJob reports whether the scope targets a specific job.
func (s Scope) IsJob() bool {
	return s.Type == ScopeJob && s.JobID != ""
}
