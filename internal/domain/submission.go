package domain

import (
	"time"
)

// SubmissionRecord is an immutable snapshot of a completed session,
// handed to the submission pipeline. It is not stored beyond the
// pipeline's own retry loop; the journal keeps the audit trail.
type SubmissionRecord struct {
	ID          string       `json:"id"`
	FormKind    FormKind     `json:"form_kind"`
	UserID      string       `json:"user_id"`
	Fields      []FieldValue `json:"fields"`
	SubmittedAt time.Time    `json:"submitted_at"`
}

// SubmissionResult is the pipeline's terminal outcome for one record.
// It never exposes retry internals.
type SubmissionResult struct {
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}
