// Package domain contains core domain types for the intake engine.
package domain

import (
	"time"
)

// FormKind identifies which intake flow a session is collecting.
type FormKind string

const (
	FormNone        FormKind = "none"
	FormApplication FormKind = "job_application"
	FormComplaint   FormKind = "complaint"
)

// State identifies where a session is within its flow.
// Field-collection states are derived from the form definition via
// AwaitingState, so the set of valid states is data-driven.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
)

// AwaitingState returns the state in which the engine waits for the
// given field's value.
func AwaitingState(field string) State {
	return State("awaiting_" + field)
}

// FieldValue is one collected answer. Sessions keep answers as an
// ordered slice so the collection order survives into the submission.
type FieldValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Session holds the in-progress conversation state for one user.
// Sessions are mutated exclusively by the flow engine while holding the
// store's per-user lock, except LastActivityAt, which is written only
// through the store so the sweeper's expiry scan can read it under the
// shard lock.
type Session struct {
	UserID         string       `json:"user_id"`
	FormKind       FormKind     `json:"form_kind"`
	State          State        `json:"state"`
	Fields         []FieldValue `json:"fields"`
	AttemptCount   int          `json:"attempt_count"`
	CreatedAt      time.Time    `json:"created_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
}

// NewSession returns an idle session for the user.
func NewSession(userID string, now time.Time) *Session {
	return &Session{
		UserID:         userID,
		FormKind:       FormNone,
		State:          StateIdle,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// SetField stores a validated value under the field name, replacing a
// previous answer for the same field if one exists.
func (s *Session) SetField(name, value string) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			s.Fields[i].Value = value
			return
		}
	}
	s.Fields = append(s.Fields, FieldValue{Name: name, Value: value})
}

// Field returns the collected value for a field name.
func (s *Session) Field(name string) (string, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Reset returns the session to idle and drops all collected fields.
// The activity timestamp is untouched; the store records activity.
func (s *Session) Reset() {
	s.FormKind = FormNone
	s.State = StateIdle
	s.Fields = nil
	s.AttemptCount = 0
}

// Idle reports whether no flow is in progress.
func (s *Session) Idle() bool {
	return s.State == StateIdle
}

// ExpiredAfter reports whether the session has been inactive longer
// than the TTL.
func (s *Session) ExpiredAfter(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastActivityAt) > ttl
}
