// Package store provides the in-memory session and risk-profile stores
// plus the per-user serialization primitives the engine relies on.
package store

import (
	"time"

	"github.com/reliefline/intake/internal/domain"
)

// SessionStore holds one conversation session per user identity.
type SessionStore interface {
	// Get retrieves the session for a user, or nil if none exists.
	Get(userID string) *domain.Session

	// Put creates or replaces the session for a user.
	Put(session *domain.Session)

	// Delete removes the session for a user.
	Delete(userID string)

	// Touch updates the session's last-activity time. Reports whether
	// a session existed.
	Touch(userID string, now time.Time) bool

	// ListExpired returns the user IDs of sessions inactive longer
	// than the TTL.
	ListExpired(ttl time.Duration, now time.Time) []string

	// Len returns the number of live sessions.
	Len() int
}

// Sessions is the sharded in-memory SessionStore.
type Sessions struct {
	shards *Shards[*domain.Session]
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{shards: NewShards[*domain.Session]()}
}

// Get retrieves the session for a user, or nil if none exists.
func (s *Sessions) Get(userID string) *domain.Session {
	sess, _ := s.shards.Get(userID)
	return sess
}

// Put creates or replaces the session for a user.
func (s *Sessions) Put(session *domain.Session) {
	s.shards.Put(session.UserID, session)
}

// Delete removes the session for a user.
func (s *Sessions) Delete(userID string) {
	s.shards.Delete(userID)
}

// Touch updates the session's last-activity time under the shard's
// write lock. LastActivityAt is written only here, so ListExpired may
// read it under the shard lock without racing live event handling.
func (s *Sessions) Touch(userID string, now time.Time) bool {
	return s.shards.Mutate(userID, func(sess *domain.Session) {
		sess.LastActivityAt = now
	})
}

// ListExpired returns user IDs of sessions inactive longer than ttl.
func (s *Sessions) ListExpired(ttl time.Duration, now time.Time) []string {
	var expired []string
	s.shards.Range(func(userID string, sess *domain.Session) bool {
		if sess.ExpiredAfter(ttl, now) {
			expired = append(expired, userID)
		}
		return true
	})
	return expired
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	return s.shards.Len()
}
