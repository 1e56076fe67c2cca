package domain

import (
	"time"
)

// Action names the user behaviors the risk engine counts.
type Action string

const (
	ActionStart            Action = "start"
	ActionCancel           Action = "cancel"
	ActionMessage          Action = "message"
	ActionSubmitAttempt    Action = "submit_attempt"
	ActionValidationFailed Action = "validation_failed"
)

// RiskProfile accumulates per-user behavioral counters and block
// status. Its lifecycle is independent of the session: it survives
// session resets and is pruned by the same inactivity sweep.
type RiskProfile struct {
	UserID       string           `json:"user_id"`
	ActionCounts map[Action]int64 `json:"action_counts"`
	FirstSeenAt  time.Time        `json:"first_seen_at"`
	LastSeenAt   time.Time        `json:"last_seen_at"`
	Blocked      bool             `json:"blocked"`
	BlockReason  string           `json:"block_reason,omitempty"`
	BlockedUntil time.Time        `json:"blocked_until,omitempty"`
}

// NewRiskProfile returns an empty profile for the user.
func NewRiskProfile(userID string, now time.Time) *RiskProfile {
	return &RiskProfile{
		UserID:       userID,
		ActionCounts: make(map[Action]int64),
		FirstSeenAt:  now,
		LastSeenAt:   now,
	}
}

// Count returns the accumulated count for an action.
func (p *RiskProfile) Count(a Action) int64 {
	return p.ActionCounts[a]
}

// Total returns the sum of all action counts.
func (p *RiskProfile) Total() int64 {
	var total int64
	for _, n := range p.ActionCounts {
		total += n
	}
	return total
}

// BlockExpired reports whether a block is set but already past.
func (p *RiskProfile) BlockExpired(now time.Time) bool {
	return p.Blocked && !p.BlockedUntil.IsZero() && now.After(p.BlockedUntil)
}
