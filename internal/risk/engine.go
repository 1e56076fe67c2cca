// Package risk accumulates per-user behavioral counters, derives a
// risk score, and manages time-boxed blocks.
//
// The score is informational: it never blocks anyone by itself.
// Blocking is an explicit decision made through Block, typically by an
// operator or a policy reacting to Suspicious signals.
package risk

import (
	"log/slog"
	"sync"
	"time"

	"github.com/reliefline/intake/internal/domain"
	"github.com/reliefline/intake/internal/store"
)

// Score weights. Rate bonuses stack: a user above the high-rate bar
// collects both rate contributions.
const (
	weightHighRate      = 30 // actions per minute > 5
	weightVeryHighRate  = 40 // actions per minute > 10, on top of weightHighRate
	weightFailureRatio  = 25 // validation failures / total > 0.5
	weightCancelRatio   = 20 // cancels / total > 0.3
	weightManyStarts    = 15 // start count > 10
	weightManySubmits   = 25 // submit_attempt count > 5
	maxScore            = 100
	suspiciousThreshold = 60
)

// Engine tracks risk profiles keyed by user identity. Profiles live in
// a sharded map; each profile carries its own mutex because counters
// are touched on every event for that user.
type Engine struct {
	profiles *store.Shards[*profileEntry]
	now      func() time.Time
}

type profileEntry struct {
	mu      sync.Mutex
	profile *domain.RiskProfile
}

// New creates an empty risk engine.
func New() *Engine {
	return &Engine{
		profiles: store.NewShards[*profileEntry](),
		now:      time.Now,
	}
}

// NewWithClock creates an engine with an injected clock for tests.
func NewWithClock(now func() time.Time) *Engine {
	e := New()
	e.now = now
	return e
}

func (e *Engine) entry(userID string) *profileEntry {
	return e.profiles.GetOrCreate(userID, func() *profileEntry {
		return &profileEntry{profile: domain.NewRiskProfile(userID, e.now())}
	})
}

// Observe records one named action for the user, creating the profile
// on first sight.
func (e *Engine) Observe(userID string, action domain.Action) {
	ent := e.entry(userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()
	ent.profile.ActionCounts[action]++
	ent.profile.LastSeenAt = e.now()
}

// Gate decides whether an event from the user may proceed. A blocked
// user is refused with the minutes remaining; an expired block heals
// itself as a side effect of the read.
func (e *Engine) Gate(userID string) (allowed bool, remaining time.Duration) {
	ent := e.entry(userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()

	p := ent.profile
	now := e.now()
	if p.BlockExpired(now) {
		p.Blocked = false
		p.BlockReason = ""
		p.BlockedUntil = time.Time{}
		slog.Info("Block expired, unblocking", "user_id", userID)
	}
	if p.Blocked {
		return false, p.BlockedUntil.Sub(now)
	}
	return true, 0
}

// Score computes the saturating 0-100 risk score for the user. A user
// with no profile scores zero.
func (e *Engine) Score(userID string) int {
	ent, present := e.profiles.Get(userID)
	if !present {
		return 0
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	return scoreProfile(ent.profile, e.now())
}

func scoreProfile(p *domain.RiskProfile, now time.Time) int {
	total := p.Total()
	if total == 0 {
		return 0
	}

	score := 0
	minutes := now.Sub(p.FirstSeenAt).Minutes()
	if minutes < 1 {
		minutes = 1
	}
	rate := float64(total) / minutes
	if rate > 5 {
		score += weightHighRate
	}
	if rate > 10 {
		score += weightVeryHighRate
	}
	if float64(p.Count(domain.ActionValidationFailed))/float64(total) > 0.5 {
		score += weightFailureRatio
	}
	if float64(p.Count(domain.ActionCancel))/float64(total) > 0.3 {
		score += weightCancelRatio
	}
	if p.Count(domain.ActionStart) > 10 {
		score += weightManyStarts
	}
	if p.Count(domain.ActionSubmitAttempt) > 5 {
		score += weightManySubmits
	}
	if score > maxScore {
		score = maxScore
	}
	return score
}

// Suspicious reports whether the user's score crosses the alerting
// threshold. Callers decide what to do with the signal; the engine
// never blocks on its own.
func (e *Engine) Suspicious(userID string) bool {
	return e.Score(userID) >= suspiciousThreshold
}

// Block refuses all events from the user for the given duration.
func (e *Engine) Block(userID, reason string, d time.Duration) {
	ent := e.entry(userID)
	ent.mu.Lock()
	defer ent.mu.Unlock()

	p := ent.profile
	p.Blocked = true
	p.BlockReason = reason
	p.BlockedUntil = e.now().Add(d)
	slog.Warn("User blocked", "user_id", userID, "reason", reason, "until", p.BlockedUntil)
}

// Unblock lifts a block immediately.
func (e *Engine) Unblock(userID string) {
	ent, present := e.profiles.Get(userID)
	if !present {
		return
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	p := ent.profile
	p.Blocked = false
	p.BlockReason = ""
	p.BlockedUntil = time.Time{}
	slog.Info("User unblocked", "user_id", userID)
}

// Profile returns a copy of the user's profile with the current score,
// or nil if the user has never been seen. Expired blocks heal here
// too, since this is a read.
func (e *Engine) Profile(userID string) (*domain.RiskProfile, int) {
	ent, present := e.profiles.Get(userID)
	if !present {
		return nil, 0
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()

	p := ent.profile
	if p.BlockExpired(e.now()) {
		p.Blocked = false
		p.BlockReason = ""
		p.BlockedUntil = time.Time{}
	}

	cp := *p
	cp.ActionCounts = make(map[domain.Action]int64, len(p.ActionCounts))
	for k, v := range p.ActionCounts {
		cp.ActionCounts[k] = v
	}
	return &cp, scoreProfile(p, e.now())
}

// PruneInactive removes profiles idle longer than olderThan, except
// currently blocked ones: a block must outlive inactivity. Returns the
// number pruned. Satisfies store.RiskPruner.
func (e *Engine) PruneInactive(olderThan time.Duration, now time.Time) int {
	var stale []string
	e.profiles.Range(func(userID string, ent *profileEntry) bool {
		ent.mu.Lock()
		idle := now.Sub(ent.profile.LastSeenAt) > olderThan
		blocked := ent.profile.Blocked && now.Before(ent.profile.BlockedUntil)
		ent.mu.Unlock()
		if idle && !blocked {
			stale = append(stale, userID)
		}
		return true
	})
	for _, userID := range stale {
		e.profiles.Delete(userID)
	}
	return len(stale)
}
