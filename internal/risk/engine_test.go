package risk

import (
	"testing"
	"time"

	"github.com/reliefline/intake/internal/domain"
)

// fakeClock advances only when told to, so rate math is deterministic.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine() (*Engine, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewWithClock(clock.Now), clock
}

func TestScoreZeroForUnseenUser(t *testing.T) {
	e, _ := newTestEngine()
	if got := e.Score("nobody"); got != 0 {
		t.Errorf("Score = %d, want 0", got)
	}
}

func TestScoreZeroForEmptyProfile(t *testing.T) {
	e, _ := newTestEngine()
	// Gate creates the profile without recording an action.
	if allowed, _ := e.Gate("u1"); !allowed {
		t.Fatal("fresh user gated")
	}
	if got := e.Score("u1"); got != 0 {
		t.Errorf("Score = %d, want 0", got)
	}
}

func TestScoreManySubmits(t *testing.T) {
	e, clock := newTestEngine()
	for i := 0; i < 6; i++ {
		e.Observe("u1", domain.ActionSubmitAttempt)
	}
	// Spread the actions out so the rate factors stay quiet.
	clock.Advance(30 * time.Minute)

	if got := e.Score("u1"); got < 25 {
		t.Errorf("Score = %d, want >= 25", got)
	}
}

func TestScoreRateBonusesStack(t *testing.T) {
	e, clock := newTestEngine()
	for i := 0; i < 12; i++ {
		e.Observe("u1", domain.ActionMessage)
	}
	clock.Advance(time.Minute) // 12 actions in 1 minute

	got := e.Score("u1")
	if got != weightHighRate+weightVeryHighRate {
		t.Errorf("Score = %d, want %d", got, weightHighRate+weightVeryHighRate)
	}
}

func TestScoreFailureRatio(t *testing.T) {
	e, clock := newTestEngine()
	for i := 0; i < 3; i++ {
		e.Observe("u1", domain.ActionValidationFailed)
	}
	e.Observe("u1", domain.ActionMessage)
	clock.Advance(time.Hour)

	if got := e.Score("u1"); got != weightFailureRatio {
		t.Errorf("Score = %d, want %d", got, weightFailureRatio)
	}
}

func TestScoreSaturates(t *testing.T) {
	e, clock := newTestEngine()
	for i := 0; i < 11; i++ {
		e.Observe("u1", domain.ActionStart)
	}
	for i := 0; i < 40; i++ {
		e.Observe("u1", domain.ActionValidationFailed)
	}
	for i := 0; i < 30; i++ {
		e.Observe("u1", domain.ActionCancel)
	}
	for i := 0; i < 6; i++ {
		e.Observe("u1", domain.ActionSubmitAttempt)
	}
	clock.Advance(time.Minute)

	if got := e.Score("u1"); got != maxScore {
		t.Errorf("Score = %d, want saturation at %d", got, maxScore)
	}
}

func TestBlockAndGate(t *testing.T) {
	e, clock := newTestEngine()
	e.Block("u1", "operator decision", 30*time.Minute)

	allowed, remaining := e.Gate("u1")
	if allowed {
		t.Fatal("blocked user allowed through gate")
	}
	if remaining <= 0 || remaining > 30*time.Minute {
		t.Errorf("remaining = %v, want (0, 30m]", remaining)
	}

	// Lazy expiry: reading past blockedUntil heals the profile.
	clock.Advance(31 * time.Minute)
	allowed, _ = e.Gate("u1")
	if !allowed {
		t.Error("expired block still refusing events")
	}
	profile, _ := e.Profile("u1")
	if profile.Blocked {
		t.Error("profile still marked blocked after expiry")
	}
}

func TestUnblockLiftsImmediately(t *testing.T) {
	e, _ := newTestEngine()
	e.Block("u1", "spam", time.Hour)
	e.Unblock("u1")
	if allowed, _ := e.Gate("u1"); !allowed {
		t.Error("unblocked user still gated")
	}
}

func TestProfileCopyIsDetached(t *testing.T) {
	e, _ := newTestEngine()
	e.Observe("u1", domain.ActionStart)
	profile, _ := e.Profile("u1")
	profile.ActionCounts[domain.ActionStart] = 99

	fresh, _ := e.Profile("u1")
	if fresh.Count(domain.ActionStart) != 1 {
		t.Error("Profile returned shared counter map")
	}
}

func TestPruneInactiveKeepsBlocked(t *testing.T) {
	e, clock := newTestEngine()
	e.Observe("idle-user", domain.ActionMessage)
	e.Observe("blocked-user", domain.ActionMessage)
	e.Block("blocked-user", "abuse", 48*time.Hour)
	e.Observe("fresh-user", domain.ActionMessage)

	clock.Advance(25 * time.Hour)
	e.Observe("fresh-user", domain.ActionMessage)

	pruned := e.PruneInactive(24*time.Hour, clock.Now())
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}
	if p, _ := e.Profile("idle-user"); p != nil {
		t.Error("idle profile survived prune")
	}
	if p, _ := e.Profile("blocked-user"); p == nil {
		t.Error("blocked profile pruned while block active")
	}
	if p, _ := e.Profile("fresh-user"); p == nil {
		t.Error("fresh profile pruned")
	}
}
