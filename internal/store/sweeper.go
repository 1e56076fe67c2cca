package store

import (
	"context"
	"log/slog"
	"time"
)

// RiskPruner removes risk profiles that have gone inactive. Satisfied
// by the risk engine; declared here so the sweeper does not depend on
// that package.
type RiskPruner interface {
	PruneInactive(olderThan time.Duration, now time.Time) int
}

// StartSweeper runs a background goroutine that periodically evicts
// sessions and risk profiles inactive beyond the TTL. Eviction takes
// the same per-user lock as live event handling, so it never runs
// concurrently with an in-flight event for the same user.
func StartSweeper(ctx context.Context, sessions SessionStore, risk RiskPruner, locks *KeyLock, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				sweepOnce(sessions, risk, locks, ttl)
			case <-ctx.Done():
				slog.Info("Sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func sweepOnce(sessions SessionStore, risk RiskPruner, locks *KeyLock, ttl time.Duration) {
	now := time.Now()
	expired := sessions.ListExpired(ttl, now)
	if len(expired) == 0 {
		if risk != nil {
			if pruned := risk.PruneInactive(ttl, now); pruned > 0 {
				slog.Info("Sweeper pruned risk profiles", "count", pruned)
			}
		}
		return
	}

	slog.Info("Sweeper found expired sessions", "count", len(expired))

	evicted := 0
	for _, userID := range expired {
		locks.Lock(userID)
		// Re-check under the lock: the user may have acted between the
		// scan and the eviction.
		sess := sessions.Get(userID)
		if sess != nil && sess.ExpiredAfter(ttl, now) {
			sessions.Delete(userID)
			evicted++
			slog.Info("Sweeper evicted session",
				"user_id", userID,
				"form", sess.FormKind,
				"last_activity", sess.LastActivityAt)
		}
		locks.Unlock(userID)
	}

	if risk != nil {
		if pruned := risk.PruneInactive(ttl, now); pruned > 0 {
			slog.Info("Sweeper pruned risk profiles", "count", pruned)
		}
	}

	slog.Info("Sweeper pass completed", "evicted", evicted)
}

// SweepNow runs a single sweep pass synchronously. Exposed for tests
// and for operator-triggered cleanup.
func SweepNow(sessions SessionStore, risk RiskPruner, locks *KeyLock, ttl time.Duration) {
	sweepOnce(sessions, risk, locks, ttl)
}
