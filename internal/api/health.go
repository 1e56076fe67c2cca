package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// JournalProbe is the slice of the journal the health surface needs:
// connectivity plus the recent failure count that masked complaint
// deliveries would otherwise hide.
type JournalProbe interface {
	Ping(ctx context.Context) error
	FailedSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// SinkProber probes the external record sink.
type SinkProber interface {
	Healthy(ctx context.Context) error
}

// HealthHandler reports dependency health. The router-level heartbeat
// on /health answers liveness; this one answers readiness.
type HealthHandler struct {
	journal JournalProbe
	sink    SinkProber
}

// NewHealthHandler creates the health handler. Either dependency may
// be nil.
func NewHealthHandler(journal JournalProbe, sink SinkProber) *HealthHandler {
	return &HealthHandler{journal: journal, sink: sink}
}

// RegisterHealth mounts the readiness endpoint.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.health)
}

func (h *HealthHandler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	var recentFailures int64

	if h.journal != nil {
		if err := h.journal.Ping(ctx); err != nil {
			checks["journal"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["journal"] = "ok"
			// Masked complaint failures only surface here and in the
			// admin deliveries listing.
			if n, err := h.journal.FailedSince(ctx, time.Now().Add(-time.Hour)); err == nil {
				recentFailures = n
			}
		}
	}
	if h.sink != nil {
		if err := h.sink.Healthy(ctx); err != nil {
			// A sick sink degrades delivery but the engine still
			// collects; report it without failing readiness.
			checks["sink"] = err.Error()
		} else {
			checks["sink"] = "ok"
		}
	}

	JSON(w, status, map[string]interface{}{
		"status":                    http.StatusText(status),
		"checks":                    checks,
		"failed_deliveries_last_1h": recentFailures,
	})
}
