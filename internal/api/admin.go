package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reliefline/intake/internal/pipeline"
	"github.com/reliefline/intake/internal/risk"
)

// DeliveryReader exposes the journal to the operator surface.
type DeliveryReader interface {
	Recent(ctx context.Context, limit int) ([]pipeline.DeliveryAttempt, error)
}

// AdminHandler is the operator moderation surface: block/unblock users,
// inspect risk profiles, and review recent deliveries. It sits outside
// the conversational loop and is expected to be reverse-proxied behind
// operator auth.
type AdminHandler struct {
	risk    *risk.Engine
	journal DeliveryReader
}

// NewAdminHandler creates the operator handler. journal may be nil.
func NewAdminHandler(riskEngine *risk.Engine, journal DeliveryReader) *AdminHandler {
	return &AdminHandler{risk: riskEngine, journal: journal}
}

// RegisterRoutes mounts the operator endpoints.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/users/{userID}/block", h.blockUser)
		r.Delete("/users/{userID}/block", h.unblockUser)
		r.Get("/users/{userID}/risk", h.riskProfile)
		r.Get("/deliveries", h.deliveries)
	})
}

type blockRequest struct {
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (h *AdminHandler) blockUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		Error(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid block payload")
		return
	}
	if req.DurationMinutes <= 0 {
		Error(w, http.StatusBadRequest, "duration_minutes must be positive")
		return
	}
	if req.Reason == "" {
		req.Reason = "operator decision"
	}

	h.risk.Block(userID, req.Reason, time.Duration(req.DurationMinutes)*time.Minute)
	JSON(w, http.StatusOK, map[string]string{"status": "blocked"})
}

func (h *AdminHandler) unblockUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		Error(w, http.StatusBadRequest, "missing user id")
		return
	}
	h.risk.Unblock(userID)
	JSON(w, http.StatusOK, map[string]string{"status": "unblocked"})
}

func (h *AdminHandler) riskProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	profile, score := h.risk.Profile(userID)
	if profile == nil {
		Error(w, http.StatusNotFound, "user never seen")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"profile": profile,
		"score":   score,
	})
}

func (h *AdminHandler) deliveries(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		Error(w, http.StatusServiceUnavailable, "journal disabled")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	attempts, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}
