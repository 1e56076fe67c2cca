//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/reliefline/intake/internal/domain"
	"github.com/reliefline/intake/internal/flow"
	"github.com/reliefline/intake/internal/identity"
)

// Handler serves the inbound chat-event endpoint.
type Handler struct {
	engine *flow.Engine
}

// NewHandler creates the events handler.
func NewHandler(engine *flow.Engine) *Handler {
	return &Handler{engine: engine}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes mounts the event endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/events", h.handleEvent)
}

type eventRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

type eventResponse struct {
	EventID string        `json:"event_id"`
	Prompt  domain.Prompt `json:"prompt"`
}

// handleEvent accepts one inbound user event and replies with the
// engine's prompt. The user ID comes from the payload when the
// fronting transport supplies one, otherwise from the anonymous
// device identity.
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	kind := domain.EventKind(req.Kind)
	switch kind {
	case domain.EventText, domain.EventContact, domain.EventCommand:
	case "":
		kind = domain.EventText
	default:
		Error(w, http.StatusBadRequest, "unknown event kind")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = identity.UserIDFromContext(r.Context())
	}
	if userID == "" {
		Error(w, http.StatusBadRequest, "no user identity")
		return
	}

	ev := domain.Event{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Payload: req.Payload,
	}

	slog.Info("Inbound event",
		"event_id", ev.ID,
		"user_id", ev.UserID,
		"username", identity.UsernameFromContext(r.Context()),
		"kind", ev.Kind,
		"ip", identity.IPFromRequest(r))

	prompt := h.engine.HandleEvent(r.Context(), ev)
	JSON(w, http.StatusOK, eventResponse{EventID: ev.ID, Prompt: prompt})
}
