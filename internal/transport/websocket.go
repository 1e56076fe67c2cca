// Package transport adapts the chat transport contract to WebSocket.
// A connected front end sends events and receives prompts; the engine
// never sees anything transport-specific.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/reliefline/intake/internal/domain"
	"github.com/reliefline/intake/internal/flow"
	"github.com/reliefline/intake/internal/identity"
)

// WebSocketHandler upgrades /ws/chat connections and shuttles events
// and prompts over them.
type WebSocketHandler struct {
	engine        *flow.Engine
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a WebSocket chat handler.
func NewWebSocketHandler(engine *flow.Engine, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		engine:        engine,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// wsEvent is the inbound wire format.
type wsEvent struct {
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// wsPrompt is the outbound wire format.
type wsPrompt struct {
	EventID string   `json:"event_id"`
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		http.Error(w, "no user identity", http.StatusForbidden)
		return
	}
	slog.Info("WebSocket chat connection", "user_id", userID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "conversation ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, userID)
}

// readLoop processes events one at a time. Replies go back on the same
// connection, so each user's conversation stays strictly ordered.
func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		msgType, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || ctx.Err() != nil {
				slog.Debug("WebSocket closed", "user_id", userID)
				return
			}
			slog.Debug("WebSocket read error", "error", err, "user_id", userID)
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var raw wsEvent
		if err := json.Unmarshal(data, &raw); err != nil {
			if writeErr := h.writePrompt(ctx, ws, "", domain.Prompt{Text: "Message not understood."}); writeErr != nil {
				return
			}
			continue
		}

		kind := domain.EventKind(raw.Kind)
		switch kind {
		case domain.EventText, domain.EventContact, domain.EventCommand:
		default:
			kind = domain.EventText
		}

		ev := domain.Event{
			ID:      uuid.NewString(),
			UserID:  userID,
			Kind:    kind,
			Payload: raw.Payload,
		}
		prompt := h.engine.HandleEvent(ctx, ev)
		if err := h.writePrompt(ctx, ws, ev.ID, prompt); err != nil {
			slog.Debug("WebSocket write error", "error", err, "user_id", userID)
			return
		}
	}
}

func (h *WebSocketHandler) writePrompt(ctx context.Context, ws *websocket.Conn, eventID string, prompt domain.Prompt) error {
	data, err := json.Marshal(wsPrompt{EventID: eventID, Text: prompt.Text, Choices: prompt.Choices})
	if err != nil {
		return err
	}
	return ws.Write(ctx, websocket.MessageText, data)
}

// checkOrigin allows same-origin and the configured front-end origin.
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || origin == h.allowedOrigin
}
