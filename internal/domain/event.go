package domain

// EventKind classifies an inbound chat event.
type EventKind string

const (
	EventText    EventKind = "text"
	EventContact EventKind = "contact"
	EventCommand EventKind = "command"
)

// Event is one inbound user event delivered by the chat transport.
// The engine depends only on this contract, never on transport-specific
// formatting.
type Event struct {
	ID      string    `json:"id"`
	UserID  string    `json:"user_id"`
	Kind    EventKind `json:"kind"`
	Payload string    `json:"payload"`
}

// Prompt is one outbound message handed back to the chat transport.
type Prompt struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices,omitempty"`
}
