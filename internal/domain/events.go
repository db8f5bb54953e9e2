package domain

// EventType distinguishes row updates from room deletion on the realtime
// channel. Subscribers re-derive everything from the latest full row; the
// engine never publishes diffs.
type EventType string

const (
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// SessionEvent is the realtime channel payload: the full replacement row on
// UPDATE, no row on DELETE.
type SessionEvent struct {
	Type      EventType `json:"eventType"`
	SessionID string    `json:"sessionId"`
	New       *Session  `json:"new,omitempty"`
}
