package websocket

import "github.com/prepdesk/prepdesk-backend/internal/session"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionReview   Action = "review"
	ActionClear    Action = "clear"
	ActionFinish   Action = "finish"
	ActionPing     Action = "ping"
)

// RequestPayload is the single client frame shape. Value rides with answer,
// Target with navigate; the other actions carry no fields.
type RequestPayload struct {
	Action Action `json:"action"`
	Value  string `json:"value,omitempty"`
	Target *int   `json:"target,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventState    Event = "state"
	EventFinished Event = "finished"
	EventPong     Event = "pong"
)

// StateResponse carries a full session snapshot, pushed after each action
// and on every countdown tick.
type StateResponse struct {
	Event    Event            `json:"event"`
	Snapshot session.Snapshot `json:"snapshot"`
}

// FinishedResponse is pushed once when the session reaches Finished.
type FinishedResponse struct {
	Event  Event `json:"event"`
	Graded bool  `json:"graded"`
	Score  int   `json:"score"`
	Total  int   `json:"total_marks"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
