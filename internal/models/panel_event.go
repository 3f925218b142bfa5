package models

import "time"

// Panel event types.
const (
	EventStatus        = "STATUS"
	EventMessage       = "MESSAGE"
	EventAction        = "ACTION"
	EventPollStopped   = "POLL_STOPPED"
	EventAuthChallenge = "AUTH_CHALLENGE"
	EventAuthFailure   = "AUTH_FAILURE"
)

// PanelEvent is a single entry of a panel session's event log.
type PanelEvent struct {
	EventID     string    `json:"event_id"`
	SessionID   string    `json:"session_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`    // STATUS | MESSAGE | ACTION | POLL_STOPPED | AUTH_CHALLENGE | AUTH_FAILURE
	Description string    `json:"message"` // human-readable
	Metadata    any       `json:"data,omitempty"`
}
