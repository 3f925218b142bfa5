package models

import (
	"time"

	gp "gameserver_panel"
)

// StatusSnapshot is the last server status a panel session has seen.
type StatusSnapshot struct {
	SessionID string          `json:"session_id"`
	Status    gp.ServerStatus `json:"status"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PanelSession describes a signed-in (or challenged) panel session.
type PanelSession struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Provider  string    `json:"provider"`
	Pending   bool      `json:"pending_challenge"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
