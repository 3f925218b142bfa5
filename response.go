package gameserver_panel

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// Action is a control command understood by the game server API.
type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionStatus Action = "status"
)

// Status values reported by the API. Anything else is a transitional state.
const (
	StatusOn       = "ON"
	StatusOff      = "OFF"
	StatusStarting = "STARTING"
	StatusStopping = "STOPPING"
)

var errEmptyAction = errors.New("action is empty")

// ParseAction normalizes user input into an Action. Unknown actions are passed through.
func ParseAction(s string) (Action, error) {
	a := strings.ToLower(strings.TrimSpace(s))
	if a == "" {
		return "", errEmptyAction
	}
	return Action(a), nil
}

// ActionRequest is the request body sent to the control API.
type ActionRequest struct {
	Action Action `json:"action"`
}

// ServerStatus is the snapshot returned by every control API call.
type ServerStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	PublicIP string `json:"public_ip,omitempty"`
	Port     int    `json:"port,omitempty"`
	Password string `json:"password,omitempty"`
}

// IsOn reports whether the server is running.
func (s ServerStatus) IsOn() bool { return s.Status == StatusOn }

// IsOff reports whether the server is stopped.
func (s ServerStatus) IsOff() bool { return s.Status == StatusOff }

// Address returns "ip:port" when both are known.
func (s ServerStatus) Address() (string, bool) {
	if s.PublicIP == "" || s.Port == 0 {
		return "", false
	}
	return net.JoinHostPort(s.PublicIP, strconv.Itoa(s.Port)), true
}
