// Package controlapitest provides an in-process fake of the game server control API.
package controlapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	panel "gameserver_panel"
)

// Messages returned by the deployed API.
const (
	MsgOn               = "Servidor ligado"
	MsgOff              = "Servidor desligado"
	MsgStarting         = "Iniciando servidor"
	MsgStopping         = "Desligando servidor"
	DefaultGamePort     = 2456
	DefaultServerIP     = "18.228.10.20"
	DefaultServerSecret = "hunter2"
)

// Request is one request observed by the fake.
type Request struct {
	Action        panel.Action
	Authorization string
	ContentType   string
}

// Server is an httptest server speaking the control API wire protocol.
// Status responses are served from a script; the last entry repeats.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	token    string
	script   []panel.ServerStatus
	actions  map[panel.Action]panel.ServerStatus
	failures []int
	requests []Request
}

// NewServer starts a fake that accepts only the given Authorization value.
// The server starts in the OFF state.
func NewServer(token string) *Server {
	s := &Server{
		token:  token,
		script: []panel.ServerStatus{Off()},
		actions: map[panel.Action]panel.ServerStatus{
			panel.ActionStart: {Status: panel.StatusStarting, Message: MsgStarting},
			panel.ActionStop:  {Status: panel.StatusStopping, Message: MsgStopping},
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// On is the status snapshot of a running server.
func On() panel.ServerStatus {
	return panel.ServerStatus{
		Status:   panel.StatusOn,
		Message:  MsgOn,
		PublicIP: DefaultServerIP,
		Port:     DefaultGamePort,
		Password: DefaultServerSecret,
	}
}

// Off is the status snapshot of a stopped server.
func Off() panel.ServerStatus {
	return panel.ServerStatus{Status: panel.StatusOff, Message: MsgOff}
}

// ScriptStatus replaces the queue of responses to "status".
func (s *Server) ScriptStatus(sts ...panel.ServerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append([]panel.ServerStatus(nil), sts...)
}

// RespondAction sets the response for a non-status action.
func (s *Server) RespondAction(a panel.Action, st panel.ServerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[a] = st
}

// FailNext makes the next len(codes) requests answer with the given HTTP status codes.
func (s *Server) FailNext(codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, codes...)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests carried the given action.
func (s *Server) Count(a panel.Action) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Action == a {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method Not Allowed"})
		return
	}

	var req panel.ActionRequest
	decodeErr := json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Action:        req.Action,
		Authorization: r.Header.Get("Authorization"),
		ContentType:   r.Header.Get("Content-Type"),
	})
	if len(s.failures) > 0 {
		code := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		writeJSON(w, code, "Error: injected failure")
		return
	}
	if r.Header.Get("Authorization") != s.token {
		s.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}
	if decodeErr != nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}

	switch req.Action {
	case panel.ActionStatus:
		st := s.script[0]
		if len(s.script) > 1 {
			s.script = s.script[1:]
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, st)
	default:
		st, ok := s.actions[req.Action]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusBadRequest, "Invalid action")
			return
		}
		code := http.StatusAccepted
		if st.Status == panel.StatusOn || st.Status == panel.StatusOff {
			code = http.StatusOK
		}
		writeJSON(w, code, st)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
