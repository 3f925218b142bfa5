package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gp "gameserver_panel"
	"gameserver_panel/internal/models"
	"gameserver_panel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestParseInterval(t *testing.T) {
	h := NewHandler(&service.Service{}, nil)

	cases := []struct {
		name string
		u    string
		want time.Duration
	}{
		{"default_when_missing", "/ws", defaultInterval},
		{"interval_string_valid", "/ws?interval=200ms", 200 * time.Millisecond},
		{"interval_ms_valid", "/ws?interval_ms=150", 150 * time.Millisecond},
		{"interval_at_max", "/ws?interval=60s", 60 * time.Second},
		{"interval_too_large", "/ws?interval=2m", defaultInterval},
		{"interval_ms_too_large", "/ws?interval_ms=60001", defaultInterval},
		{"interval_negative", "/ws?interval=-1s", defaultInterval},
		{"interval_invalid_string", "/ws?interval=bogus", defaultInterval},
		{"interval_ms_invalid", "/ws?interval_ms=NaN", defaultInterval},
		{"both_present_interval_wins", "/ws?interval=2s&interval_ms=150", 2 * time.Second},
		{"both_present_invalid_interval_ms_used", "/ws?interval=bogus&interval_ms=250", 250 * time.Millisecond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tc.u, nil)
			if got := h.parseInterval(c); got != tc.want {
				t.Fatalf("got %v, want %v for %s", got, tc.want, tc.u)
			}
		})
	}
}

type envelope struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func dialStream(t *testing.T, s *service.Service, query url.Values) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	srv := httptest.NewServer(newTestRouter(s))
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	u.RawQuery = query.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, resp, err := dialer.Dial(u.String(), nil)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func TestWebSocket_Stream(t *testing.T) {
	events := newMockEvents()
	s := &service.Service{
		Authorization: &mockAuth{parseID: "sid-1"},
		Monitoring: &mockMonitoring{snap: models.StatusSnapshot{
			SessionID: "sid-1",
			Status:    gp.ServerStatus{Status: gp.StatusOff},
		}},
		Control: &mockControl{poll: service.PollState{State: "idle"}},
		Events:  events,
	}

	conn, _, err := dialStream(t, s, url.Values{"token": {"tok"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	env := readEnvelope(t, conn)
	var snap models.StatusSnapshot
	if env.Type != wsTypeStatus || json.Unmarshal(env.Data, &snap) != nil || snap.Status.Status != gp.StatusOff {
		t.Fatalf("initial status: %+v", env)
	}

	env = readEnvelope(t, conn)
	var ps service.PollState
	if env.Type != wsTypePoll || json.Unmarshal(env.Data, &ps) != nil || ps.State != "idle" {
		t.Fatalf("initial poll: %+v", env)
	}

	events.ch <- models.PanelEvent{EventID: "e1", SessionID: "sid-1", Type: models.EventMessage, Description: "Iniciando servidor"}

	env = readEnvelope(t, conn)
	var ev models.PanelEvent
	if env.Type != wsTypeEvent || json.Unmarshal(env.Data, &ev) != nil {
		t.Fatalf("event: %+v", env)
	}
	if ev.Type != models.EventMessage || ev.Description != "Iniciando servidor" {
		t.Fatalf("unexpected event: %+v", ev)
	}

	_ = conn.Close()
	select {
	case <-events.unsubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not released after close")
	}
}

func TestWebSocket_PeriodicPoll(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseID: "sid-1"},
		Monitoring:    &mockMonitoring{},
		Control:       &mockControl{poll: service.PollState{State: "polling", Target: gp.StatusOn}},
		Events:        newMockEvents(),
	}

	conn, _, err := dialStream(t, s, url.Values{"token": {"tok"}, "interval_ms": {"20"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	_ = readEnvelope(t, conn) // status
	_ = readEnvelope(t, conn) // initial poll
	if env := readEnvelope(t, conn); env.Type != wsTypePoll {
		t.Fatalf("expected periodic poll, got %+v", env)
	}
}

func TestWebSocket_InvalidToken(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseErr: service.ErrInvalidToken},
		Events:        newMockEvents(),
	}

	_, resp, err := dialStream(t, s, url.Values{"token": {"bad"}})
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestWebSocket_InitialStatusError_Closes(t *testing.T) {
	s := &service.Service{
		Authorization: &mockAuth{parseID: "sid-1"},
		Monitoring:    &mockMonitoring{err: errors.New("boom")},
		Control:       &mockControl{},
		Events:        newMockEvents(),
	}

	conn, _, err := dialStream(t, s, url.Values{"token": {"tok"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Type != wsTypeError {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var raw json.RawMessage
	if err := conn.ReadJSON(&raw); err == nil {
		t.Fatalf("expected closed connection, got %s", raw)
	}
}
