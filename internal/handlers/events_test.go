package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"gameserver_panel/internal/models"
	"gameserver_panel/internal/service"
)

func TestGetEvents(t *testing.T) {
	el := &mockEventLog{resp: []models.PanelEvent{
		{EventID: "1", Type: models.EventAction, Description: "start"},
		{EventID: "2", Type: models.EventMessage, Description: "Iniciando servidor"},
	}}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: "sid-1"}, EventLog: el})

	w := get(t, r, "/api/v1/events?from=2025-08-01&to=2025-08-31&type=message", authHeader("tok"))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                 `json:"count"`
		Events []models.PanelEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	if el.lastSession != "sid-1" || el.lastFilter.Type != "message" {
		t.Fatalf("filter not forwarded: %q %+v", el.lastSession, el.lastFilter)
	}
	wantFrom := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2025, 8, 31, 23, 59, 59, 999999999, time.UTC)
	if !el.lastFilter.From.Equal(wantFrom) || !el.lastFilter.To.Equal(wantTo) {
		t.Fatalf("range: %v - %v", el.lastFilter.From, el.lastFilter.To)
	}
}

func TestGetEvents_BadInput(t *testing.T) {
	el := &mockEventLog{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: "sid-1"}, EventLog: el})

	for _, q := range []string{"from=yesterday", "to=31/08/2025"} {
		if w := get(t, r, "/api/v1/events?"+q, authHeader("tok")); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: status=%d", q, w.Code)
		}
	}

	el.err = service.ErrInvalidTimeRange
	if w := get(t, r, "/api/v1/events?from=2025-09-01&to=2025-08-01", authHeader("tok")); w.Code != http.StatusBadRequest {
		t.Fatalf("range: status=%d", w.Code)
	}

	el.err = errors.New("db down")
	if w := get(t, r, "/api/v1/events", authHeader("tok")); w.Code != http.StatusInternalServerError {
		t.Fatalf("repo error: status=%d", w.Code)
	}
}

func TestParseQueryTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-08-27T15:04:05Z", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27T15:04:05-03:00", time.Date(2025, 8, 27, 18, 4, 5, 0, time.UTC), true},
		{"2025-08-27 15:04:05", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), true},
		{"27/08/2025", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := parseQueryTime(tc.in)
		if (err == nil) != tc.ok || !got.Equal(tc.want) {
			t.Errorf("parseQueryTime(%q) = %v, %v", tc.in, got, err)
		}
	}
}
