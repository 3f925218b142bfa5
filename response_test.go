package gameserver_panel

import (
	"encoding/json"
	"testing"
)

func TestActionRequest_Marshal(t *testing.T) {
	b, err := json.Marshal(ActionRequest{Action: ActionStop})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(b), `{"action":"stop"}`; got != want {
		t.Fatalf("body: want %s, got %s", want, got)
	}
}

func TestServerStatus_UnmarshalStopResponse(t *testing.T) {
	var st ServerStatus
	if err := json.Unmarshal([]byte(`{"status":"OFF","message":"Server stopped"}`), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Status != StatusOff || st.Message != "Server stopped" {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.PublicIP != "" || st.Port != 0 || st.Password != "" {
		t.Fatalf("optional fields must stay unset: %+v", st)
	}
	if !st.IsOff() || st.IsOn() {
		t.Fatalf("IsOff/IsOn mismatch for %q", st.Status)
	}
	if _, ok := st.Address(); ok {
		t.Fatalf("address must be unknown without ip and port")
	}
}

func TestServerStatus_Address(t *testing.T) {
	st := ServerStatus{Status: StatusOn, PublicIP: "18.228.1.2", Port: 2456}
	addr, ok := st.Address()
	if !ok || addr != "18.228.1.2:2456" {
		t.Fatalf("address: got %q ok=%v", addr, ok)
	}
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"start", ActionStart, false},
		{"  STOP ", ActionStop, false},
		{"Status", ActionStatus, false},
		{"restart", Action("restart"), false},
		{"   ", "", true},
	}
	for _, tc := range cases {
		got, err := ParseAction(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseAction(%q) err=%v, wantErr=%v", tc.in, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseAction(%q): want %q, got %q", tc.in, tc.want, got)
		}
	}
}
