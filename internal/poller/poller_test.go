package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	panel "gameserver_panel"

	"github.com/jonboulle/clockwork"
)

const testToken = "tok"

type scriptedResponse struct {
	status panel.ServerStatus
	err    error
}

// scriptedQuerier answers from a script (last entry repeats) and reports each call
// together with the fake time it happened at.
type scriptedQuerier struct {
	clock  clockwork.Clock
	calls  chan time.Time
	mu     sync.Mutex
	script []scriptedResponse
	tokens []string
}

func newScriptedQuerier(clock clockwork.Clock, script ...scriptedResponse) *scriptedQuerier {
	return &scriptedQuerier{clock: clock, calls: make(chan time.Time, 16), script: script}
}

func (q *scriptedQuerier) QueryStatus(ctx context.Context, token string) (panel.ServerStatus, error) {
	q.mu.Lock()
	r := q.script[0]
	if len(q.script) > 1 {
		q.script = q.script[1:]
	}
	q.tokens = append(q.tokens, token)
	q.mu.Unlock()
	q.calls <- q.clock.Now()
	return r.status, r.err
}

func (q *scriptedQuerier) callCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tokens)
}

type recordingSink struct {
	mu       sync.Mutex
	statuses []panel.ServerStatus
	messages []string
	stopped  chan Outcome
}

func newRecordingSink() *recordingSink {
	return &recordingSink{stopped: make(chan Outcome, 4)}
}

func (s *recordingSink) OnStatusUpdated(st panel.ServerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
}

func (s *recordingSink) OnMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) OnPollStopped(o Outcome) { s.stopped <- o }

func (s *recordingSink) snapshot() ([]panel.ServerStatus, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]panel.ServerStatus(nil), s.statuses...), append([]string(nil), s.messages...)
}

func off() scriptedResponse {
	return scriptedResponse{status: panel.ServerStatus{Status: panel.StatusOff, Message: "Servidor desligado"}}
}

func on(msg string) scriptedResponse {
	return scriptedResponse{status: panel.ServerStatus{Status: panel.StatusOn, Message: msg, PublicIP: "1.2.3.4", Port: 2456}}
}

func waitTicker(t *testing.T, fc *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("poll ticker was never armed: %v", err)
	}
}

func waitCall(t *testing.T, q *scriptedQuerier) time.Time {
	t.Helper()
	select {
	case at := <-q.calls:
		return at
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a status query")
	}
	return time.Time{}
}

func waitStopped(t *testing.T, s *recordingSink) Outcome {
	t.Helper()
	select {
	case o := <-s.stopped:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the poll to stop")
	}
	return Outcome{}
}

func TestTargetStatus(t *testing.T) {
	cases := []struct {
		action panel.Action
		want   string
		ok     bool
	}{
		{panel.ActionStart, panel.StatusOn, true},
		{panel.ActionStop, panel.StatusOff, true},
		{panel.ActionStatus, "", false},
		{panel.Action("restart"), "", false},
	}
	for _, tc := range cases {
		got, ok := TargetStatus(tc.action)
		if got != tc.want || ok != tc.ok {
			t.Errorf("TargetStatus(%q) = (%q, %v), want (%q, %v)", tc.action, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBegin_EntersPollingWithTarget(t *testing.T) {
	for _, tc := range []struct {
		action panel.Action
		target string
	}{
		{panel.ActionStart, panel.StatusOn},
		{panel.ActionStop, panel.StatusOff},
	} {
		t.Run(string(tc.action), func(t *testing.T) {
			fc := clockwork.NewFakeClock()
			q := newScriptedQuerier(fc, off())
			p := New(q, newRecordingSink(), WithClock(fc))
			defer p.Cancel()

			if !p.Begin(context.Background(), testToken, tc.action) {
				t.Fatalf("Begin(%q) must start a poll", tc.action)
			}
			snap := p.Snapshot()
			if snap.State != Polling {
				t.Fatalf("state: want polling, got %v", snap.State)
			}
			if snap.Target != tc.target || snap.Action != tc.action {
				t.Fatalf("target: want %q for %q, got %q for %q", tc.target, tc.action, snap.Target, snap.Action)
			}
		})
	}
}

func TestBegin_StatusNeverPolls(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := newScriptedQuerier(fc, off())
	p := New(q, newRecordingSink(), WithClock(fc))

	if p.Begin(context.Background(), testToken, panel.ActionStatus) {
		t.Fatal("status must not start a poll")
	}
	if p.State() != Idle {
		t.Fatalf("state: want idle, got %v", p.State())
	}
	fc.Advance(time.Minute)
	if n := q.callCount(); n != 0 {
		t.Fatalf("no queries expected, got %d", n)
	}
}

func TestPoll_StopsOnTargetAfterThreeQueries(t *testing.T) {
	fc := clockwork.NewFakeClock()
	start := fc.Now()
	q := newScriptedQuerier(fc, off(), off(), on("Servidor ligado"))
	sink := newRecordingSink()
	p := New(q, sink, WithClock(fc))

	p.Begin(context.Background(), testToken, panel.ActionStart)
	waitTicker(t, fc)

	for i := 1; i <= 3; i++ {
		fc.Advance(DefaultInterval)
		at := waitCall(t, q)
		if want := time.Duration(i) * DefaultInterval; at.Sub(start) != want {
			t.Fatalf("query %d: want at t=%s, got t=%s", i, want, at.Sub(start))
		}
	}

	o := waitStopped(t, sink)
	p.Wait()
	if o.Reason != ReasonReached || o.Queries != 3 || o.Target != panel.StatusOn {
		t.Fatalf("unexpected outcome: %+v", o)
	}
	if p.State() != Stopped {
		t.Fatalf("state: want stopped, got %v", p.State())
	}

	statuses, messages := sink.snapshot()
	if len(statuses) != 1 || statuses[0].Status != panel.StatusOn {
		t.Fatalf("want one ON status update, got %+v", statuses)
	}
	if len(messages) != 1 || messages[0] != "Servidor ligado" {
		t.Fatalf("want message of the third response, got %q", messages)
	}

	fc.Advance(time.Minute)
	if n := q.callCount(); n != 3 {
		t.Fatalf("no queries after stop expected, got %d total", n)
	}
	for _, tok := range q.tokens {
		if tok != testToken {
			t.Fatalf("query used token %q", tok)
		}
	}
}

func TestPoll_TransportErrorHaltsTicks(t *testing.T) {
	fc := clockwork.NewFakeClock()
	boom := errors.New("connection reset")
	q := newScriptedQuerier(fc, off(), scriptedResponse{err: boom}, on("late"))
	sink := newRecordingSink()
	p := New(q, sink, WithClock(fc))

	p.Begin(context.Background(), testToken, panel.ActionStart)
	waitTicker(t, fc)

	fc.Advance(DefaultInterval)
	waitCall(t, q)
	fc.Advance(DefaultInterval)
	waitCall(t, q)

	o := waitStopped(t, sink)
	p.Wait()
	if o.Reason != ReasonError || !errors.Is(o.Err, boom) || o.Queries != 2 {
		t.Fatalf("unexpected outcome: %+v", o)
	}

	fc.Advance(time.Minute)
	if n := q.callCount(); n != 2 {
		t.Fatalf("no ticks after the failing one expected, got %d queries", n)
	}
	if statuses, messages := sink.snapshot(); len(statuses) != 0 || len(messages) != 0 {
		t.Fatalf("no status or message expected on error, got %v %v", statuses, messages)
	}
}

func TestPoll_MaxDuration(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := newScriptedQuerier(fc, off())
	sink := newRecordingSink()
	p := New(q, sink, WithClock(fc), WithMaxDuration(12*time.Second))

	p.Begin(context.Background(), testToken, panel.ActionStart)
	waitTicker(t, fc)

	fc.Advance(DefaultInterval)
	waitCall(t, q)
	fc.Advance(DefaultInterval)
	waitCall(t, q)
	fc.Advance(DefaultInterval)

	o := waitStopped(t, sink)
	if o.Reason != ReasonTimeout || !errors.Is(o.Err, ErrTimeout) || o.Queries != 2 {
		t.Fatalf("unexpected outcome: %+v", o)
	}
}

func TestBegin_CancelsPreviousPoll(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := newScriptedQuerier(fc, off())
	sink := newRecordingSink()
	p := New(q, sink, WithClock(fc))
	defer p.Cancel()

	p.Begin(context.Background(), testToken, panel.ActionStart)
	waitTicker(t, fc)
	p.Begin(context.Background(), testToken, panel.ActionStop)

	o := waitStopped(t, sink)
	if o.Reason != ReasonCancelled || o.Target != panel.StatusOn {
		t.Fatalf("previous poll must stop as cancelled, got %+v", o)
	}
	snap := p.Snapshot()
	if snap.State != Polling || snap.Target != panel.StatusOff {
		t.Fatalf("new poll must target OFF, got %+v", snap)
	}
	if snap.Last == nil || snap.Last.Reason != ReasonCancelled {
		t.Fatalf("last outcome must be the cancelled poll, got %+v", snap.Last)
	}
}

// blockingQuerier returns a matching status only after its context is cancelled.
type blockingQuerier struct {
	entered chan struct{}
}

func (q *blockingQuerier) QueryStatus(ctx context.Context, token string) (panel.ServerStatus, error) {
	close(q.entered)
	<-ctx.Done()
	return panel.ServerStatus{Status: panel.StatusOn, Message: "too late"}, nil
}

func TestCancel_IgnoresInFlightResponse(t *testing.T) {
	fc := clockwork.NewFakeClock()
	q := &blockingQuerier{entered: make(chan struct{})}
	sink := newRecordingSink()
	p := New(q, sink, WithClock(fc))

	p.Begin(context.Background(), testToken, panel.ActionStart)
	waitTicker(t, fc)
	fc.Advance(DefaultInterval)
	<-q.entered

	p.Cancel()

	o := waitStopped(t, sink)
	if o.Reason != ReasonCancelled {
		t.Fatalf("want cancelled, got %+v", o)
	}
	if statuses, messages := sink.snapshot(); len(statuses) != 0 || len(messages) != 0 {
		t.Fatalf("response after cancel must be ignored, got %v %v", statuses, messages)
	}
	if p.State() != Stopped {
		t.Fatalf("state: want stopped, got %v", p.State())
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "idle" || Polling.String() != "polling" || Stopped.String() != "stopped" {
		t.Fatal("unexpected state names")
	}
}
