package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReaperService_SweepClosesExpiredSessions(t *testing.T) {
	env := newTestEnv(t, directProvider())
	sid := env.signIn(t)
	reaper := env.svc.Reaper.(*ReaperService)

	if n := reaper.sweep(context.Background(), env.clock.Now()); n != 0 {
		t.Fatalf("nothing should expire yet, closed %d", n)
	}

	if n := reaper.sweep(context.Background(), env.clock.Now().Add(2*time.Hour)); n != 1 {
		t.Fatalf("want 1 expired session, got %d", n)
	}
	if _, err := env.svc.PollState(context.Background(), sid); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("session still live: %v", err)
	}
	if s, _ := env.repos.Sessions.Get(context.Background(), sid); s != nil {
		t.Fatalf("session row survived: %+v", s)
	}
}

func TestReaperService_RunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t, directProvider())
	reaper := env.svc.Reaper.(*ReaperService)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx, time.Minute)
		close(done)
	}()

	waitTicker(t, env)
	env.clock.Advance(time.Minute)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
