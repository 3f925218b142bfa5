package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	gp "gameserver_panel"
	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/poller"
)

// termView prints panel events as lines. Poll events arrive from the poll goroutine.
type termView struct {
	mu   sync.Mutex
	out  io.Writer
	seen bool
}

func newTermView(out io.Writer) *termView {
	return &termView{out: out}
}

func (v *termView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = fmt.Fprintf(v.out, format+"\n", args...)
}

func (v *termView) OnStatusUpdated(st gp.ServerStatus) {
	v.mu.Lock()
	v.seen = true
	v.mu.Unlock()

	v.printf("status:   %s", st.Status)
	if !st.IsOn() {
		return
	}
	if addr, ok := st.Address(); ok {
		v.printf("address:  %s", addr)
	}
	if st.Password != "" {
		v.printf("password: %s", st.Password)
	}
}

func (v *termView) OnMessage(msg string) {
	if msg == "" {
		return
	}
	v.printf("> %s", msg)
}

func (v *termView) OnAuthChallenge(ch auth.Challenge) {
	v.printf("a new password is required for %s", ch.Username)
}

func (v *termView) OnAuthFailure(msg string) {
	v.printf("sign-in failed: %s", msg)
}

func (v *termView) OnPollStopped(o poller.Outcome) {
	switch o.Reason {
	case poller.ReasonReached:
		v.printf("server is %s (%d checks, %s)", o.Target, o.Queries, o.Elapsed.Round(time.Millisecond))
	case poller.ReasonError:
		v.printf("stopped waiting for %s: %v", o.Target, o.Err)
	default:
		v.printf("stopped waiting for %s: %s", o.Target, o.Reason)
	}
}

func (v *termView) signedInAs(username string) {
	v.printf("signed in as %s", username)
}

func (v *termView) notWaiting(target string) {
	v.printf("not waiting for %s; run `panelctl status` to check", target)
}

func (v *termView) statusSeen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.seen
}
