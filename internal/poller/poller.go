// Package poller watches the control API after a start/stop action until the server
// reports the status the action leads to.
//
// A Poller moves through Idle -> Polling -> Stopped. At most one poll is active at a
// time: beginning a new one cancels the previous one first. Ticks never overlap; a tick
// that fires while a query is in flight is dropped by the ticker.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	panel "gameserver_panel"
	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/metrics"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the delay between two status queries.
const DefaultInterval = 5 * time.Second

// ErrTimeout is reported when a poll exceeds its maximum duration.
var ErrTimeout = errors.New("poll exceeded maximum duration")

// State of a Poller.
type State int

const (
	Idle State = iota
	Polling
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Polling:
		return "polling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Reason explains why a poll stopped.
type Reason string

const (
	ReasonReached   Reason = "reached"
	ReasonError     Reason = "error"
	ReasonTimeout   Reason = "timeout"
	ReasonCancelled Reason = "cancelled"
)

// Outcome describes a finished poll.
type Outcome struct {
	Action  panel.Action
	Target  string
	Reason  Reason
	Queries int
	Last    panel.ServerStatus
	Elapsed time.Duration
	Err     error
}

// Querier fetches the current server status.
type Querier interface {
	QueryStatus(ctx context.Context, token string) (panel.ServerStatus, error)
}

// Sink receives poll events. Calls are made from the poll goroutine; a Sink must not
// call Begin or Cancel synchronously.
type Sink interface {
	OnStatusUpdated(st panel.ServerStatus)
	OnMessage(msg string)
	OnPollStopped(o Outcome)
}

// TargetStatus returns the status value that completes the given action.
// Only start and stop have one.
func TargetStatus(a panel.Action) (string, bool) {
	switch a {
	case panel.ActionStart:
		return panel.StatusOn, true
	case panel.ActionStop:
		return panel.StatusOff, true
	default:
		return "", false
	}
}

// Snapshot is a point-in-time view of a Poller.
type Snapshot struct {
	State     State
	Action    panel.Action
	Target    string
	StartedAt time.Time
	Last      *Outcome
}

type pollSession struct {
	action    panel.Action
	target    string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// Poller runs at most one status poll at a time.
type Poller struct {
	querier     Querier
	sink        Sink
	interval    time.Duration
	maxDuration time.Duration
	clock       clockwork.Clock
	log         *logger.Logger
	metrics     *metrics.Metrics

	mu      sync.Mutex
	state   State
	current *pollSession
	last    *Outcome
}

// Option customizes a Poller.
type Option func(*Poller)

// WithInterval sets the delay between status queries.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithMaxDuration bounds a single poll. Zero means no bound.
func WithMaxDuration(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.maxDuration = d
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithLogger sets the logger used for poll errors.
func WithLogger(l *logger.Logger) Option {
	return func(p *Poller) { p.log = logger.OrNop(l) }
}

// WithMetrics enables poll metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// New creates an idle Poller.
func New(q Querier, sink Sink, opts ...Option) *Poller {
	p := &Poller{
		querier:  q,
		sink:     sink,
		interval: DefaultInterval,
		clock:    clockwork.NewRealClock(),
		log:      logger.Nop(),
		state:    Idle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Begin starts polling for the status that completes action. It returns false, and
// leaves any running poll alone, when the action has no target status (e.g. "status").
// ctx bounds the lifetime of the poll; it must outlive the caller's request.
func (p *Poller) Begin(ctx context.Context, token string, action panel.Action) bool {
	target, ok := TargetStatus(action)
	if !ok {
		return false
	}

	pollCtx, cancel := context.WithCancel(ctx)
	ps := &pollSession{
		action:    action,
		target:    target,
		startedAt: p.clock.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	p.mu.Lock()
	prev := p.current
	p.current = ps
	p.state = Polling
	p.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	p.log.Infow("poll_started", "action", action, "target", target, "interval", p.interval)
	go p.run(pollCtx, token, ps)
	return true
}

// Cancel stops the active poll, if any, and waits for it to finish.
func (p *Poller) Cancel() {
	p.mu.Lock()
	ps := p.current
	p.mu.Unlock()
	if ps == nil {
		return
	}
	ps.cancel()
	<-ps.done
}

// Wait blocks until the active poll, if any, has finished.
func (p *Poller) Wait() {
	p.mu.Lock()
	ps := p.current
	p.mu.Unlock()
	if ps != nil {
		<-ps.done
	}
}

// State returns the current state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns the current state, target and last outcome.
func (p *Poller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Snapshot{State: p.state}
	if p.current != nil {
		s.Action = p.current.action
		s.Target = p.current.target
		s.StartedAt = p.current.startedAt
	}
	if p.last != nil {
		last := *p.last
		s.Last = &last
	}
	return s
}

func (p *Poller) run(ctx context.Context, token string, ps *pollSession) {
	defer close(ps.done)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	out := Outcome{Action: ps.action, Target: ps.target}
	for {
		select {
		case <-ctx.Done():
			out.Reason = ReasonCancelled
			p.finish(ps, out)
			return
		case <-ticker.Chan():
		}

		if ctx.Err() != nil {
			out.Reason = ReasonCancelled
			p.finish(ps, out)
			return
		}
		if p.maxDuration > 0 && p.clock.Since(ps.startedAt) > p.maxDuration {
			out.Reason = ReasonTimeout
			out.Err = ErrTimeout
			p.finish(ps, out)
			return
		}

		st, err := p.querier.QueryStatus(ctx, token)
		out.Queries++

		// A response that arrives after cancellation belongs to a superseded poll.
		if ctx.Err() != nil {
			out.Reason = ReasonCancelled
			p.finish(ps, out)
			return
		}
		if err != nil {
			out.Reason = ReasonError
			out.Err = err
			p.finish(ps, out)
			return
		}

		out.Last = st
		if st.Status == ps.target {
			p.sink.OnStatusUpdated(st)
			p.sink.OnMessage(st.Message)
			out.Reason = ReasonReached
			p.finish(ps, out)
			return
		}
		p.log.Debugw("poll_waiting", "action", ps.action, "target", ps.target, "status", st.Status, "queries", out.Queries)
	}
}

func (p *Poller) finish(ps *pollSession, out Outcome) {
	out.Elapsed = p.clock.Since(ps.startedAt)

	p.mu.Lock()
	if p.current == ps {
		p.state = Stopped
	}
	last := out
	p.last = &last
	p.mu.Unlock()

	p.metrics.ObservePoll(out.Target, string(out.Reason), out.Queries, out.Elapsed)
	switch out.Reason {
	case ReasonError, ReasonTimeout:
		p.log.Errorw("poll_stopped", "action", out.Action, "target", out.Target, "reason", out.Reason, "queries", out.Queries, "err", out.Err)
	default:
		p.log.Infow("poll_stopped", "action", out.Action, "target", out.Target, "reason", out.Reason, "queries", out.Queries)
	}
	p.sink.OnPollStopped(out)
}
