// Package panel drives one signed-in panel session: it authenticates, dispatches
// control actions and hands the poller's events to a View.
package panel

import (
	"context"
	"errors"
	"fmt"

	gp "gameserver_panel"
	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/poller"
)

// View renders what the core reports. Implementations must not block for long;
// poll events are delivered from the poll goroutine.
type View interface {
	OnStatusUpdated(st gp.ServerStatus)
	OnMessage(msg string)
	OnAuthChallenge(ch auth.Challenge)
	OnAuthFailure(msg string)
	OnPollStopped(o poller.Outcome)
}

// ControlAPI is the control endpoint as seen by the panel.
type ControlAPI interface {
	SendAction(ctx context.Context, token string, action gp.Action) (gp.ServerStatus, error)
	QueryStatus(ctx context.Context, token string) (gp.ServerStatus, error)
}

// ErrNotAuthenticated is returned by control calls made before sign-in completed.
var ErrNotAuthenticated = auth.ErrNotAuthenticated

// DispatchResult summarizes one submitted action.
type DispatchResult struct {
	Status  gp.ServerStatus
	Polling bool
	Target  string
}

// Controller owns the auth session, the control API client and the poller of one
// panel session.
type Controller struct {
	session *auth.Session
	api     ControlAPI
	poller  *poller.Poller
	view    View
	log     *logger.Logger

	// pollCtx outlives individual requests; Close cancels it.
	pollCtx    context.Context
	pollCancel context.CancelFunc
}

// NewController wires a controller. Poll options (interval, clock, metrics) are
// passed through to the poller.
func NewController(session *auth.Session, api ControlAPI, view View, log *logger.Logger, pollOpts ...poller.Option) *Controller {
	log = logger.OrNop(log)
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		session:    session,
		api:        api,
		view:       view,
		log:        log,
		pollCtx:    ctx,
		pollCancel: cancel,
	}
	opts := append([]poller.Option{poller.WithLogger(log)}, pollOpts...)
	c.poller = poller.New(api, view, opts...)
	return c
}

// Session returns the auth session.
func (c *Controller) Session() *auth.Session { return c.session }

// Login authenticates and, on success, fetches the initial status.
// A challenge is reported to the view and returned with a nil error.
func (c *Controller) Login(ctx context.Context, username, password string) (auth.Result, error) {
	res, err := c.session.Authenticate(ctx, username, password)
	return c.afterAuth(ctx, res, err)
}

// CompleteNewPassword answers the pending challenge and fetches the initial status.
func (c *Controller) CompleteNewPassword(ctx context.Context, newPassword string) (auth.Result, error) {
	res, err := c.session.CompleteChallenge(ctx, newPassword)
	return c.afterAuth(ctx, res, err)
}

func (c *Controller) afterAuth(ctx context.Context, res auth.Result, err error) (auth.Result, error) {
	if err != nil {
		c.view.OnAuthFailure(authMessage(err))
		return res, err
	}
	if res.Outcome == auth.ChallengeRequired {
		c.view.OnAuthChallenge(*res.Challenge)
		return res, nil
	}
	// The initial status is best effort; the user is signed in either way.
	if _, err := c.Refresh(ctx); err != nil {
		c.log.Infow("initial_status_failed", "err", err)
	}
	return res, nil
}

// Refresh queries the current status and reports it to the view.
func (c *Controller) Refresh(ctx context.Context) (gp.ServerStatus, error) {
	token, ok := c.session.Token()
	if !ok {
		return gp.ServerStatus{}, ErrNotAuthenticated
	}
	st, err := c.api.QueryStatus(ctx, token)
	if err != nil {
		return gp.ServerStatus{}, err
	}
	c.view.OnStatusUpdated(st)
	return st, nil
}

// Submit dispatches action. On success the response is reported to the view and,
// for start/stop, a new poll replaces the running one. Actions without a target
// status and failed dispatches leave the running poll alone.
func (c *Controller) Submit(ctx context.Context, action gp.Action) (DispatchResult, error) {
	token, ok := c.session.Token()
	if !ok {
		return DispatchResult{}, ErrNotAuthenticated
	}

	st, err := c.api.SendAction(ctx, token, action)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("dispatch %s: %w", action, err)
	}

	c.view.OnMessage(st.Message)
	c.view.OnStatusUpdated(st)

	res := DispatchResult{Status: st}
	if c.poller.Begin(c.pollCtx, token, action) {
		res.Polling = true
		res.Target, _ = poller.TargetStatus(action)
	}
	return res, nil
}

// CancelPoll stops the running poll, if any.
func (c *Controller) CancelPoll() { c.poller.Cancel() }

// Poll returns the poller's current snapshot.
func (c *Controller) Poll() poller.Snapshot { return c.poller.Snapshot() }

// WaitPoll blocks until the running poll, if any, stops.
func (c *Controller) WaitPoll() { c.poller.Wait() }

// Close cancels polling for good.
func (c *Controller) Close() {
	c.pollCancel()
	c.poller.Wait()
}

func authMessage(err error) string {
	var ae *auth.AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
