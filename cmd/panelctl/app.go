package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gp "gameserver_panel"
	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/config"
	"gameserver_panel/internal/controlapi"
	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/panel"
	"gameserver_panel/internal/poller"
)

// passwordEnv lets scripts skip the password prompt.
const passwordEnv = "PANEL_PASSWORD"

var (
	errPasswordMismatch = errors.New("passwords do not match")
	errPollIncomplete   = errors.New("server did not reach the expected status")
)

type options struct {
	configDir string
	username  string
	provider  string
	logLevel  string
	wait      bool
}

// backend is everything a terminal session talks to.
type backend struct {
	provider auth.IdentityProvider
	verifier auth.TokenVerifier
	api      panel.ControlAPI
	poll     []poller.Option
	log      *logger.Logger
}

type app struct {
	opts   options
	prompt prompter
	out    io.Writer

	connect func(ctx context.Context, o options) (*backend, error)
}

func newApp(p prompter, out io.Writer) *app {
	return &app{prompt: p, out: out, connect: connectBackend}
}

// connectBackend builds the identity provider and control API client from config.
func connectBackend(ctx context.Context, o options) (*backend, error) {
	cfg, err := config.Load(o.configDir)
	if err != nil {
		return nil, err
	}
	log := logger.Get(o.logLevel)

	providers, err := auth.BuildRegistry(ctx, cfg.Auth, log.Named("auth"))
	if err != nil {
		return nil, fmt.Errorf("identity provider: %w", err)
	}
	name := o.provider
	if name == "" {
		name = providers.Default()
	}
	p, err := providers.Get(name)
	if err != nil {
		return nil, err
	}
	v, err := auth.BuildVerifier(ctx, cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("id token verifier: %w", err)
	}

	return &backend{
		provider: p,
		verifier: v,
		api: controlapi.NewClient(cfg.ControlAPI.Endpoint,
			controlapi.WithTimeout(cfg.ControlAPI.Timeout),
			controlapi.WithLogger(log.Named("controlapi")),
		),
		poll: []poller.Option{
			poller.WithInterval(cfg.Poll.Interval),
			poller.WithMaxDuration(cfg.Poll.MaxDuration),
		},
		log: log,
	}, nil
}

// session is one signed-in terminal session.
type session struct {
	ctrl *panel.Controller
	view *termView
}

func (s *session) close() { s.ctrl.Close() }

// signIn authenticates, answering a new-password challenge when the provider asks for one.
func (a *app) signIn(ctx context.Context) (*session, error) {
	b, err := a.connect(ctx, a.opts)
	if err != nil {
		return nil, err
	}

	var sessOpts []auth.SessionOption
	if b.verifier != nil {
		sessOpts = append(sessOpts, auth.WithVerifier(b.verifier))
	}
	sessOpts = append(sessOpts, auth.WithSessionLogger(b.log))

	view := newTermView(a.out)
	ctrl := panel.NewController(auth.NewSession(b.provider, sessOpts...), b.api, view, b.log, b.poll...)
	s := &session{ctrl: ctrl, view: view}

	if err := a.login(ctx, ctrl); err != nil {
		s.close()
		return nil, err
	}
	if id := ctrl.Session().Identity(); id != nil {
		view.signedInAs(id.Username)
	}
	return s, nil
}

func (a *app) login(ctx context.Context, ctrl *panel.Controller) error {
	username := a.opts.username
	if username == "" {
		u, err := a.prompt.Line("Username: ")
		if err != nil {
			return err
		}
		username = u
	}
	password := os.Getenv(passwordEnv)
	if password == "" {
		p, err := a.prompt.Secret("Password: ")
		if err != nil {
			return err
		}
		password = p
	}

	res, err := ctrl.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if res.Outcome != auth.ChallengeRequired {
		return nil
	}

	pw, err := a.prompt.Secret("New password: ")
	if err != nil {
		return err
	}
	again, err := a.prompt.Secret("Repeat new password: ")
	if err != nil {
		return err
	}
	if pw != again {
		return errPasswordMismatch
	}
	_, err = ctrl.CompleteNewPassword(ctx, pw)
	return err
}

func (a *app) runLogin(ctx context.Context) error {
	s, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	return nil
}

func (a *app) runStatus(ctx context.Context) error {
	s, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	// sign-in already printed the status unless that query failed
	if s.view.statusSeen() {
		return nil
	}
	_, err = s.ctrl.Refresh(ctx)
	return err
}

func (a *app) runAction(ctx context.Context, raw string) error {
	action, err := gp.ParseAction(raw)
	if err != nil {
		return err
	}
	s, err := a.signIn(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	res, err := s.ctrl.Submit(ctx, action)
	if err != nil {
		return err
	}
	if !res.Polling {
		return nil
	}
	if !a.opts.wait {
		s.view.notWaiting(res.Target)
		return nil
	}

	done := make(chan struct{})
	go func() {
		s.ctrl.WaitPoll()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.ctrl.CancelPoll()
		<-done
	}

	last := s.ctrl.Poll().Last
	if last == nil || last.Reason != poller.ReasonReached {
		return errPollIncomplete
	}
	return nil
}
