package service

import (
	"context"
	"time"

	gp "gameserver_panel"
	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/config"
	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/metrics"
	"gameserver_panel/internal/models"
	"gameserver_panel/internal/panel"
	"gameserver_panel/internal/poller"
	"gameserver_panel/internal/repository"

	"github.com/jonboulle/clockwork"
)

// Authorization signs users in through the identity provider and issues panel tokens.
type Authorization interface {
	SignIn(ctx context.Context, in SignInInput) (SignInResult, error)
	CompleteNewPassword(ctx context.Context, challengeToken, newPassword string) (SignInResult, error)
	ParseToken(accessToken string) (string, error)
	SignOut(ctx context.Context, sessionID string) error
}

// Control dispatches actions to the game server and exposes the poll of a session.
type Control interface {
	Status(ctx context.Context, sessionID string) (gp.ServerStatus, error)
	Dispatch(ctx context.Context, sessionID string, action gp.Action) (DispatchResult, error)
	PollState(ctx context.Context, sessionID string) (PollState, error)
	CancelPoll(ctx context.Context, sessionID string) error
}

// Monitoring exposes the last status a session has seen, without calling the API.
type Monitoring interface {
	LastStatus(ctx context.Context, sessionID string) (models.StatusSnapshot, error)
}

// EventLog exposes the session's event history with filtering access.
type EventLog interface {
	List(ctx context.Context, sessionID string, f LogFilter) ([]models.PanelEvent, error)
}

// Events streams a session's events as they happen.
type Events interface {
	Subscribe(sessionID string) (<-chan models.PanelEvent, func())
}

// Reaper drops expired sessions. Stop via context cancellation in main().
type Reaper interface {
	Run(ctx context.Context, tick time.Duration)
}

// Service aggregates all sub-services.
type Service struct {
	Authorization
	Control
	Monitoring
	EventLog
	Events
	Reaper
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Repos     *repository.Repository
	Providers *auth.Registry
	Verifier  auth.TokenVerifier // optional
	API       panel.ControlAPI
	Session   config.SessionConfig
	Poll      config.PollConfig
	Metrics   *metrics.Metrics
	Log       *logger.Logger
	Clock     clockwork.Clock
}

// NewService wires repositories and the control API into concrete services.
func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	d.Log = logger.OrNop(d.Log)

	hub := NewHub()
	sessions := newSessionTable(d.Metrics)
	views := &viewFactory{
		events: d.Repos.EventRepo,
		status: d.Repos.StatusRepo,
		hub:    hub,
		clock:  d.Clock,
		log:    d.Log,
	}
	pollOpts := []poller.Option{
		poller.WithInterval(d.Poll.Interval),
		poller.WithMaxDuration(d.Poll.MaxDuration),
		poller.WithClock(d.Clock),
		poller.WithMetrics(d.Metrics),
	}

	return &Service{
		Authorization: NewAuthService(d, sessions, views, pollOpts),
		Control:       NewControlService(sessions, views),
		Monitoring:    NewMonitoringService(d.Repos.StatusRepo),
		EventLog:      NewEventLogService(d.Repos.EventRepo),
		Events:        hub,
		Reaper:        NewReaperService(d.Repos.Sessions, sessions, d.Clock, d.Log),
	}
}
