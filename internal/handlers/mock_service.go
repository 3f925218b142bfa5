package handlers

import (
	"context"
	"net/http"

	gp "gameserver_panel"
	"gameserver_panel/internal/models"
	"gameserver_panel/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signInRes   service.SignInResult
	signInErr   error
	newPassRes  service.SignInResult
	newPassErr  error
	parseID     string
	parseErr    error
	signOutErr  error
	lastSignIn  service.SignInInput
	lastNewPass string
	lastParse   string
	signedOut   []string
}

func (m *mockAuth) SignIn(ctx context.Context, in service.SignInInput) (service.SignInResult, error) {
	m.lastSignIn = in
	return m.signInRes, m.signInErr
}

func (m *mockAuth) CompleteNewPassword(ctx context.Context, challengeToken, newPassword string) (service.SignInResult, error) {
	m.lastNewPass = newPassword
	return m.newPassRes, m.newPassErr
}

func (m *mockAuth) ParseToken(token string) (string, error) {
	m.lastParse = token
	return m.parseID, m.parseErr
}

func (m *mockAuth) SignOut(ctx context.Context, sessionID string) error {
	m.signedOut = append(m.signedOut, sessionID)
	return m.signOutErr
}

type mockControl struct {
	status      gp.ServerStatus
	statusErr   error
	dispatch    service.DispatchResult
	dispatchErr error
	poll        service.PollState
	pollErr     error
	cancelErr   error

	lastSession  string
	lastAction   gp.Action
	dispatched   int
	cancelCalled int
}

func (m *mockControl) Status(ctx context.Context, sessionID string) (gp.ServerStatus, error) {
	m.lastSession = sessionID
	return m.status, m.statusErr
}

func (m *mockControl) Dispatch(ctx context.Context, sessionID string, action gp.Action) (service.DispatchResult, error) {
	m.lastSession = sessionID
	m.lastAction = action
	m.dispatched++
	return m.dispatch, m.dispatchErr
}

func (m *mockControl) PollState(ctx context.Context, sessionID string) (service.PollState, error) {
	return m.poll, m.pollErr
}

func (m *mockControl) CancelPoll(ctx context.Context, sessionID string) error {
	m.cancelCalled++
	return m.cancelErr
}

type mockMonitoring struct {
	snap models.StatusSnapshot
	err  error
}

func (m *mockMonitoring) LastStatus(ctx context.Context, sessionID string) (models.StatusSnapshot, error) {
	return m.snap, m.err
}

type mockEventLog struct {
	resp        []models.PanelEvent
	err         error
	lastSession string
	lastFilter  service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, sessionID string, f service.LogFilter) ([]models.PanelEvent, error) {
	m.lastSession = sessionID
	m.lastFilter = f
	return m.resp, m.err
}

// mockEvents hands out a single channel the test feeds.
type mockEvents struct {
	ch           chan models.PanelEvent
	unsubscribed chan struct{}
}

func newMockEvents() *mockEvents {
	return &mockEvents{ch: make(chan models.PanelEvent, 8), unsubscribed: make(chan struct{})}
}

func (m *mockEvents) Subscribe(sessionID string) (<-chan models.PanelEvent, func()) {
	return m.ch, func() { close(m.unsubscribed) }
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	h := NewHandler(s, nil, opts...)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
