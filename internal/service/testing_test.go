package service

import (
	"context"
	"testing"
	"time"

	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/config"
	"gameserver_panel/internal/controlapi"
	"gameserver_panel/internal/controlapi/controlapitest"
	"gameserver_panel/internal/repository"
	"gameserver_panel/internal/repository/db"

	"github.com/jonboulle/clockwork"
)

const idToken = "id-token"

// stubProvider is a scripted auth.IdentityProvider.
type stubProvider struct {
	initResult auth.Result
	initErr    error
	respResult auth.Result
	respErr    error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) InitiateAuth(ctx context.Context, username, password string) (auth.Result, error) {
	return p.initResult, p.initErr
}

func (p *stubProvider) RespondNewPassword(ctx context.Context, ch auth.Challenge, newPassword string) (auth.Result, error) {
	return p.respResult, p.respErr
}

func directProvider() *stubProvider {
	return &stubProvider{initResult: auth.Result{Outcome: auth.Authenticated, Token: idToken}}
}

type testEnv struct {
	svc   *Service
	api   *controlapitest.Server
	clock *clockwork.FakeClock
	repos *repository.Repository
}

func newTestEnv(t *testing.T, p auth.IdentityProvider) *testEnv {
	t.Helper()

	conn, err := db.InitDB(db.MemoryDSN)
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	api := controlapitest.NewServer(idToken)
	t.Cleanup(api.Close)

	env := &testEnv{
		api:   api,
		clock: clockwork.NewFakeClock(),
		repos: repository.NewRepository(conn),
	}
	env.svc = NewService(Deps{
		Repos:     env.repos,
		Providers: auth.NewRegistry(p),
		API:       controlapi.NewClient(api.URL),
		Session:   config.SessionConfig{SigningKey: "test-key", TTL: time.Hour, ChallengeTTL: 5 * time.Minute},
		Poll:      config.PollConfig{Interval: 5 * time.Second, MaxDuration: 15 * time.Minute},
		Clock:     env.clock,
	})
	return env
}

func (e *testEnv) signIn(t *testing.T) string {
	t.Helper()
	res, err := e.svc.SignIn(context.Background(), SignInInput{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	sid, err := e.svc.ParseToken(res.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	return sid
}
