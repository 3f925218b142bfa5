package auth

import (
	"context"
	"strings"
	"sync"

	"gameserver_panel/internal/logger"
)

// Session is the authentication state of one panel session: the pending challenge
// while a new password is required, then the bearer token. The token is written once
// and never refreshed.
type Session struct {
	provider IdentityProvider
	verifier TokenVerifier
	log      *logger.Logger

	mu       sync.RWMutex
	token    string
	identity *Identity
	pending  *Challenge
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithVerifier validates every issued token and records the user's identity.
func WithVerifier(v TokenVerifier) SessionOption {
	return func(s *Session) { s.verifier = v }
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *logger.Logger) SessionOption {
	return func(s *Session) { s.log = logger.OrNop(l) }
}

// NewSession creates an unauthenticated session backed by provider.
func NewSession(provider IdentityProvider, opts ...SessionOption) *Session {
	s := &Session{provider: provider, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the name of the backing identity provider.
func (s *Session) Provider() string { return s.provider.Name() }

// Authenticate signs the user in. A ChallengeRequired result is remembered so that
// CompleteChallenge can finish it. Failures are *AuthError.
func (s *Session) Authenticate(ctx context.Context, username, password string) (Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Result{}, &AuthError{Message: errMissingCredentials.Error(), Err: errMissingCredentials}
	}

	res, err := s.provider.InitiateAuth(ctx, username, password)
	if err != nil {
		ae := newAuthError(err)
		s.log.Infow("auth_failed", "provider", s.provider.Name(), "username", username, "err", ae.Message)
		return Result{}, ae
	}
	return s.accept(ctx, res)
}

// CompleteChallenge answers the pending new-password challenge.
func (s *Session) CompleteChallenge(ctx context.Context, newPassword string) (Result, error) {
	s.mu.RLock()
	pending := s.pending
	s.mu.RUnlock()

	if pending == nil {
		return Result{}, &AuthError{Message: ErrNoPendingChallenge.Error(), Err: ErrNoPendingChallenge}
	}
	if newPassword == "" {
		return Result{}, &AuthError{Message: errMissingNewPassword.Error(), Err: errMissingNewPassword}
	}

	res, err := s.provider.RespondNewPassword(ctx, *pending, newPassword)
	if err != nil {
		ae := newAuthError(err)
		s.log.Infow("auth_challenge_failed", "provider", s.provider.Name(), "username", pending.Username, "err", ae.Message)
		return Result{}, ae
	}
	return s.accept(ctx, res)
}

func (s *Session) accept(ctx context.Context, res Result) (Result, error) {
	switch res.Outcome {
	case Authenticated:
		var id *Identity
		if s.verifier != nil {
			v, err := s.verifier.Verify(ctx, res.Token)
			if err != nil {
				return Result{}, &AuthError{Message: "identity token rejected: " + err.Error(), Err: err}
			}
			id = v
		}
		s.mu.Lock()
		s.token = res.Token
		s.identity = id
		s.pending = nil
		s.mu.Unlock()
		s.log.Infow("auth_succeeded", "provider", s.provider.Name())
		return res, nil

	case ChallengeRequired:
		if res.Challenge == nil {
			return Result{}, &AuthError{Message: "identity provider sent an empty challenge"}
		}
		ch := *res.Challenge
		s.mu.Lock()
		s.pending = &ch
		s.mu.Unlock()
		s.log.Infow("auth_challenge_required", "provider", s.provider.Name(), "challenge", ch.Name, "username", ch.Username)
		return res, nil

	default:
		return Result{}, &AuthError{Message: "identity provider returned no result"}
	}
}

// Token returns the bearer token once authenticated.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Identity returns the verified identity, or nil without a verifier.
func (s *Session) Identity() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// PendingChallenge returns the challenge awaiting a new password, if any.
func (s *Session) PendingChallenge() *Challenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pending == nil {
		return nil
	}
	ch := *s.pending
	return &ch
}
