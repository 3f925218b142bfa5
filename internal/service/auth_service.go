package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"gameserver_panel/internal/auth"
	"gameserver_panel/internal/logger"
	"gameserver_panel/internal/metrics"
	"gameserver_panel/internal/models"
	"gameserver_panel/internal/panel"
	"gameserver_panel/internal/poller"
	"gameserver_panel/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	defaultTokenTTL     = time.Hour
	defaultChallengeTTL = 5 * time.Minute

	kindAccess    = "access"
	kindChallenge = "challenge"
)

// Domain errors for auth flows.
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrUnknownProvider = errors.New("unknown identity provider")
)

// AuthService opens panel sessions. Each sign-in gets its own auth.Session and
// panel.Controller; the identity-provider token never leaves the server.
type AuthService struct {
	providers    *auth.Registry
	verifier     auth.TokenVerifier
	api          panel.ControlAPI
	repo         repository.SessionRepo
	sessions     *sessionTable
	views        *viewFactory
	pollOpts     []poller.Option
	signingKey   []byte
	tokenTTL     time.Duration
	challengeTTL time.Duration
	clock        clockwork.Clock
	metrics      *metrics.Metrics
	log          *logger.Logger
}

func NewAuthService(d Deps, sessions *sessionTable, views *viewFactory, pollOpts []poller.Option) *AuthService {
	s := &AuthService{
		providers:    d.Providers,
		verifier:     d.Verifier,
		api:          d.API,
		repo:         d.Repos.Sessions,
		sessions:     sessions,
		views:        views,
		pollOpts:     pollOpts,
		signingKey:   []byte(d.Session.SigningKey),
		tokenTTL:     d.Session.TTL,
		challengeTTL: d.Session.ChallengeTTL,
		clock:        d.Clock,
		metrics:      d.Metrics,
		log:          logger.OrNop(d.Log),
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = defaultTokenTTL
	}
	if s.challengeTTL <= 0 {
		s.challengeTTL = defaultChallengeTTL
	}
	if len(s.signingKey) == 0 {
		s.signingKey = randomKey()
		s.log.Infow("session_signing_key_generated")
	}
	return s
}

// Claims defines panel token claims.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Kind      string `json:"kind"`
}

// SignIn authenticates against the selected provider. On success the user gets a
// panel token; on a new-password challenge a short-lived challenge token.
func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (SignInResult, error) {
	provider, err := s.providers.Get(in.Provider)
	if err != nil {
		return SignInResult{}, fmt.Errorf("%w: %q", ErrUnknownProvider, in.Provider)
	}

	now := s.clock.Now().UTC()
	id := uuid.NewString()
	if err := s.repo.Create(ctx, models.PanelSession{
		ID:        id,
		Username:  in.Username,
		Provider:  provider.Name(),
		Pending:   true,
		CreatedAt: now,
		ExpiresAt: now.Add(s.challengeTTL),
	}); err != nil {
		return SignInResult{}, err
	}

	opts := []auth.SessionOption{auth.WithSessionLogger(s.log)}
	if s.verifier != nil {
		opts = append(opts, auth.WithVerifier(s.verifier))
	}
	ls := &liveSession{
		id:       id,
		username: in.Username,
		ctrl: panel.NewController(
			auth.NewSession(provider, opts...),
			s.api,
			s.views.forSession(id),
			s.log.Named("panel"),
			s.pollOpts...,
		),
	}

	res, err := ls.ctrl.Login(ctx, in.Username, in.Password)
	if err != nil {
		s.metrics.ObserveAuth("failure")
		ls.ctrl.Close()
		if derr := s.repo.Delete(ctx, id); derr != nil {
			s.log.Errorw("session_delete_failed", "session_id", id, "err", derr)
		}
		return SignInResult{}, err
	}

	s.sessions.put(ls)
	if res.Outcome == auth.ChallengeRequired {
		s.metrics.ObserveAuth("challenge")
		return s.challengeResult(ctx, id, res.Challenge)
	}
	s.metrics.ObserveAuth("success")
	return s.activate(ctx, ls)
}

// CompleteNewPassword answers the challenge bound to challengeToken.
func (s *AuthService) CompleteNewPassword(ctx context.Context, challengeToken, newPassword string) (SignInResult, error) {
	claims, err := s.parse(challengeToken, kindChallenge)
	if err != nil {
		return SignInResult{}, err
	}
	ls, err := s.sessions.get(claims.SessionID)
	if err != nil {
		return SignInResult{}, err
	}

	res, err := ls.ctrl.CompleteNewPassword(ctx, newPassword)
	if err != nil {
		s.metrics.ObserveAuth("failure")
		return SignInResult{}, err
	}
	if res.Outcome == auth.ChallengeRequired {
		// Providers may chain challenges; the session stays pending with a fresh deadline.
		return s.challengeResult(ctx, ls.id, res.Challenge)
	}
	s.metrics.ObserveAuth("success")
	return s.activate(ctx, ls)
}

// ParseToken validates a panel token and returns its live session id.
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	claims, err := s.parse(accessToken, kindAccess)
	if err != nil {
		return "", err
	}
	if _, err := s.sessions.get(claims.SessionID); err != nil {
		return "", err
	}
	return claims.SessionID, nil
}

// SignOut ends the session: its poll stops and its history is dropped.
func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	if !s.sessions.remove(sessionID) {
		return ErrSessionNotFound
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.log.Infow("session_signed_out", "session_id", sessionID)
	return nil
}

func (s *AuthService) activate(ctx context.Context, ls *liveSession) (SignInResult, error) {
	expires := s.clock.Now().UTC().Add(s.tokenTTL)
	if err := s.repo.Activate(ctx, ls.id, expires); err != nil {
		s.sessions.remove(ls.id)
		return SignInResult{}, err
	}
	token, err := s.issue(ls.id, ls.username, kindAccess, expires)
	if err != nil {
		return SignInResult{}, err
	}
	s.log.Infow("session_opened", "session_id", ls.id, "username", ls.username, "provider", ls.ctrl.Session().Provider())
	return SignInResult{Token: token, ExpiresAt: expires}, nil
}

// challengeResult issues a challenge token and moves the pending session's expiry
// to match it.
func (s *AuthService) challengeResult(ctx context.Context, id string, ch *auth.Challenge) (SignInResult, error) {
	expires := s.clock.Now().UTC().Add(s.challengeTTL)
	if err := s.repo.Extend(ctx, id, expires); err != nil {
		return SignInResult{}, err
	}
	token, err := s.issue(id, ch.Username, kindChallenge, expires)
	if err != nil {
		return SignInResult{}, err
	}
	return SignInResult{
		ChallengeToken:     token,
		Challenge:          ch.Name,
		RequiredAttributes: ch.RequiredAttributes,
		ExpiresAt:          expires,
	}, nil
}

// issue returns a signed HS256 panel token.
func (s *AuthService) issue(sessionID, username, kind string, expires time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(s.clock.Now()),
			ID:        uuid.NewString(),
		},
		SessionID: sessionID,
		Kind:      kind,
	})
	return token.SignedString(s.signingKey)
}

func (s *AuthService) parse(raw, kind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Ensure HMAC signing is used
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func randomKey() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random signing key: %v", err))
	}
	return b
}
