// Package auth authenticates panel users against a hosted identity provider and holds
// the resulting bearer token for one panel session.
package auth

import (
	"context"
	"errors"
	"time"
)

// Outcome tells which branch an authentication call took.
type Outcome int

const (
	// Authenticated means Result.Token holds a bearer token.
	Authenticated Outcome = iota + 1
	// ChallengeRequired means Result.Challenge must be answered before a token is issued.
	ChallengeRequired
)

func (o Outcome) String() string {
	switch o {
	case Authenticated:
		return "authenticated"
	case ChallengeRequired:
		return "challenge_required"
	default:
		return "unknown"
	}
}

// ChallengeNewPassword is the only challenge the panel knows how to answer.
const ChallengeNewPassword = "NEW_PASSWORD_REQUIRED"

// Challenge is a provider-mandated step between sign-in and token issuance.
type Challenge struct {
	Name               string
	Username           string
	Session            string // opaque provider state, passed back verbatim
	UserAttributes     map[string]string
	RequiredAttributes []string
}

// Result of Authenticate or CompleteChallenge.
type Result struct {
	Outcome   Outcome
	Token     string
	Challenge *Challenge
}

// Identity is what the panel knows about the signed-in user, read from the id token.
type Identity struct {
	Subject  string
	Username string
	Email    string
	Expiry   time.Time
}

var (
	ErrNoPendingChallenge   = errors.New("no pending challenge")
	ErrChallengeUnsupported = errors.New("identity provider does not support password challenges")
	ErrNotAuthenticated     = errors.New("not authenticated")
	errMissingCredentials   = errors.New("username and password are required")
	errMissingNewPassword   = errors.New("new password is required")
)

// IdentityProvider is the external collaborator that turns credentials into a token.
// Implementations return facts only and keep no per-user state.
type IdentityProvider interface {
	// Name returns the provider identifier (e.g. "cognito", "oidc").
	Name() string

	// InitiateAuth checks the credentials. Failures are returned as *AuthError.
	InitiateAuth(ctx context.Context, username, password string) (Result, error)

	// RespondNewPassword answers a ChallengeNewPassword challenge.
	RespondNewPassword(ctx context.Context, ch Challenge, newPassword string) (Result, error)
}

// TokenVerifier validates an id token and extracts the user's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*Identity, error)
}
