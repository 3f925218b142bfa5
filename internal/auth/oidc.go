package auth

import (
	"context"
	"errors"
	"fmt"

	"gameserver_panel/internal/logger"

	"golang.org/x/oauth2"
)

const oidcProviderName = "oidc"

// PasswordGrant authenticates with the OAuth2 resource owner password grant against
// any OpenID Connect provider and returns its id_token. It never issues challenges.
type PasswordGrant struct {
	oauthConfig *oauth2.Config
	log         *logger.Logger
}

// NewPasswordGrant configures the grant for a token endpoint.
func NewPasswordGrant(clientID, clientSecret, tokenURL string, log *logger.Logger) (*PasswordGrant, error) {
	if clientID == "" || tokenURL == "" {
		return nil, errors.New("oidc password grant requires client id and token url")
	}
	return &PasswordGrant{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"openid", "email", "profile"},
		},
		log: logger.OrNop(log).Named("oidc"),
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *PasswordGrant) Name() string { return oidcProviderName }

// InitiateAuth exchanges the credentials for tokens.
func (p *PasswordGrant) InitiateAuth(ctx context.Context, username, password string) (Result, error) {
	token, err := p.oauthConfig.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		p.log.Infow("oidc_token_request_failed", "username", username, "err", err)
		return Result{}, newAuthError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return Result{}, &AuthError{Message: "identity provider did not return an id_token"}
	}
	return Result{Outcome: Authenticated, Token: rawIDToken}, nil
}

// RespondNewPassword is not available through the password grant.
func (p *PasswordGrant) RespondNewPassword(ctx context.Context, ch Challenge, newPassword string) (Result, error) {
	return Result{}, &AuthError{
		Message: fmt.Sprintf("%s: set the new password at the identity provider", ErrChallengeUnsupported),
		Err:     ErrChallengeUnsupported,
	}
}
