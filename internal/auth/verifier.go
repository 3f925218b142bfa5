package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier checks id token signatures, issuer, audience and expiry.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier initializes a verifier using discovery on issuer.
// For Cognito the issuer is https://cognito-idp.<region>.amazonaws.com/<user pool id>.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init oidc provider: %w", err)
	}
	return &OIDCVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// idClaims covers Cognito and generic OIDC username claims.
type idClaims struct {
	Email             string `json:"email"`
	CognitoUsername   string `json:"cognito:username"`
	PreferredUsername string `json:"preferred_username"`
}

// Verify validates rawIDToken and returns the identity it asserts.
func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	token, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var claims idClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}

	username := claims.CognitoUsername
	if username == "" {
		username = claims.PreferredUsername
	}
	return &Identity{
		Subject:  token.Subject,
		Username: username,
		Email:    claims.Email,
		Expiry:   token.Expiry,
	}, nil
}
