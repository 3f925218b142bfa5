package auth

import (
	"context"
	"fmt"

	"gameserver_panel/internal/config"
	"gameserver_panel/internal/logger"
)

// Registry holds the configured identity providers and allows lookup by name.
type Registry struct {
	providers map[string]IdentityProvider
	primary   string
}

// NewRegistry registers the given providers by name. The first one is the default.
func NewRegistry(list ...IdentityProvider) *Registry {
	r := &Registry{providers: make(map[string]IdentityProvider, len(list))}
	for _, p := range list {
		if r.primary == "" {
			r.primary = p.Name()
		}
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the provider by name; an empty name selects the default.
func (r *Registry) Get(name string) (IdentityProvider, error) {
	if name == "" {
		name = r.primary
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown identity provider: %q", name)
	}
	return p, nil
}

// Default returns the name of the default provider.
func (r *Registry) Default() string { return r.primary }

// BuildRegistry creates the provider selected by cfg.Provider and, when an OIDC token
// endpoint is configured alongside Cognito, the password-grant provider as well.
func BuildRegistry(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) (*Registry, error) {
	var list []IdentityProvider

	grant := func() (IdentityProvider, error) {
		return NewPasswordGrant(cfg.ClientID, cfg.ClientSecret, cfg.OIDC.TokenURL, log)
	}

	switch cfg.Provider {
	case config.ProviderCognito:
		c, err := NewCognito(ctx, cfg.CognitoRegion(), cfg.ClientID, cfg.ClientSecret, log)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
		if cfg.OIDC.TokenURL != "" {
			g, err := grant()
			if err != nil {
				return nil, err
			}
			list = append(list, g)
		}
	case config.ProviderOIDC:
		g, err := grant()
		if err != nil {
			return nil, err
		}
		list = append(list, g)
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
	}
	return NewRegistry(list...), nil
}

// BuildVerifier returns an id token verifier when cfg asks for one, nil otherwise.
func BuildVerifier(ctx context.Context, cfg config.AuthConfig) (TokenVerifier, error) {
	if !cfg.VerifyIDToken {
		return nil, nil
	}
	issuer := cfg.Issuer()
	if issuer == "" {
		return nil, fmt.Errorf("id token verification needs an issuer for provider %q", cfg.Provider)
	}
	v, err := NewOIDCVerifier(ctx, issuer, cfg.ClientID)
	if err != nil {
		return nil, err
	}
	return v, nil
}
