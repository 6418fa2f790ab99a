package auth

import (
	"errors"
	"fmt"

	"agentconsent/internal/platform/config"
)

// NewProvider builds the provider named by cfg.Auth.Provider.
func NewProvider(cfg config.Config, client HTTPDoer) (Provider, error) {
	switch cfg.Auth.Provider {
	case config.AuthNone:
		if !cfg.IsTest() {
			return nil, errors.New("AUTH_PROVIDER=none is only allowed in test environment. Set ENV=test or use a different auth provider.")
		}
		return NoneProvider{}, nil
	case config.AuthAPIKey, "":
		keys := config.ParseAPIKeys(cfg.Auth.APIKeys)
		if len(keys) == 0 && cfg.IsProduction() {
			return nil, errors.New("API_KEYS must be configured in production. Set API_KEYS=key1:client1,key2:client2")
		}
		return NewAPIKeyProvider(keys), nil
	case config.AuthOAuth:
		if cfg.Auth.OAuthIssuer == "" || cfg.Auth.OAuthAudience == "" {
			return nil, errors.New("OAuth requires OAUTH_ISSUER_URL and OAUTH_AUDIENCE to be set.")
		}
		return NewOAuthProvider(OAuthConfig{
			Issuer:     cfg.Auth.OAuthIssuer,
			Audience:   cfg.Auth.OAuthAudience,
			Secret:     cfg.Auth.OAuthSecret,
			HTTPClient: client,
		}), nil
	default:
		return nil, fmt.Errorf("unknown auth provider: %s", cfg.Auth.Provider)
	}
}
