package auth

import "context"

// NoneProvider accepts every caller as a fixed test client. NewProvider only
// builds it when ENV=test.
type NoneProvider struct{}

func (NoneProvider) Name() string { return "none" }

func (NoneProvider) Authenticate(context.Context, Credentials) (*Identity, error) {
	return &Identity{
		ClientID:   "test_client",
		ClientName: "Test Client",
		Scopes:     []string{ScopeAll},
		Metadata:   map[string]string{"auth_method": "none", "warning": "NO AUTH - TEST ONLY"},
	}, nil
}
