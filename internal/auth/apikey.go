package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"agentconsent/pkg/secrets"
)

// APIKeyProvider authenticates static keys. A key beginning with "$2" is a
// bcrypt hash and is verified with secrets.Verify; anything else is compared
// in constant time.
type APIKeyProvider struct {
	plain  map[string]string
	hashed map[string]string
}

func NewAPIKeyProvider(keys map[string]string) *APIKeyProvider {
	p := &APIKeyProvider{plain: make(map[string]string), hashed: make(map[string]string)}
	for key, client := range keys {
		if strings.HasPrefix(key, "$2") {
			p.hashed[key] = client
			continue
		}
		p.plain[key] = client
	}
	return p
}

func (p *APIKeyProvider) Name() string { return "api_key" }

// KeyCount is the number of configured keys.
func (p *APIKeyProvider) KeyCount() int { return len(p.plain) + len(p.hashed) }

func (p *APIKeyProvider) Authenticate(_ context.Context, creds Credentials) (*Identity, error) {
	if creds.Empty() {
		return nil, unauthorized("missing api key")
	}
	client, ok := p.lookup(creds.Token)
	if !ok {
		return nil, unauthorized("invalid api key")
	}
	return &Identity{
		ClientID:   client,
		ClientName: client,
		Scopes:     []string{ScopeAll},
		Metadata:   map[string]string{"auth_method": "api_key"},
	}, nil
}

func (p *APIKeyProvider) lookup(token string) (string, bool) {
	var (
		match string
		found bool
	)
	// No early exit: every key is compared.
	for key, client := range p.plain {
		if subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1 {
			match, found = client, true
		}
	}
	if found {
		return match, true
	}
	for hash, client := range p.hashed {
		if secrets.Verify(token, hash) == nil {
			return client, true
		}
	}
	return "", false
}
