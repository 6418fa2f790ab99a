package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"agentconsent/pkg/requestcontext"
)

// jwksMinRefresh bounds how often an unknown kid forces a JWKS refetch.
const jwksMinRefresh = time.Minute

// HTTPDoer is the subset of *http.Client used to fetch the issuer's JWKS.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OAuthClaims are the token claims the server reads. Scope is the
// space-delimited OAuth scope string.
type OAuthClaims struct {
	Scope string `json:"scope,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// OAuthConfig configures OAuthProvider. With Secret set, tokens are HS256
// signed with it; otherwise RS256 keys come from {Issuer}/.well-known/jwks.json.
type OAuthConfig struct {
	Issuer     string
	Audience   string
	Secret     string
	HTTPClient HTTPDoer
}

// OAuthProvider validates JWT bearer tokens issued for this server.
type OAuthProvider struct {
	issuer   string
	audience string
	secret   []byte
	client   HTTPDoer

	group     singleflight.Group
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func NewOAuthProvider(cfg OAuthConfig) *OAuthProvider {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	p := &OAuthProvider{
		issuer:   strings.TrimRight(cfg.Issuer, "/"),
		audience: cfg.Audience,
		client:   client,
	}
	if cfg.Secret != "" {
		p.secret = []byte(cfg.Secret)
	}
	return p
}

func (p *OAuthProvider) Name() string { return "oauth" }

func (p *OAuthProvider) Authenticate(ctx context.Context, creds Credentials) (*Identity, error) {
	if creds.Empty() {
		return nil, unauthorized("missing bearer token")
	}

	methods := []string{jwt.SigningMethodRS256.Alg()}
	if p.secret != nil {
		methods = []string{jwt.SigningMethodHS256.Alg()}
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods(methods),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return requestcontext.Now(ctx) }),
	)

	claims := &OAuthClaims{}
	token, err := parser.ParseWithClaims(creds.Token, claims, func(t *jwt.Token) (interface{}, error) {
		if p.secret != nil {
			return p.secret, nil
		}
		kid, _ := t.Header["kid"].(string)
		return p.publicKey(ctx, kid)
	})
	if err != nil || !token.Valid {
		return nil, unauthorized("invalid bearer token")
	}

	subject := claims.Subject
	if subject == "" {
		subject = "unknown"
	}
	return &Identity{
		ClientID:   subject,
		ClientName: claims.Name,
		Scopes:     strings.Fields(claims.Scope),
		Metadata:   map[string]string{"auth_method": "oauth", "issuer": p.issuer},
	}, nil
}

func (p *OAuthProvider) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	p.mu.RLock()
	key, ok := p.keys[kid]
	stale := time.Since(p.fetchedAt) >= jwksMinRefresh
	p.mu.RUnlock()
	if ok {
		return key, nil
	}
	if !stale && p.keys != nil {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	if _, err, _ := p.group.Do("jwks", func() (interface{}, error) {
		return nil, p.refresh(ctx)
	}); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if key, ok := p.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (p *OAuthProvider) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.issuer+"/.well-known/jwks.json", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := k.rsaKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	p.mu.Lock()
	p.keys = keys
	p.fetchedAt = time.Now()
	p.mu.Unlock()
	return nil
}

func (k jwk) rsaKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(new(big.Int).SetBytes(e).Int64()),
	}, nil
}
