// Package auth resolves API callers to client identities.
//
// Three providers exist: api_key (static keys mapped to client ids), oauth
// (JWT bearer tokens checked against an issuer) and none (test only). The
// middleware in pkg/platform/middleware/auth extracts credentials from the
// request and hands them to the configured Provider.
package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	dErrors "agentconsent/pkg/domain-errors"
)

// ScopeAll grants every scope.
const ScopeAll = "*"

// Identity describes an authenticated caller.
type Identity struct {
	ClientID   string
	ClientName string
	Scopes     []string
	Metadata   map[string]string
}

// HasScope reports whether the identity holds scope directly or via ScopeAll.
func (i *Identity) HasScope(scope string) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Scopes, scope) || slices.Contains(i.Scopes, ScopeAll)
}

// CredentialSource records where a credential was found.
type CredentialSource string

const (
	SourceNone      CredentialSource = ""
	SourceHeader    CredentialSource = "authorization_header"
	SourceMeta      CredentialSource = "meta"
	SourceBootstrap CredentialSource = "bootstrap_key"
)

// Credentials is the raw secret presented by a caller.
type Credentials struct {
	Token  string
	Source CredentialSource
}

func (c Credentials) Empty() bool { return c.Token == "" }

// Provider authenticates credentials. Implementations return a CodeUnauthorized
// error when the credentials are missing or invalid.
type Provider interface {
	Name() string
	Authenticate(ctx context.Context, creds Credentials) (*Identity, error)
}

// ExtractCredentials picks the caller's credential in priority order: the
// Authorization bearer header, then the request's _meta block (api_key or
// bearer_token), then the configured bootstrap key.
func ExtractCredentials(r *http.Request, meta map[string]any, bootstrapKey string) Credentials {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "bearer") && strings.TrimSpace(token) != "" {
			return Credentials{Token: strings.TrimSpace(token), Source: SourceHeader}
		}
	}
	for _, key := range []string{"api_key", "bearer_token"} {
		if v, ok := meta[key].(string); ok && v != "" {
			return Credentials{Token: v, Source: SourceMeta}
		}
	}
	if bootstrapKey != "" {
		return Credentials{Token: bootstrapKey, Source: SourceBootstrap}
	}
	return Credentials{}
}

type identityKey struct{}

// WithIdentity stores the authenticated identity on ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity set by the auth middleware, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

func unauthorized(msg string) error {
	return dErrors.New(dErrors.CodeUnauthorized, msg)
}
