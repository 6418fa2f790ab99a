package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"agentconsent/internal/auth"
	dErrors "agentconsent/pkg/domain-errors"
	"agentconsent/pkg/platform/httputil"
	"agentconsent/pkg/requestcontext"
)

// Failure reasons recorded in Metrics.
const (
	reasonMissing      = "missing_credentials"
	reasonInvalid      = "invalid_credentials"
	reasonInsufficient = "insufficient_scope"
)

// defaultMetaPeekBytes bounds how much of a JSON body is buffered to find _meta
// when Options.MaxBodyBytes is unset.
const defaultMetaPeekBytes = 1 << 20

// Options tune RequireAuth.
type Options struct {
	// BootstrapKey is the last-resort credential when the request carries none.
	BootstrapKey string
	Metrics      *Metrics
	// MaxBodyBytes should match the server's body limit so _meta is found in
	// any body the handler would accept.
	MaxBodyBytes int64
}

// RequireAuth authenticates every request with provider and stores the
// resulting auth.Identity (and its client id) on the request context.
// Credentials come from the Authorization header, the JSON body's _meta block,
// or the bootstrap key, in that order.
func RequireAuth(provider auth.Provider, logger *slog.Logger, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			meta, err := peekMeta(r, opts.MaxBodyBytes)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{Error: "request_too_large"})
					return
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
				return
			}

			creds := auth.ExtractCredentials(r, meta, opts.BootstrapKey)
			if creds.Empty() && provider.Name() != "none" {
				logger.WarnContext(ctx, "unauthorized access - missing credentials",
					"request_id", requestID,
				)
				opts.Metrics.IncrementFailure(reasonMissing)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing credentials"))
				return
			}

			identity, err := provider.Authenticate(ctx, creds)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid credentials",
					"provider", provider.Name(),
					"source", string(creds.Source),
					"request_id", requestID,
				)
				opts.Metrics.IncrementFailure(reasonInvalid)
				if !dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					err = dErrors.Wrap(err, dErrors.CodeUnauthorized, "Invalid credentials")
				}
				httputil.WriteError(w, err)
				return
			}

			ctx = auth.WithIdentity(ctx, identity)
			ctx = requestcontext.WithClientID(ctx, identity.ClientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope rejects requests whose identity lacks scope. It must run after
// RequireAuth.
func RequireScope(scope string, logger *slog.Logger, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity := auth.IdentityFromContext(ctx)
			if identity == nil {
				m.IncrementFailure(reasonMissing)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing credentials"))
				return
			}
			if !identity.HasScope(scope) {
				logger.WarnContext(ctx, "forbidden - insufficient scope",
					"client_id", identity.ClientID,
					"scope", scope,
					"request_id", requestcontext.RequestID(ctx),
				)
				m.IncrementFailure(reasonInsufficient)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "missing scope: "+scope))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// replayBody serves the peeked prefix and then whatever is left of the
// original body.
type replayBody struct {
	io.Reader
	io.Closer
}

// peekMeta reads the _meta object from a JSON body and restores the body for
// the next handler. At most limit bytes are buffered; anything beyond is
// still delivered downstream. Non-JSON and empty bodies yield no metadata.
func peekMeta(r *http.Request, limit int64) (map[string]any, error) {
	if r.Body == nil || r.Body == http.NoBody || r.Method == http.MethodGet {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultMetaPeekBytes
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return nil, err
	}
	r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(buf), r.Body), Closer: r.Body}

	var envelope struct {
		Meta map[string]any `json:"_meta"`
	}
	if len(bytes.TrimSpace(buf)) == 0 || json.Unmarshal(buf, &envelope) != nil {
		// Malformed JSON is reported by the handler's decoder.
		return nil, nil
	}
	return envelope.Meta, nil
}
