package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"agentconsent/internal/auth"
	"agentconsent/pkg/platform/httputil"
	"agentconsent/pkg/requestcontext"
)

// mockHandler captures whether it was called and the context it saw.
type mockHandler struct {
	called  bool
	context context.Context
	body    string
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	b, _ := io.ReadAll(r.Body)
	m.body = string(b)
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareTestSuite struct {
	suite.Suite
	metrics     *Metrics
	nextHandler *mockHandler
	middleware  func(http.Handler) http.Handler
}

func (s *AuthMiddlewareTestSuite) SetupTest() {
	s.metrics = NewMetrics(prometheus.NewRegistry())
	s.nextHandler = &mockHandler{}
	provider := auth.NewAPIKeyProvider(map[string]string{"good-key": "agent-a"})
	s.middleware = RequireAuth(provider, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{Metrics: s.metrics})
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareTestSuite))
}

func (s *AuthMiddlewareTestSuite) serve(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.middleware(s.nextHandler).ServeHTTP(rec, r)
	return rec
}

func (s *AuthMiddlewareTestSuite) TestBearerHeader() {
	r := httptest.NewRequest(http.MethodPost, "/v1/tools/check_consent_sms", strings.NewReader(`{"requester_phone":"+15551110000"}`))
	r.Header.Set("Authorization", "Bearer good-key")

	rec := s.serve(r)

	s.Equal(http.StatusOK, rec.Code)
	s.Require().True(s.nextHandler.called)
	s.Equal("agent-a", requestcontext.ClientID(s.nextHandler.context))
	identity := auth.IdentityFromContext(s.nextHandler.context)
	s.Require().NotNil(identity)
	s.Equal("agent-a", identity.ClientID)
	s.Equal(`{"requester_phone":"+15551110000"}`, s.nextHandler.body, "body must be readable downstream")
}

func (s *AuthMiddlewareTestSuite) TestMetaAPIKey() {
	body := `{"_meta":{"api_key":"good-key"},"scope":"calls"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/tools/request_consent_sms", strings.NewReader(body))

	rec := s.serve(r)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("agent-a", requestcontext.ClientID(s.nextHandler.context))
	s.Equal(body, s.nextHandler.body)
}

func (s *AuthMiddlewareTestSuite) TestMissingCredentials() {
	r := httptest.NewRequest(http.MethodPost, "/v1/tools/check_consent_sms", strings.NewReader(`{}`))

	rec := s.serve(r)

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.False(s.nextHandler.called)
	var body httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal("unauthorized", body.Error)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Failures.WithLabelValues(reasonMissing)))
}

func (s *AuthMiddlewareTestSuite) TestInvalidKey() {
	r := httptest.NewRequest(http.MethodPost, "/v1/tools/check_consent_sms", strings.NewReader(`{}`))
	r.Header.Set("Authorization", "Bearer wrong")

	rec := s.serve(r)

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.False(s.nextHandler.called)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Failures.WithLabelValues(reasonInvalid)))
}

func (s *AuthMiddlewareTestSuite) TestMalformedBodyIsLeftToHandler() {
	r := httptest.NewRequest(http.MethodPost, "/v1/tools/check_consent_sms", strings.NewReader(`{not json`))
	r.Header.Set("Authorization", "Bearer good-key")

	rec := s.serve(r)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(`{not json`, s.nextHandler.body)
}

func (s *AuthMiddlewareTestSuite) TestLargeBodyWithRaisedLimit() {
	provider := auth.NewAPIKeyProvider(map[string]string{"good-key": "agent-a"})
	s.middleware = RequireAuth(provider, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		Metrics:      s.metrics,
		MaxBodyBytes: 4 << 20,
	})
	body := `{"scope":"` + strings.Repeat("x", 2<<20) + `","_meta":{"api_key":"good-key"}}`
	r := httptest.NewRequest(http.MethodPost, "/v1/tools/request_consent_sms", strings.NewReader(body))

	rec := s.serve(r)

	s.Equal(http.StatusOK, rec.Code, "_meta after the first MiB is still found")
	s.Equal("agent-a", requestcontext.ClientID(s.nextHandler.context))
	s.Len(s.nextHandler.body, len(body))
	s.Equal(body, s.nextHandler.body)
}

func (s *AuthMiddlewareTestSuite) TestBodyBeyondPeekIsStillDelivered() {
	provider := auth.NewAPIKeyProvider(map[string]string{"good-key": "agent-a"})
	s.middleware = RequireAuth(provider, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		Metrics:      s.metrics,
		MaxBodyBytes: 16,
	})
	body := `{"requester_phone":"+15551110000","scope":"calls"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/tools/check_consent_sms", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer good-key")

	rec := s.serve(r)

	s.Equal(http.StatusOK, rec.Code)
	s.Equal(body, s.nextHandler.body)
}

func (s *AuthMiddlewareTestSuite) TestOversizedBodyIsTooLarge() {
	body := `{"scope":"` + strings.Repeat("x", 64) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/v1/tools/check_consent_sms", strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer good-key")
	rec := httptest.NewRecorder()
	r.Body = http.MaxBytesReader(rec, r.Body, 16)

	s.middleware(s.nextHandler).ServeHTTP(rec, r)

	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)
	s.False(s.nextHandler.called)
}

func TestRequireAuth_BootstrapKey(t *testing.T) {
	next := &mockHandler{}
	provider := auth.NewAPIKeyProvider(map[string]string{"boot": "bootstrap-client"})
	h := RequireAuth(provider, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{BootstrapKey: "boot"})(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tools/list_consent_requests", strings.NewReader(`{}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bootstrap-client", requestcontext.ClientID(next.context))
}

func TestRequireAuth_NoneProvider(t *testing.T) {
	next := &mockHandler{}
	h := RequireAuth(auth.NoneProvider{}, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{})(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tools/list_consent_requests", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test_client", requestcontext.ClientID(next.context))
}

func TestRequireScope(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewMetrics(prometheus.NewRegistry())

	tests := []struct {
		name     string
		identity *auth.Identity
		want     int
	}{
		{"no identity", nil, http.StatusUnauthorized},
		{"missing scope", &auth.Identity{ClientID: "a", Scopes: []string{"consent:read"}}, http.StatusForbidden},
		{"exact scope", &auth.Identity{ClientID: "a", Scopes: []string{"consent:admin"}}, http.StatusOK},
		{"wildcard", &auth.Identity{ClientID: "a", Scopes: []string{auth.ScopeAll}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &mockHandler{}
			r := httptest.NewRequest(http.MethodPost, "/v1/tools/admin_simulate_response", nil)
			if tt.identity != nil {
				r = r.WithContext(auth.WithIdentity(r.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			RequireScope("consent:admin", logger, m)(next).ServeHTTP(rec, r)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.want == http.StatusOK, next.called)
		})
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues(reasonInsufficient)))
}
