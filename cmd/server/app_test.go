package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"agentconsent/internal/platform/config"
)

const testAPIKey = "test-key"

type twilioStub struct {
	mu     sync.Mutex
	bodies []url.Values
}

func (s *twilioStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.mu.Lock()
	s.bodies = append(s.bodies, r.PostForm)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"sid":"SM00000000000000000000000000000001"}`))
}

func (s *twilioStub) last() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bodies) == 0 {
		return nil
	}
	return s.bodies[len(s.bodies)-1]
}

type AppSuite struct {
	suite.Suite
	twilio *twilioStub
	stub   *httptest.Server
	app    *app
	server *httptest.Server
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) config(env string) config.Config {
	return config.Config{
		Env: env,
		Server: config.Server{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		Auth: config.AuthConfig{
			Provider: config.AuthAPIKey,
			APIKeys:  testAPIKey + ":scheduling-agent",
		},
		Twilio: config.TwilioConfig{
			AccountSID:  "AC123",
			AuthToken:   "secret",
			PhoneNumber: "+15550001111",
			BaseURL:     s.stub.URL,
		},
		Consent: config.ConsentConfig{
			BaseURL:  "https://consent.example.com",
			CacheTTL: time.Minute,
		},
	}
}

func (s *AppSuite) start(env string) {
	s.startWith(s.config(env))
}

func (s *AppSuite) startWith(cfg config.Config) {
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := buildApp(context.Background(), cfg, logger, reg, reg)
	s.Require().NoError(err)
	s.app = a
	s.server = httptest.NewServer(a.router)
}

func (s *AppSuite) SetupTest() {
	s.twilio = &twilioStub{}
	s.stub = httptest.NewServer(s.twilio)
	s.start(config.EnvTest)
}

func (s *AppSuite) TearDownTest() {
	s.server.Close()
	s.app.close()
	s.stub.Close()
}

func (s *AppSuite) post(path string, body any, key string) (*http.Response, map[string]any) {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, bytes.NewReader(raw))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	return s.do(req)
}

func (s *AppSuite) do(req *http.Request) (*http.Response, map[string]any) {
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

func (s *AppSuite) requestSMS(requester, target string) map[string]any {
	resp, out := s.post("/v1/tools/request_consent_sms", map[string]any{
		"requester_phone": requester,
		"requester_name":  "Dr. Smith's Office",
		"target_phone":    target,
		"scope":           "appointment reminders",
	}, testAPIKey)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	return out
}

func (s *AppSuite) TestToolsRequireAPIKey() {
	resp, out := s.post("/v1/tools/list_consent_requests", map[string]any{}, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Equal("unauthorized", out["error"])

	resp, _ = s.post("/v1/tools/list_consent_requests", map[string]any{}, "wrong")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *AppSuite) TestToolsRejectNonJSON() {
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/v1/tools/list_consent_requests", strings.NewReader("status=pending"))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	resp, _ := s.do(req)
	s.Equal(http.StatusUnsupportedMediaType, resp.StatusCode)
}

func (s *AppSuite) TestRequestGrantCheckFlow() {
	out := s.requestSMS("+15551230001", "+15559870001")
	s.Equal("pending", out["status"])
	link, _ := out["consent_url"].(string)
	s.Require().True(strings.HasPrefix(link, "https://consent.example.com/v1/consent/"), link)

	sent := s.twilio.last()
	s.Require().NotNil(sent)
	s.Equal("+15559870001", sent.Get("To"))
	s.Equal("+15550001111", sent.Get("From"))
	s.Contains(sent.Get("Body"), link)

	u, err := url.Parse(link)
	s.Require().NoError(err)

	resp, err := http.Get(s.server.URL + u.Path)
	s.Require().NoError(err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(page), "appointment reminders")

	resp, err = http.PostForm(s.server.URL+u.Path+"/grant", nil)
	s.Require().NoError(err)
	page, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(page), "Consent Granted")

	resp, check := s.post("/v1/tools/check_consent_sms", map[string]any{
		"requester_phone": "+15551230001",
		"target_phone":    "+15559870001",
	}, testAPIKey)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, check["has_consent"])
	s.Equal("granted", check["status"])
}

func (s *AppSuite) TestAdminSimulateInTestEnv() {
	s.requestSMS("+15551230002", "+15559870002")

	resp, out := s.post("/v1/tools/admin_simulate_response", map[string]any{
		"target_contact_type":     "phone",
		"target_contact_value":    "+15559870002",
		"requester_contact_value": "+15551230002",
		"response":                "NO",
	}, testAPIKey)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, out["success"])
	s.Equal("revoked", out["new_status"])
}

func (s *AppSuite) TestAdminSimulateHiddenOutsideTestEnv() {
	s.server.Close()
	s.app.close()
	s.start(config.EnvDevelopment)

	resp, _ := s.post("/v1/tools/admin_simulate_response", map[string]any{
		"target_contact_value":    "+15559870003",
		"requester_contact_value": "+15551230003",
		"response":                "YES",
	}, testAPIKey)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *AppSuite) TestToolsRateLimitedPerClient() {
	s.server.Close()
	s.app.close()
	cfg := s.config(config.EnvTest)
	cfg.RateLimit = config.RateLimitConfig{ToolRequests: 2, Window: time.Minute}
	s.startWith(cfg)

	for range 2 {
		resp, _ := s.post("/v1/tools/list_consent_requests", map[string]any{}, testAPIKey)
		s.Equal(http.StatusOK, resp.StatusCode)
	}
	resp, out := s.post("/v1/tools/list_consent_requests", map[string]any{}, testAPIKey)
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	s.Equal("rate_limit_exceeded", out["error"])
	s.NotEmpty(resp.Header.Get("Retry-After"))
}

func (s *AppSuite) TestHealthAndMetrics() {
	resp, err := http.Get(s.server.URL + "/health/live")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	s.requestSMS("+15551230004", "+15559870004")

	resp, err = http.Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(body), "agentconsent_requests_created_total")
}

func (s *AppSuite) TestExpirySweepRunsAgainstMemoryStores() {
	s.requestSMS("+15551230005", "+15559870005")

	res, err := s.app.expiry.RunOnce(context.Background())
	s.Require().NoError(err)
	s.Equal(0, res.Expired)
	s.Zero(res.PurgedOutbox)
}

func (s *AppSuite) TestSeededGrantIsVisibleToTools() {
	created, err := s.app.seeder.SeedAll(context.Background())
	s.Require().NoError(err)
	s.Positive(created)

	resp, check := s.post("/v1/tools/check_consent_sms", map[string]any{
		"requester_phone": "+15550001000",
		"target_phone":    "+15550002002",
		"scope":           "calendar_access",
	}, testAPIKey)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(true, check["has_consent"])
}
