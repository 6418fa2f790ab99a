package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"agentconsent/internal/notification"
)

func strPtr(s string) *string { return &s }

type TwilioSuite struct {
	suite.Suite
	server   *httptest.Server
	handler  http.HandlerFunc
	provider *TwilioProvider
}

func TestTwilioSuite(t *testing.T) {
	suite.Run(t, new(TwilioSuite))
}

func (s *TwilioSuite) SetupTest() {
	s.handler = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
	s.provider = New(Config{
		AccountSID:  "AC123",
		AuthToken:   "secret",
		PhoneNumber: "+15550000000",
		BaseURL:     s.server.URL,
		HTTPClient:  s.server.Client(),
	})
}

func (s *TwilioSuite) TearDownTest() {
	s.server.Close()
}

func (s *TwilioSuite) TestSendConsentRequest() {
	s.Run("posts the message and returns the sid", func() {
		var form url.Values
		s.handler = func(w http.ResponseWriter, r *http.Request) {
			s.Equal(http.MethodPost, r.Method)
			s.Equal("/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			s.True(ok)
			s.Equal("AC123", user)
			s.Equal("secret", pass)
			s.NoError(r.ParseForm())
			form = r.PostForm
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"sid":"SM42","status":"queued"}`))
		}

		res := s.provider.SendConsentRequest(context.Background(), notification.SendInput{
			TargetContact: "+15551234567",
			RequesterName: "Alice",
			TargetName:    strPtr("Bob"),
			Scope:         "appointment reminders",
			ConsentURL:    strPtr("https://consent.example.com/v1/consent/abc"),
		})

		s.True(res.Success)
		s.Equal("twilio", res.Provider)
		s.Require().NotNil(res.MessageID)
		s.Equal("SM42", *res.MessageID)
		s.Equal("+15551234567", form.Get("To"))
		s.Equal("+15550000000", form.Get("From"))
		s.Equal("Hi Bob, Alice requests AI agent consent for: appointment reminders. Click to grant consent: https://consent.example.com/v1/consent/abc", form.Get("Body"))
	})

	s.Run("reports API errors", func() {
		s.handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":21211,"message":"The 'To' number is not a valid phone number."}`))
		}
		res := s.provider.SendConsentRequest(context.Background(), notification.SendInput{
			TargetContact: "+15551234567",
			RequesterName: "Alice",
			Scope:         "calls",
		})
		s.False(res.Success)
		s.Require().NotNil(res.Error)
		s.Equal("Twilio error: The 'To' number is not a valid phone number.", *res.Error)
	})

	s.Run("server errors without a JSON body", func() {
		s.handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		res := s.provider.SendConsentRequest(context.Background(), notification.SendInput{
			TargetContact: "+15551234567",
			RequesterName: "Alice",
			Scope:         "calls",
		})
		s.False(res.Success)
		s.Equal("Twilio error: Service Unavailable", *res.Error)
	})

	s.Run("invalid phone never reaches the API", func() {
		s.handler = func(http.ResponseWriter, *http.Request) { s.Fail("unexpected request") }
		res := s.provider.SendConsentRequest(context.Background(), notification.SendInput{
			TargetContact: "555-1234",
			RequesterName: "Alice",
			Scope:         "calls",
		})
		s.False(res.Success)
		s.Equal("Invalid phone number format: 555-1234", *res.Error)
	})
}

func TestFormatMessage(t *testing.T) {
	got := FormatMessage(notification.SendInput{RequesterName: "Alice", Scope: "calls"})
	assert.Equal(t, "Hi, Alice is requesting AI agent consent for: calls. Reply YES to grant or NO to decline.", got)
}

func TestUnconfiguredProvider(t *testing.T) {
	p := New(Config{AccountSID: "AC123"})
	assert.False(t, p.IsConfigured())
	assert.Equal(t, notification.ProviderTypeSMS, p.Type())

	res := p.SendConsentRequest(context.Background(), notification.SendInput{TargetContact: "+15551234567"})
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Contains(t, *res.Error, "Twilio is not configured")
}

func TestValidateContact(t *testing.T) {
	p := New(Config{})
	assert.True(t, p.ValidateContact("+15551234567"))
	assert.False(t, p.ValidateContact("15551234567"))
	assert.False(t, p.ValidateContact("+0123"))
}
