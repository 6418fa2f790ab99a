package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentconsent/internal/notification"
)

func strPtr(s string) *string { return &s }

func newTestProvider(t *testing.T, handler http.HandlerFunc) *SendGridProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		APIKey:     "SG.key",
		FromEmail:  "consent@example.com",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
}

func TestSendConsentRequest(t *testing.T) {
	t.Run("sends plain and html parts", func(t *testing.T) {
		var got mail
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v3/mail/send", r.URL.Path)
			assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("X-Message-Id", "msg-7")
			w.WriteHeader(http.StatusAccepted)
		})

		res := p.SendConsentRequest(context.Background(), notification.SendInput{
			TargetContact: "bob@example.com",
			RequesterName: "Alice",
			Scope:         "newsletter",
			ConsentURL:    strPtr("https://consent.example.com/v1/consent/abc"),
		})

		require.True(t, res.Success)
		require.NotNil(t, res.MessageID)
		assert.Equal(t, "msg-7", *res.MessageID)
		assert.Equal(t, "sendgrid", res.Provider)

		require.Len(t, got.Personalizations, 1)
		assert.Equal(t, "bob@example.com", got.Personalizations[0].To[0].Email)
		assert.Equal(t, "consent@example.com", got.From.Email)
		assert.Equal(t, "Consent Request from Alice", got.Subject)
		require.Len(t, got.Content, 2)
		assert.Equal(t, "text/plain", got.Content[0].Type)
		assert.Equal(t, "text/html", got.Content[1].Type)
		assert.Contains(t, got.Content[1].Value, `href="https://consent.example.com/v1/consent/abc"`)
		assert.Contains(t, got.Content[1].Value, "Grant Consent")
	})

	t.Run("api error body is reported", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"message":"invalid key"}]}`))
		})
		res := p.SendConsentRequest(context.Background(), notification.SendInput{
			TargetContact: "bob@example.com",
			RequesterName: "Alice",
			Scope:         "newsletter",
		})
		assert.False(t, res.Success)
		require.NotNil(t, res.Error)
		assert.Equal(t, `SendGrid error: {"errors":[{"message":"invalid key"}]}`, *res.Error)
	})

	t.Run("invalid address", func(t *testing.T) {
		p := newTestProvider(t, func(http.ResponseWriter, *http.Request) {
			t.Error("unexpected request")
		})
		res := p.SendConsentRequest(context.Background(), notification.SendInput{TargetContact: "bob@example"})
		assert.False(t, res.Success)
		assert.Equal(t, "Invalid email address: bob@example", *res.Error)
	})
}

func TestFormatPlainBody(t *testing.T) {
	in := notification.SendInput{RequesterName: "Alice", TargetName: strPtr("Bob"), Scope: "newsletter"}
	want := "Hi Bob,\n\nAlice is requesting permission for an AI agent to contact you for: newsletter\n\n" +
		"Reply YES to grant consent or NO to decline.\n\n---\nThis is an automated consent request."
	assert.Equal(t, want, FormatPlainBody(in))

	in.TargetName = nil
	assert.Contains(t, FormatPlainBody(in), "Hello,\n\n")
}

func TestFormatHTMLBody(t *testing.T) {
	t.Run("reply instructions without url", func(t *testing.T) {
		body, err := FormatHTMLBody(notification.SendInput{RequesterName: "Alice", Scope: "newsletter"})
		require.NoError(t, err)
		assert.Contains(t, body, "<p>Hello,</p>")
		assert.Contains(t, body, "Reply to this email with <strong>YES</strong>")
		assert.NotContains(t, body, "Grant Consent")
	})

	t.Run("escapes user supplied text", func(t *testing.T) {
		body, err := FormatHTMLBody(notification.SendInput{RequesterName: "<script>x</script>", Scope: "a & b"})
		require.NoError(t, err)
		assert.NotContains(t, body, "<script>")
		assert.Contains(t, body, "a &amp; b")
	})
}

func TestValidateContact(t *testing.T) {
	p := New(Config{})
	assert.False(t, p.IsConfigured())
	assert.True(t, p.ValidateContact("a.b+c@example.co"))
	assert.False(t, p.ValidateContact("nobody@localhost"))
	assert.False(t, p.ValidateContact("plainaddress"))
}
