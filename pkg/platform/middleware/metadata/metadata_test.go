package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentconsent/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	trusted, err := ParseTrustedProxies("10.0.0.0/8, 192.168.0.0/16")
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		wantIP     string
		wantUA     string
	}{
		{"untrusted peer ignores XFF", "203.0.113.9:1234", map[string]string{"X-Forwarded-For": "198.51.100.1", "User-Agent": "Mozilla/5.0"}, "203.0.113.9", "Mozilla/5.0"},
		{"trusted peer uses first XFF hop", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.2"}, "198.51.100.1", ""},
		{"trusted peer with junk XFF", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "not-an-ip"}, "10.0.0.1", ""},
		{"trusted peer uses X-Real-IP", "192.168.1.5:1234", map[string]string{"X-Real-IP": "198.51.100.7"}, "198.51.100.7", ""},
		{"ipv6 peer", "[2001:db8::1]:443", nil, "2001:db8::1", ""},
		{"missing remote addr", "", nil, "unknown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotIP, gotUA string
			h := New(trusted)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				gotIP = requestcontext.ClientIP(r.Context())
				gotUA = requestcontext.UserAgent(r.Context())
			}))
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), r)

			assert.Equal(t, tt.wantIP, gotIP)
			assert.Equal(t, tt.wantUA, gotUA)
		})
	}
}

func TestParseTrustedProxiesRejectsBadCIDR(t *testing.T) {
	_, err := ParseTrustedProxies("10.0.0.0/8,nope")
	require.Error(t, err)

	none, err := ParseTrustedProxies("")
	require.NoError(t, err)
	assert.Empty(t, none)
}
