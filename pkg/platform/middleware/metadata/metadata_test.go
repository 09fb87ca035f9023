package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"hetu/pkg/requestcontext"
)

func TestMiddlewareHandler(t *testing.T) {
	tests := []struct {
		name           string
		headers        map[string]string
		remoteAddr     string
		trustedProxies []string
		expectedIP     string
		expectedUA     string
	}{
		{
			name: "ignores XFF when no trusted proxies",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
				"User-Agent":      "Mozilla/5.0",
			},
			remoteAddr:     "192.168.1.1:12345",
			trustedProxies: nil,
			expectedIP:     "192.168.1.1",
			expectedUA:     "Mozilla/5.0",
		},
		{
			name: "trusts XFF when request from trusted proxy",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.1",
				"User-Agent":      "curl/7.64.1",
			},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.1",
			expectedUA:     "curl/7.64.1",
		},
		{
			name: "uses first hop of XFF chain",
			headers: map[string]string{
				"X-Forwarded-For": "203.0.113.7, 198.51.100.1",
				"User-Agent":      "curl/7.64.1",
			},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.7",
			expectedUA:     "curl/7.64.1",
		},
		{
			name: "trusts X-Real-IP from trusted proxy when no XFF",
			headers: map[string]string{
				"X-Real-IP":  "203.0.113.9",
				"User-Agent": "curl/7.64.1",
			},
			remoteAddr:     "10.0.0.1:12345",
			trustedProxies: []string{"10.0.0.0/8"},
			expectedIP:     "203.0.113.9",
			expectedUA:     "curl/7.64.1",
		},
		{
			name: "falls back to RemoteAddr when no headers",
			headers: map[string]string{
				"User-Agent": "test-agent",
			},
			remoteAddr:     "192.168.1.100:54321",
			trustedProxies: nil,
			expectedIP:     "192.168.1.100",
			expectedUA:     "test-agent",
		},
		{
			name:           "handles missing user agent",
			headers:        map[string]string{},
			remoteAddr:     "10.0.0.1:8080",
			trustedProxies: nil,
			expectedIP:     "10.0.0.1",
			expectedUA:     "",
		},
		{
			name: "handles IPv6 RemoteAddr",
			headers: map[string]string{
				"User-Agent": "test-agent",
			},
			remoteAddr:     "[2001:db8::1]:443",
			trustedProxies: nil,
			expectedIP:     "2001:db8::1",
			expectedUA:     "test-agent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var capturedCtx context.Context
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				capturedCtx = r.Context()
				w.WriteHeader(http.StatusOK)
			})

			cfg := &Config{TrustedProxies: ParseTrustedProxies(tt.trustedProxies)}
			mw := NewMiddleware(cfg)
			handler := mw.Handler(testHandler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = tt.remoteAddr
			for key, value := range tt.headers {
				req.Header.Set(key, value)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedIP, requestcontext.ClientIP(capturedCtx), "IP address mismatch")
			assert.Equal(t, tt.expectedUA, requestcontext.UserAgent(capturedCtx), "User-Agent mismatch")
		})
	}
}

func TestMiddlewareHandler_UntrustedXFFIgnored(t *testing.T) {
	// An attacker outside the trusted proxy range must not be able to spoof
	// their IP via X-Forwarded-For.
	var capturedCtx context.Context
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCtx = r.Context()
		w.WriteHeader(http.StatusOK)
	})

	cfg := &Config{TrustedProxies: ParseTrustedProxies([]string{"10.0.0.0/8"})}
	handler := NewMiddleware(cfg).Handler(testHandler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "198.51.100.50:12345"
	req.Header.Set("X-Forwarded-For", "127.0.0.1")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "198.51.100.50", requestcontext.ClientIP(capturedCtx))
}

func TestParseTrustedProxies(t *testing.T) {
	t.Run("parses CIDR prefixes", func(t *testing.T) {
		prefixes := ParseTrustedProxies([]string{"10.0.0.0/8", "2001:db8::/32"})
		assert.Len(t, prefixes, 2)
		assert.True(t, prefixes[0].Contains(netip.MustParseAddr("10.1.2.3")))
		assert.True(t, prefixes[1].Contains(netip.MustParseAddr("2001:db8::1")))
	})

	t.Run("accepts bare addresses as single-host prefixes", func(t *testing.T) {
		prefixes := ParseTrustedProxies([]string{"192.0.2.1"})
		assert.Len(t, prefixes, 1)
		assert.True(t, prefixes[0].Contains(netip.MustParseAddr("192.0.2.1")))
		assert.False(t, prefixes[0].Contains(netip.MustParseAddr("192.0.2.2")))
	})

	t.Run("skips invalid entries", func(t *testing.T) {
		prefixes := ParseTrustedProxies([]string{"not-a-cidr", "10.0.0.0/8"})
		assert.Len(t, prefixes, 1)
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		assert.Nil(t, ParseTrustedProxies(nil))
	})
}
