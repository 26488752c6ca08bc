package api

import (
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractClientIP_NoProxies(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:4455"
	r.Header.Set("X-Forwarded-For", "198.51.100.25")

	got := extractClientIPWithProxies(r, nil)
	assert.Equal(t, "203.0.113.9", got, "forwarding headers are ignored without trusted proxies")
}

func TestExtractClientIP_TrustedProxy(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	cases := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "xff from trusted peer",
			remoteAddr: "10.1.2.3:9000",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.25, 203.0.113.9"},
			want:       "198.51.100.25",
		},
		{
			name:       "skips garbage xff entries",
			remoteAddr: "10.1.2.3:9000",
			headers:    map[string]string{"X-Forwarded-For": "unknown, not-an-ip, 203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.1.2.3:9000",
			headers:    map[string]string{"X-Real-IP": "198.51.100.30"},
			want:       "198.51.100.30",
		},
		{
			name:       "untrusted peer ignores headers",
			remoteAddr: "203.0.113.50:9000",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.25"},
			want:       "203.0.113.50",
		},
		{
			name:       "ipv6 peer with zone",
			remoteAddr: "[fe80::1%eth0]:9000",
			headers:    nil,
			want:       "fe80::1",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, extractClientIPWithProxies(r, trusted))
		})
	}
}

func TestRequestIsSecure(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	r := httptest.NewRequest("GET", "https://example.com/", nil)
	assert.True(t, requestIsSecure(r, nil), "direct TLS needs no proxy")

	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.1.2.3:9000"
	assert.False(t, requestIsSecure(r, trusted))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.True(t, requestIsSecure(r, trusted))

	r.RemoteAddr = "203.0.113.9:9000"
	assert.False(t, requestIsSecure(r, trusted), "untrusted peers cannot assert https")
	assert.False(t, requestIsSecure(r, nil))
}
