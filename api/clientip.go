package api

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// extractClientIP returns the rate-limit identity for a request, honoring
// the API's configured trusted proxies.
func (a *API) extractClientIP(r *http.Request) string {
	return extractClientIPWithProxies(r, a.trustedProxies)
}

// extractClientIPWithProxies returns the best-effort client IP. Proxy
// headers are honored only when the direct peer is inside a trusted-proxy
// prefix; otherwise a client could spoof someone else's rate-limit bucket.
// Precedence behind a trusted proxy: first valid X-Forwarded-For entry,
// then X-Real-IP, then the peer address.
func extractClientIPWithProxies(r *http.Request, trustedProxies []netip.Prefix) string {
	remoteIP, _ := parseIPCandidate(r.RemoteAddr)

	if peerIsTrustedProxy(r, trustedProxies) {
		if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
			for _, part := range strings.Split(xff, ",") {
				if ip, ok := parseIPCandidate(part); ok {
					return ip
				}
			}
		}
		if xrip := strings.TrimSpace(r.Header.Get("X-Real-IP")); xrip != "" {
			if ip, ok := parseIPCandidate(xrip); ok {
				return ip
			}
		}
	}

	return remoteIP
}

// parseIPCandidate normalizes one address candidate: host:port forms,
// IPv6 brackets, and zone suffixes are stripped before parsing.
func parseIPCandidate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if i := strings.IndexByte(s, '%'); i >= 0 {
		s = s[:i]
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.String(), true
	}
	return "", false
}

// peerIsTrustedProxy reports whether the direct peer sits inside one of
// the trusted-proxy prefixes.
func peerIsTrustedProxy(r *http.Request, trustedProxies []netip.Prefix) bool {
	if len(trustedProxies) == 0 {
		return false
	}
	remoteIP, ok := parseIPCandidate(r.RemoteAddr)
	if !ok {
		return false
	}
	addr, err := netip.ParseAddr(remoteIP)
	if err != nil {
		return false
	}
	for _, prefix := range trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// requestIsSecure reports whether the request arrived over TLS, directly
// or via a trusted forwarding proxy. X-Forwarded-Proto gets the same
// trusted-proxy gate as the client-IP headers.
func requestIsSecure(r *http.Request, trustedProxies []netip.Prefix) bool {
	if r.TLS != nil {
		return true
	}
	if !peerIsTrustedProxy(r, trustedProxies) {
		return false
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
