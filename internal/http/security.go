package http

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// securityMetrics counts request-hardening events across the server's
// lifetime. Read with atomic loads.
type securityMetrics struct {
	rateLimitHits      int64
	invalidIPAttempts  int64
	suspiciousRequests int64
}

// trustedProxies are the networks allowed to set forwarding headers. Only
// loopback and RFC 1918 ranges: the server is meant to sit behind a local
// reverse proxy, never directly on the internet.
var trustedProxies = []*net.IPNet{
	mustCIDR("127.0.0.0/8"),
	mustCIDR("10.0.0.0/8"),
	mustCIDR("172.16.0.0/12"),
	mustCIDR("192.168.0.0/16"),
}

func mustCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("bad trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

func isTrustedProxy(ip net.IP) bool {
	for _, network := range trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// extractClientIP resolves the client address for rate limiting and logs.
// Forwarding headers are honored only when the direct peer is a trusted
// proxy; anything unparsable is counted and used as-is.
func extractClientIP(r *http.Request, metrics *securityMetrics) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		if metrics != nil {
			atomic.AddInt64(&metrics.invalidIPAttempts, 1)
		}
		return directIP
	}

	if isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
			if metrics != nil {
				atomic.AddInt64(&metrics.invalidIPAttempts, 1)
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
			if metrics != nil {
				atomic.AddInt64(&metrics.invalidIPAttempts, 1)
			}
		}
	}

	return directIP
}

// suspiciousFragments are probe signatures that have no business in this
// API's paths or queries: traversal, dotfile fishing, and injection attempts
// against the ledger's search and scan parameters.
var suspiciousFragments = []string{
	"../", "..\\",
	".env", ".git", ".ssh",
	"<script", "javascript:",
	"union select", "etc/passwd",
}

// scannerAgents are user-agent markers of bulk vulnerability scanners. The
// API has no browser UI, but its legitimate callers send real user agents.
var scannerAgents = []string{
	"sqlmap", "nikto", "gobuster", "dirb", "nmap", "scanner",
}

// detectSuspiciousRequest flags requests that look like probes rather than
// ledger traffic. Flagged requests are logged and counted, not rejected.
func detectSuspiciousRequest(r *http.Request, metrics *securityMetrics) bool {
	suspicious := false

	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	if unescaped, err := url.QueryUnescape(query); err == nil {
		query = unescaped
	}
	for _, fragment := range suspiciousFragments {
		if strings.Contains(path, fragment) || strings.Contains(query, fragment) {
			suspicious = true
			break
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range scannerAgents {
		if strings.Contains(userAgent, agent) {
			suspicious = true
			break
		}
	}

	switch r.Method {
	case "TRACE", "TRACK", "CONNECT":
		suspicious = true
	}

	// No legitimate call carries a URL anywhere near this long; the search
	// query and stats parameters are short.
	if len(r.URL.String()) > 2048 {
		suspicious = true
	}

	if suspicious && metrics != nil {
		atomic.AddInt64(&metrics.suspiciousRequests, 1)
	}
	return suspicious
}
