package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const unknown = "unknown"

// IPConfig holds configuration for client IP extraction
type IPConfig struct {
	TrustedProxies []string // CIDR ranges whose forwarding headers are honoured
}

// ExtractClientIP returns the caller's address.
// X-Forwarded-For and X-Real-IP are read only when the peer is a trusted proxy;
// otherwise the peer address is used so callers cannot spoof their ledger IP.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	peer := remoteIP(r)

	if config == nil || !inPrefixes(peer, config.TrustedProxies) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, candidate := range strings.Split(xff, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
				return addr.String()
			}
		}
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}

	return peer
}

// ExtractUserAgent returns the User-Agent header, or "unknown" when absent
func ExtractUserAgent(r *http.Request) string {
	if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
		return ua
	}
	return unknown
}

func remoteIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return unknown
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func inPrefixes(ip string, cidrs []string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()

	for _, cidr := range cidrs {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
