package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClient is the identifier used when no client address can be determined.
const UnknownClient = "unknown"

// ClientIP derives the rate-limit identifier from proxy headers, preferring
// CF-Connecting-IP, then X-Real-IP, then the first X-Forwarded-For entry.
//
// These headers are caller controlled unless a trusted proxy overwrites
// them, so only use this behind such a proxy. See ClientIPFromRequest.
func ClientIP(h http.Header) string {
	if ip := strings.TrimSpace(h.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return UnknownClient
}

// ClientIPFromRequest returns ClientIP(r.Header) when trustProxy is set and
// the peer address of the connection otherwise.
func ClientIPFromRequest(r *http.Request, trustProxy bool) string {
	if trustProxy {
		return ClientIP(r.Header)
	}
	if r.RemoteAddr == "" {
		return UnknownClient
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
