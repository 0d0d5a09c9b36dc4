// Package clientip extracts the real client IP for a watcher that may sit
// behind Cloudflare or an nginx reverse proxy, or face the network directly.
package clientip

import (
	"context"
	"net/http"
	"sort"
	"strings"
)

// contextKey is unexported to prevent collisions
type contextKey struct{}

var clientIPKey = contextKey{}

// Info contains extracted client IP information
type Info struct {
	// Primary is the most trusted single IP (for logging, display)
	// Priority: CF-Connecting-IP > X-Real-IP > XFF[0] > RemoteAddr
	Primary string

	// RateLimitKey is a composite of all observed IPs. Spoofed headers widen
	// the key but RemoteAddr always anchors it.
	RateLimitKey string
}

// Middleware extracts client IPs and:
// 1. Updates r.RemoteAddr to the primary (most trusted) IP
// 2. Stores Info in context for the rate limiter and logger
//
// Trusted header priority (highest first):
//   - CF-Connecting-IP: set by the Cloudflare edge
//   - X-Real-IP: set by nginx-style reverse proxies
//   - X-Forwarded-For[0]: first hop, partially trusted
//   - RemoteAddr: the TCP connection, always available
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := extract(r)

		r.RemoteAddr = info.Primary

		ctx := context.WithValue(r.Context(), clientIPKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext retrieves Info from context. Returns zero Info if not present.
func FromContext(ctx context.Context) Info {
	if info, ok := ctx.Value(clientIPKey).(Info); ok {
		return info
	}
	return Info{}
}

// FromRequest is a convenience wrapper around FromContext
func FromRequest(r *http.Request) Info {
	return FromContext(r.Context())
}

// extract pulls IPs from the known headers and computes Primary + RateLimitKey
func extract(r *http.Request) Info {
	allIPs := make(map[string]bool)

	// The TCP peer is always part of the key.
	remoteIP := hostOnly(r.RemoteAddr)
	if remoteIP != "" {
		allIPs[remoteIP] = true
	}

	var primary string
	for _, header := range []string{"CF-Connecting-IP", "X-Real-IP"} {
		if ip := strings.TrimSpace(r.Header.Get(header)); ip != "" {
			allIPs[ip] = true
			if primary == "" {
				primary = ip
			}
		}
	}

	// X-Forwarded-For may list several hops; only the first is the client.
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			allIPs[ip] = true
			if primary == "" {
				primary = ip
			}
		}
	}

	if primary == "" {
		primary = remoteIP
	}

	ipList := make([]string, 0, len(allIPs))
	for ip := range allIPs {
		ipList = append(ipList, ip)
	}
	sort.Strings(ipList)

	return Info{
		Primary:      primary,
		RateLimitKey: strings.Join(ipList, "|"),
	}
}

// hostOnly strips the port from an address.
// Handles formats: "IP:port", "[IPv6]:port", "IP", "IPv6"
func hostOnly(addr string) string {
	if addr == "" {
		return ""
	}

	if strings.HasPrefix(addr, "[") {
		if idx := strings.LastIndex(addr, "]:"); idx != -1 {
			return strings.Trim(addr[:idx+1], "[]")
		}
		return strings.Trim(addr, "[]")
	}

	// IPv4:port has exactly one colon; bare IPv6 has more.
	if strings.Count(addr, ":") == 1 {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
	}

	return addr
}
