package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPConfig holds configuration for origin resolution
type IPConfig struct {
	TrustedProxies []string // CIDR ranges of trusted proxies
}

// ResolveOrigin derives the caller's network origin from the request.
// X-Forwarded-For and X-Real-IP are honored only when the direct peer is a
// trusted proxy, to prevent spoofing via header manipulation. An origin that
// cannot be resolved to a valid address is an error; the caller records it
// as a failed attempt rather than guessing.
func ResolveOrigin(r *http.Request, config *IPConfig) (string, error) {
	remoteIP := getRemoteAddr(r)

	if config != nil && isTrustedProxy(remoteIP, config.TrustedProxies) {
		// X-Forwarded-For can carry multiple hops, take the first valid one
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			for _, ip := range strings.Split(xff, ",") {
				ip = strings.TrimSpace(ip)
				if isValidIP(ip) {
					return ip, nil
				}
			}
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if isValidIP(xri) {
				return xri, nil
			}
		}
	}

	if !isValidIP(remoteIP) {
		return "", fmt.Errorf("cannot resolve origin address from %q", r.RemoteAddr)
	}

	return remoteIP, nil
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr != "" {
		// RemoteAddr may include port: "ip:port"
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}
	return ""
}

// isTrustedProxy checks if an IP address is within any of the trusted proxy CIDR ranges
func isTrustedProxy(ip string, trustedProxies []string) bool {
	if len(trustedProxies) == 0 {
		return false
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return false
	}

	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // Skip invalid CIDR ranges
		}
		if ipNet.Contains(clientIP) {
			return true
		}
	}

	return false
}

// isValidIP checks if a string is a valid IPv4 or IPv6 address
func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
